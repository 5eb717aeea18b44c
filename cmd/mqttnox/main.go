// Command mqttnox is an interactive MQTT 3.1.1 client.
//
// Usage:
//
//	mqttnox -broker test.mosquitto.org -client-id MAMA12354
//	mqttnox -config client.yaml
//
// Commands read from stdin:
//
//	pub <topic> <message> [qos]
//	sub <topic> [qos]
//	unsub <topic>
//	ping
//	help
//	exit
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/vitalvas/mqttv3"
)

type command struct {
	name  string
	usage string
	run   func(c *mqttv3.Client, args []string) error
}

var commands = []command{
	{"help", "help", nil},
	{"pub", "pub <topic> <message> [qos]", pubCommand},
	{"sub", "sub <topic> [qos]", subCommand},
	{"unsub", "unsub <topic>", unsubCommand},
	{"ping", "ping", func(c *mqttv3.Client, _ []string) error { return c.Ping() }},
	{"exit", "exit", nil},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	configPath := flag.String("config", "", "YAML config file")
	broker := flag.String("broker", "test.mosquitto.org", "broker address")
	port := flag.Uint("port", uint(mqttv3.DefaultPort), "broker port")
	clientID := flag.String("client-id", "", "client identifier (generated when empty)")
	keepAlive := flag.Uint("keepalive", 60, "keepalive in seconds")
	clean := flag.Bool("clean", false, "request a clean session")
	level := flag.String("log-level", "info", "log level: debug, info, warn, error, none")
	flag.Parse()

	brokerPort, err := toUint16("port", *port)
	if err != nil {
		return err
	}
	keepAliveSecs, err := toUint16("keepalive", *keepAlive)
	if err != nil {
		return err
	}

	cfg := &mqttv3.ClientConfig{
		Broker:       *broker,
		Port:         brokerPort,
		Transport:    mqttv3.TransportTCP,
		ClientID:     *clientID,
		CleanSession: *clean,
		KeepAlive:    keepAliveSecs,
		LogLevel:     *level,
		AutoPing:     true,
	}

	if *configPath != "" {
		cfg, err = mqttv3.LoadConfig(*configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	} else if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	dialer, err := cfg.Dialer()
	if err != nil {
		return fmt.Errorf("failed to build dialer: %w", err)
	}

	transport := mqttv3.NewStreamTransport(dialer)
	logger := mqttv3.NewStdLogger(os.Stderr, cfg.Level())
	metrics := mqttv3.NewMemoryMetrics()
	defer printSummary(os.Stdout, metrics)

	client := mqttv3.NewClient(transport,
		mqttv3.WithLogger(logger),
		mqttv3.WithMetrics(metrics),
		mqttv3.WithAutoPing(cfg.AutoPing),
	)

	if err := client.Init(cfg.Level()); err != nil {
		return fmt.Errorf("failed to init client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Connect(ctx, cfg.ConnectConfig(onEvent), cfg.KeepAlive); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	exitCh := make(chan struct{})
	go func() {
		commandLoop(client, os.Stdin, os.Stdout)
		close(exitCh)
	}()

	select {
	case <-exitCh:
	case <-sigCh:
	case <-transport.Done():
		fmt.Println("Connection closed")
		return nil
	}

	if err := client.Disconnect(); err != nil && !errors.Is(err, mqttv3.ErrNotConnected) {
		log.Printf("Disconnect failed: %v", err)
	}

	<-transport.Done()
	return nil
}

func onEvent(_ *mqttv3.Client, event error) {
	var (
		connected *mqttv3.ConnectedEvent
		refused   *mqttv3.ConnectError
		message   *mqttv3.MessageEvent
		suback    *mqttv3.SubscribedEvent
	)

	switch {
	case errors.As(event, &connected):
		fmt.Printf("MQTT Connected (session present: %v)\n", connected.SessionPresent)
	case errors.As(event, &refused):
		fmt.Printf("Connection refused: %s\n", refused.ReturnCode)
	case errors.As(event, &message):
		fmt.Printf("[%s] %s\n", message.Message.Topic, message.Message.Payload)
	case errors.As(event, &suback):
		if failed := suback.Failed(); len(failed) > 0 {
			fmt.Printf("Subscription %d rejected\n", suback.PacketID)
		} else {
			fmt.Printf("Subscribed (id %d)\n", suback.PacketID)
		}
	case errors.Is(event, mqttv3.ErrPublished):
		fmt.Println(event)
	case errors.Is(event, mqttv3.ErrUnsubscribed):
		fmt.Println(event)
	case errors.Is(event, mqttv3.ErrPingResponse):
		fmt.Println("PINGRESP")
	case errors.Is(event, mqttv3.ErrConnectionLost):
		fmt.Println(event)
	default:
		fmt.Printf("Error: %v\n", event)
	}
}

// commandLoop reads commands until exit or end of input.
func commandLoop(client *mqttv3.Client, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)

	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			fmt.Fprint(out, "> ")
			continue
		}

		name, args := fields[0], fields[1:]
		switch name {
		case "exit":
			return
		case "help":
			fmt.Fprintln(out, "Commands:")
			for _, cmd := range commands {
				fmt.Fprintf(out, "\t%s\n", cmd.usage)
			}
		default:
			runCommand(client, out, name, args)
		}

		fmt.Fprint(out, "> ")
	}
}

func runCommand(client *mqttv3.Client, out io.Writer, name string, args []string) {
	for _, cmd := range commands {
		if cmd.name != name || cmd.run == nil {
			continue
		}

		if err := cmd.run(client, args); err != nil {
			fmt.Fprintf(out, "%s: %v\n", name, err)
		}
		return
	}

	fmt.Fprintf(out, "unknown command %q, try help\n", name)
}

// printSummary writes the collected counters in name order.
func printSummary(out io.Writer, metrics *mqttv3.MemoryMetrics) {
	snapshot := metrics.Snapshot()

	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	fmt.Fprintln(out, "Session summary:")
	for _, k := range keys {
		fmt.Fprintf(out, "\t%s %v\n", k, snapshot[k])
	}
}

var errUsage = errors.New("missing arguments, try help")

func parseQoS(args []string, i int) (byte, error) {
	if len(args) <= i {
		return mqttv3.QoS0, nil
	}

	qos, err := strconv.ParseUint(args[i], 10, 8)
	if err != nil {
		return 0, fmt.Errorf("qos: %w", err)
	}

	return byte(qos), nil
}

func pubCommand(c *mqttv3.Client, args []string) error {
	if len(args) < 2 {
		return errUsage
	}

	qos, err := parseQoS(args, 2)
	if err != nil {
		return err
	}

	_, err = c.Publish(qos, false, false, args[0], []byte(args[1]))
	return err
}

func subCommand(c *mqttv3.Client, args []string) error {
	if len(args) < 1 {
		return errUsage
	}

	qos, err := parseQoS(args, 1)
	if err != nil {
		return err
	}

	_, err = c.Subscribe(mqttv3.Subscription{TopicFilter: args[0], QoS: qos})
	return err
}

func unsubCommand(c *mqttv3.Client, args []string) error {
	if len(args) < 1 {
		return errUsage
	}

	_, err := c.Unsubscribe(args...)
	return err
}

// toUint16 rejects flag values that do not fit the 16-bit wire fields.
func toUint16(name string, v uint) (uint16, error) {
	if v > math.MaxUint16 {
		return 0, fmt.Errorf("-%s: %d exceeds %d", name, v, math.MaxUint16)
	}
	return uint16(v), nil
}
