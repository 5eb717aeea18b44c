package mqttv3

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Will is the message the broker publishes if the client goes away without
// sending DISCONNECT. Topic and Message must both be set.
type Will struct {
	Topic   string
	Message []byte
	QoS     byte
	Retain  bool
}

// ConnectConfig is the input to Connect. Only OnEvent is kept after the
// call returns.
type ConnectConfig struct {
	// Address is the broker host name or IP.
	Address string

	// Port is the broker port, usually 1883.
	Port uint16

	// ClientID must be 1-22 characters from [0-9a-zA-Z].
	ClientID string

	// CleanSession asks the broker to discard any previous session.
	CleanSession bool

	// Username and Password are optional. Password is only sent with a username.
	Username string
	Password []byte

	// Will is optional.
	Will *Will

	// OnEvent receives connection, acknowledgment and message events.
	OnEvent EventHandler
}

// Client is an MQTT 3.1.1 client protocol engine. It builds outgoing
// control packets, sends them through a Transport and dispatches inbound
// packets to an EventHandler. It does not retransmit unacknowledged
// messages.
type Client struct {
	transport Transport
	options   *clientOptions
	logger    Logger
	metrics   *clientMetrics
	router    *Router

	session atomic.Pointer[Session]

	// sendMu serializes packet identifier allocation together with the send
	// that uses it, so identifiers go out on the wire in increasing order.
	sendMu sync.Mutex

	// open is set once CONNECT has been handed to the transport and cleared
	// by Disconnect or a lost connection.
	open atomic.Bool

	pingMu   sync.Mutex
	pingStop chan struct{}
}

// NewClient returns a client that talks through transport. Call Init before
// any other operation.
func NewClient(transport Transport, opts ...Option) *Client {
	options := applyOptions(opts...)

	return &Client{
		transport: transport,
		options:   options,
		logger:    options.logger,
		metrics:   newClientMetrics(options.metrics),
		router:    NewRouter(),
	}
}

// Init resets the protocol state and sets the logging level. The packet
// identifier counter restarts at 1. A live connection is closed without
// sending DISCONNECT.
func (c *Client) Init(level LogLevel) error {
	if c.transport == nil {
		return fmt.Errorf("%w: nil transport", ErrTransportFailure)
	}

	c.stopPing()
	if c.open.Swap(false) {
		if err := c.transport.Disconnect(); err != nil {
			c.logger.Warn("transport disconnect on init", LogFields{LogFieldError: err.Error()})
		}
	}
	c.logger.SetLevel(level)
	c.session.Store(newSession())
	c.metrics.connected(false)

	c.logger.Debug("client initialized", LogFields{"level": level.String()})
	return nil
}

// Session returns the current protocol state, or nil before Init.
func (c *Client) Session() *Session {
	return c.session.Load()
}

// Router returns the router used to deliver inbound messages to handlers
// registered with Handle.
func (c *Client) Router() *Router {
	return c.router
}

// Handle registers a handler for inbound messages matching filter. It is a
// local registration; call Subscribe to receive messages from the broker.
func (c *Client) Handle(filter string, handler MessageHandler) error {
	return c.router.Handle(filter, handler)
}

// IsConnected reports whether the broker accepted the connection.
func (c *Client) IsConnected() bool {
	s := c.session.Load()
	return s != nil && s.Connected()
}

// Connect validates cfg, builds the CONNECT packet, opens the transport and
// sends it. The result of the connection attempt arrives later as an
// ErrConnected or ErrConnectionRefused event.
func (c *Client) Connect(ctx context.Context, cfg *ConnectConfig, keepAlive uint16) error {
	s := c.session.Load()
	if s == nil {
		return ErrNotInitialized
	}

	if cfg == nil {
		return ErrBadClientIdent
	}

	if err := ValidateClientID(cfg.ClientID); err != nil {
		return err
	}

	pkt := &ConnectPacket{
		ClientID:     cfg.ClientID,
		CleanSession: cfg.CleanSession,
		KeepAlive:    keepAlive,
		Username:     cfg.Username,
		Password:     cfg.Password,
	}

	if w := cfg.Will; w != nil && (w.Topic != "" || len(w.Message) > 0) {
		pkt.WillFlag = true
		pkt.WillTopic = w.Topic
		pkt.WillMessage = w.Message
		pkt.WillQoS = w.QoS
		pkt.WillRetain = w.Retain
	}

	data, err := encodeToBytes(pkt, c.options.maxPacketSize)
	if err != nil {
		return err
	}

	handler := cfg.OnEvent
	if handler == nil {
		handler = c.options.onEvent
	}
	s.setConnectParams(keepAlive, handler)

	if err := c.transport.Init(c.receive); err != nil {
		return fmt.Errorf("%w: init: %w", ErrTransportFailure, err)
	}

	if cn, ok := c.transport.(closeNotifier); ok {
		cn.OnClose(c.connectionClosed)
	}

	if err := c.transport.Connect(ctx, cfg.Address, cfg.Port); err != nil {
		return fmt.Errorf("%w: connect %s: %w", ErrTransportFailure, hostPort(cfg.Address, cfg.Port), err)
	}

	// Set before the send so a close reported while CONNECT is in flight
	// is surfaced as a lost connection.
	c.open.Store(true)

	c.sendMu.Lock()
	err = c.sendBytes(PacketCONNECT, data)
	c.sendMu.Unlock()
	if err != nil {
		c.open.Store(false)
		return err
	}

	c.logger.Info("connect sent", LogFields{
		LogFieldClientID: cfg.ClientID,
		"address":        hostPort(cfg.Address, cfg.Port),
		"keep_alive":     keepAlive,
		"clean_session":  cfg.CleanSession,
	})

	// A close during the send has already been reported.
	if c.options.autoPing && keepAlive > 0 && c.open.Load() {
		c.startPing(pingInterval(keepAlive))
	}

	return nil
}

// ready returns the session when outbound operations are allowed.
func (c *Client) ready() (*Session, error) {
	s := c.session.Load()
	if s == nil {
		return nil, ErrNotInitialized
	}

	if !c.open.Load() {
		return nil, ErrNotConnected
	}

	return s, nil
}

// Publish sends an application message. For QoS 1 and 2 a packet
// identifier is allocated and returned; for QoS 0 the returned id is 0.
// Completion of QoS 1 is reported as an ErrPublished event.
func (c *Client) Publish(qos byte, retain, dup bool, topic string, payload []byte) (uint16, error) {
	s, err := c.ready()
	if err != nil {
		return 0, err
	}

	if qos > QoS2 {
		return 0, ErrInvalidQoS
	}

	if err := ValidateTopicName(topic); err != nil {
		return 0, err
	}

	pkt := &PublishPacket{
		Topic:   topic,
		Payload: payload,
		QoS:     qos,
		Retain:  retain,
		DUP:     dup,
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if qos > QoS0 {
		pkt.PacketID = s.NextPacketID()
	}

	if err := c.sendPacket(pkt); err != nil {
		return 0, err
	}

	c.logger.Debug("publish sent", LogFields{
		LogFieldTopic:    topic,
		LogFieldQoS:      qos,
		LogFieldPacketID: pkt.PacketID,
		LogFieldBytes:    len(payload),
	})

	return pkt.PacketID, nil
}

// PublishMessage sends msg. PacketID in msg is ignored.
func (c *Client) PublishMessage(msg *Message) (uint16, error) {
	return c.Publish(msg.QoS, msg.Retain, msg.DUP, msg.Topic, msg.Payload)
}

// Subscribe requests the given subscriptions in one SUBSCRIBE packet and
// returns its packet identifier. The broker's answer arrives as an
// ErrSubscribed event.
func (c *Client) Subscribe(subs ...Subscription) (uint16, error) {
	s, err := c.ready()
	if err != nil {
		return 0, err
	}

	if len(subs) == 0 {
		return 0, ErrNoTopics
	}

	for _, sub := range subs {
		if sub.QoS > QoS2 {
			return 0, ErrInvalidQoS
		}
		if err := ValidateTopicFilter(sub.TopicFilter); err != nil {
			return 0, err
		}
	}

	pkt := &SubscribePacket{Subscriptions: subs}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	pkt.PacketID = s.NextPacketID()
	if err := c.sendPacket(pkt); err != nil {
		return 0, err
	}

	c.logger.Debug("subscribe sent", LogFields{
		LogFieldPacketID: pkt.PacketID,
		"filters":        len(subs),
	})

	return pkt.PacketID, nil
}

// Unsubscribe removes the given topic filters in one UNSUBSCRIBE packet
// and returns its packet identifier.
func (c *Client) Unsubscribe(filters ...string) (uint16, error) {
	s, err := c.ready()
	if err != nil {
		return 0, err
	}

	if len(filters) == 0 {
		return 0, ErrNoTopics
	}

	for _, filter := range filters {
		if err := ValidateTopicFilter(filter); err != nil {
			return 0, err
		}
	}

	pkt := &UnsubscribePacket{TopicFilters: filters}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	pkt.PacketID = s.NextPacketID()
	if err := c.sendPacket(pkt); err != nil {
		return 0, err
	}

	c.logger.Debug("unsubscribe sent", LogFields{
		LogFieldPacketID: pkt.PacketID,
		"filters":        len(filters),
	})

	return pkt.PacketID, nil
}

// Ping sends PINGREQ. The answer arrives as an ErrPingResponse event.
func (c *Client) Ping() error {
	if _, err := c.ready(); err != nil {
		return err
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	return c.sendPacket(&PingreqPacket{})
}

// Disconnect sends DISCONNECT, marks the client disconnected and closes
// the transport.
func (c *Client) Disconnect() error {
	s, err := c.ready()
	if err != nil {
		return err
	}

	c.stopPing()

	// Cleared first so a broker closing right after DISCONNECT is not
	// reported as a lost connection.
	c.open.Store(false)

	c.sendMu.Lock()
	err = c.sendPacket(&DisconnectPacket{})
	c.sendMu.Unlock()
	if err != nil {
		c.open.Store(true)
		return err
	}

	s.setConnected(false)
	c.metrics.connected(false)

	if err := c.transport.Disconnect(); err != nil {
		return fmt.Errorf("%w: disconnect: %w", ErrTransportFailure, err)
	}

	c.logger.Info("disconnected", nil)
	return nil
}

// sendPacket encodes pkt into an owned buffer and sends it. Callers hold sendMu.
func (c *Client) sendPacket(pkt Packet) error {
	data, err := encodeToBytes(pkt, c.options.maxPacketSize)
	if err != nil {
		return err
	}

	return c.sendBytes(pkt.Type(), data)
}

// sendBytes hands one complete packet to the transport. Callers hold sendMu.
func (c *Client) sendBytes(packetType PacketType, data []byte) error {
	if err := c.transport.Send(data); err != nil {
		c.logger.Warn("send failed", LogFields{
			LogFieldPacketType: packetType.String(),
			LogFieldError:      err.Error(),
		})
		return fmt.Errorf("%w: send %s: %w", ErrTransportFailure, packetType, err)
	}

	c.metrics.packetSent(packetType, len(data))
	return nil
}

// emit delivers an event to the session's handler.
func (c *Client) emit(s *Session, event error) {
	s.emitTo(c, event)
}

// connectionClosed is called by the transport when the connection ends
// without Disconnect.
func (c *Client) connectionClosed(err error) {
	if !c.open.Swap(false) {
		return
	}

	c.stopPing()

	s := c.session.Load()
	if s == nil {
		return
	}

	s.setConnected(false)
	c.metrics.connected(false)

	c.logger.Warn("connection lost", LogFields{LogFieldError: errString(err)})
	c.emit(s, &ConnectionLostError{Cause: err})
}

func (c *Client) startPing(interval time.Duration) {
	c.pingMu.Lock()
	defer c.pingMu.Unlock()

	if c.pingStop != nil {
		close(c.pingStop)
	}

	stop := make(chan struct{})
	c.pingStop = stop

	go c.keepAliveLoop(interval, stop)
}

func (c *Client) stopPing() {
	c.pingMu.Lock()
	defer c.pingMu.Unlock()

	if c.pingStop != nil {
		close(c.pingStop)
		c.pingStop = nil
	}
}

// keepAliveLoop sends PINGREQ packets until stop is closed.
func (c *Client) keepAliveLoop(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !c.open.Load() {
				return
			}
			if !c.IsConnected() {
				continue
			}

			if err := c.Ping(); err != nil && !errors.Is(err, ErrNotConnected) {
				c.logger.Warn("keepalive ping failed", LogFields{LogFieldError: err.Error()})
			}
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
