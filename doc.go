// Package mqttv3 provides an MQTT 3.1.1 client protocol engine.
//
// This package implements the MQTT Version 3.1.1 OASIS Standard:
// https://docs.oasis-open.org/mqtt/mqtt/v3.1.1/mqtt-v3.1.1.html
//
// # Features
//
//   - All 14 MQTT 3.1.1 control packet types
//   - Remaining length codec and packet identifier allocation
//   - QoS 0, 1, 2 receive handshakes (PUBACK, PUBREC/PUBREL/PUBCOMP)
//   - Topic matching with wildcard support (+, #)
//   - Transport: TCP, WebSocket, Unix socket, HTTP CONNECT and SOCKS5 proxies
//
// # Packet Types
//
// Use ReadPacket and WritePacket to read/write packets from/to connections:
//
//	// Read a packet
//	pkt, n, err := mqttv3.ReadPacket(conn, maxPacketSize)
//
//	// Write a packet
//	n, err := mqttv3.WritePacket(conn, packet, maxPacketSize)
//
// ParsePacket decodes a packet from a byte slice.
//
// # Client
//
// Client builds control packets, hands them to a Transport and dispatches
// inbound packets to an EventHandler:
//
//	transport := mqttv3.NewStreamTransport(nil)
//	client := mqttv3.NewClient(transport)
//	client.Init(mqttv3.LogLevelInfo)
//
//	err := client.Connect(ctx, &mqttv3.ConnectConfig{
//	    Address:  "test.mosquitto.org",
//	    Port:     1883,
//	    ClientID: "MAMA12354",
//	    OnEvent: func(c *mqttv3.Client, ev error) {
//	        if errors.Is(ev, mqttv3.ErrConnected) {
//	            c.Subscribe(mqttv3.Subscription{TopicFilter: "/test/#", QoS: 1})
//	        }
//	    },
//	}, 60)
//
// Events are error values. Match them with errors.Is against ErrConnected,
// ErrPublished, ErrSubscribed, ErrUnsubscribed, ErrMessageReceived,
// ErrPingResponse, ErrConnectionRefused and ErrConnectionLost, and extract
// details with errors.As. The handler runs on the transport's receive
// goroutine and must not block.
//
// The client does not retransmit unacknowledged publishes and does not
// reconnect; reacting to ErrConnectionLost is left to the caller.
package mqttv3
