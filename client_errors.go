package mqttv3

import (
	"errors"
	"fmt"
)

// EventHandler receives client events. It runs synchronously on the
// transport's receive goroutine, once per event, and must not block; hand
// long work to another goroutine. Events are error values: match the kind
// with errors.Is against the sentinels below and extract details with
// errors.As.
type EventHandler func(client *Client, event error)

// Sentinel events - check with errors.Is().
var (
	// ErrConnected is emitted when the broker accepts the connection.
	ErrConnected = errors.New("connected")

	// ErrPublished is emitted when a QoS 1 publish is acknowledged.
	ErrPublished = errors.New("published")

	// ErrSubscribed is emitted when SUBACK arrives.
	ErrSubscribed = errors.New("subscribed")

	// ErrUnsubscribed is emitted when UNSUBACK arrives.
	ErrUnsubscribed = errors.New("unsubscribed")

	// ErrMessageReceived is emitted for every inbound PUBLISH.
	ErrMessageReceived = errors.New("message received")

	// ErrPingResponse is emitted when PINGRESP arrives.
	ErrPingResponse = errors.New("ping response")

	// ErrConnectionLost is emitted when the transport reports the connection
	// closed without a DISCONNECT from this client.
	ErrConnectionLost = errors.New("connection lost")
)

// Sentinel errors - check with errors.Is().
var (
	// ErrNotInitialized is returned by every operation before Init.
	ErrNotInitialized = errors.New("client not initialized")

	// ErrNotConnected is returned when no connection was requested yet or a
	// DISCONNECT was already sent.
	ErrNotConnected = errors.New("not connected")

	// ErrConnectionRefused is wrapped by ConnectError.
	ErrConnectionRefused = errors.New("connection refused")

	// ErrTransportFailure wraps errors returned by the transport.
	ErrTransportFailure = errors.New("transport failure")
)

// ConnectedEvent contains details about an accepted connection.
// Extract with errors.As().
type ConnectedEvent struct {
	SessionPresent bool
}

func (e *ConnectedEvent) Error() string { return ErrConnected.Error() }
func (e *ConnectedEvent) Unwrap() error { return ErrConnected }

// ConnectError is emitted when CONNACK carries a refusal return code.
// Extract with errors.As().
type ConnectError struct {
	ReturnCode ConnectReturnCode
}

func (e *ConnectError) Error() string {
	return "connect refused: " + e.ReturnCode.String()
}

func (e *ConnectError) Unwrap() error { return ErrConnectionRefused }

// PublishedEvent reports a PUBACK for a QoS 1 publish.
type PublishedEvent struct {
	PacketID uint16
}

func (e *PublishedEvent) Error() string {
	return fmt.Sprintf("%s: packet id %d", ErrPublished, e.PacketID)
}

func (e *PublishedEvent) Unwrap() error { return ErrPublished }

// SubscribedEvent reports a SUBACK. ReturnCodes is ordered like the
// filters of the SUBSCRIBE it answers.
type SubscribedEvent struct {
	PacketID    uint16
	ReturnCodes []SubackCode
}

func (e *SubscribedEvent) Error() string {
	return fmt.Sprintf("%s: packet id %d", ErrSubscribed, e.PacketID)
}

func (e *SubscribedEvent) Unwrap() error { return ErrSubscribed }

// Failed returns the indexes of filters the broker rejected.
func (e *SubscribedEvent) Failed() []int {
	var failed []int
	for i, rc := range e.ReturnCodes {
		if !rc.Success() {
			failed = append(failed, i)
		}
	}
	return failed
}

// UnsubscribedEvent reports an UNSUBACK.
type UnsubscribedEvent struct {
	PacketID uint16
}

func (e *UnsubscribedEvent) Error() string {
	return fmt.Sprintf("%s: packet id %d", ErrUnsubscribed, e.PacketID)
}

func (e *UnsubscribedEvent) Unwrap() error { return ErrUnsubscribed }

// MessageEvent carries an inbound application message.
type MessageEvent struct {
	Message *Message
}

func (e *MessageEvent) Error() string {
	return fmt.Sprintf("%s: %s", ErrMessageReceived, e.Message.Topic)
}

func (e *MessageEvent) Unwrap() error { return ErrMessageReceived }

// ConnectionLostError contains details about an unexpected disconnection.
// Extract with errors.As().
type ConnectionLostError struct {
	Cause error
}

func (e *ConnectionLostError) Error() string {
	if e.Cause != nil {
		return "connection lost: " + e.Cause.Error()
	}
	return "connection lost"
}

func (e *ConnectionLostError) Unwrap() error { return ErrConnectionLost }

// PacketError reports an inbound packet that was dropped, or an
// acknowledgment that could not be sent. Err wraps ErrMalformedPacket or
// ErrTransportFailure.
type PacketError struct {
	PacketType PacketType
	Err        error
}

func (e *PacketError) Error() string {
	return e.PacketType.String() + ": " + e.Err.Error()
}

func (e *PacketError) Unwrap() error { return e.Err }
