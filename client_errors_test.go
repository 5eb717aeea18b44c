package mqttv3

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventMatching(t *testing.T) {
	tests := []struct {
		name     string
		event    error
		sentinel error
		text     string
	}{
		{"connected", &ConnectedEvent{}, ErrConnected, "connected"},
		{"refused", &ConnectError{ReturnCode: ConnectRefusedNotAuthorized}, ErrConnectionRefused, "connect refused: not authorized"},
		{"published", &PublishedEvent{PacketID: 7}, ErrPublished, "published: packet id 7"},
		{"subscribed", &SubscribedEvent{PacketID: 8}, ErrSubscribed, "subscribed: packet id 8"},
		{"unsubscribed", &UnsubscribedEvent{PacketID: 9}, ErrUnsubscribed, "unsubscribed: packet id 9"},
		{"message", &MessageEvent{Message: &Message{Topic: "a/b"}}, ErrMessageReceived, "message received: a/b"},
		{"lost", &ConnectionLostError{Cause: io.EOF}, ErrConnectionLost, "connection lost: EOF"},
		{"lost without cause", &ConnectionLostError{}, ErrConnectionLost, "connection lost"},
		{"packet", &PacketError{PacketType: PacketPUBACK, Err: ErrMalformedPacket}, ErrMalformedPacket, "PUBACK: mqttv3: malformed packet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.event, tt.sentinel)
			assert.Equal(t, tt.text, tt.event.Error())
		})
	}
}

func TestEventSentinelsDistinct(t *testing.T) {
	events := []error{
		ErrConnected, ErrPublished, ErrSubscribed, ErrUnsubscribed,
		ErrMessageReceived, ErrPingResponse, ErrConnectionLost,
	}

	for i, a := range events {
		for j, b := range events {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v matches %v", a, b)
			}
		}
	}
}

func TestSubscribedEventFailed(t *testing.T) {
	ev := &SubscribedEvent{ReturnCodes: []SubackCode{SubackMaxQoS0, SubackFailure, SubackMaxQoS2, SubackFailure}}
	assert.Equal(t, []int{1, 3}, ev.Failed())

	ev = &SubscribedEvent{ReturnCodes: []SubackCode{SubackMaxQoS1}}
	assert.Empty(t, ev.Failed())
}
