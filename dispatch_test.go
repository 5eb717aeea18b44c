package mqttv3

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchQoS2Handshake(t *testing.T) {
	c, ft, rec := connectClient(t)

	ft.injectPacket(t, &PublishPacket{
		Topic:    "/test/qos2",
		Payload:  []byte("once"),
		QoS:      QoS2,
		PacketID: 42,
	})

	assert.Equal(t, []Packet{&PubrecPacket{PacketID: 42}}, ft.sentPackets(t))
	require.Equal(t, 1, rec.count(ErrMessageReceived))

	var msgEvent *MessageEvent
	require.ErrorAs(t, rec.all()[0], &msgEvent)
	assert.Equal(t, "/test/qos2", msgEvent.Message.Topic)
	assert.Equal(t, []byte("once"), msgEvent.Message.Payload)
	assert.Equal(t, uint16(42), msgEvent.Message.PacketID)

	ft.reset()
	ft.inject([]byte{0x62, 0x02, 0x00, 0x2A})

	assert.Equal(t, []Packet{&PubcompPacket{PacketID: 42}}, ft.sentPackets(t))
	assert.Equal(t, 1, rec.count(ErrMessageReceived), "PUBREL delivers nothing")
	assert.True(t, c.IsConnected())
}

func TestDispatchInboundQoS1(t *testing.T) {
	_, ft, rec := connectClient(t)

	ft.inject([]byte{
		0x32, 0x0F,
		0x00, 0x03, 'a', '/', 'b',
		0x00, 0x07,
		'p', 'a', 'y', 'l', 'o', 'a', 'd', '!',
	})

	assert.Equal(t, [][]byte{{0x40, 0x02, 0x00, 0x07}}, ft.sentBytes())
	assert.Equal(t, 1, rec.count(ErrMessageReceived))
}

func TestDispatchInboundQoS0(t *testing.T) {
	_, ft, rec := connectClient(t)

	ft.injectPacket(t, &PublishPacket{Topic: "a", Payload: []byte("x"), Retain: true})

	assert.Empty(t, ft.sentBytes())

	var msgEvent *MessageEvent
	require.Len(t, rec.all(), 1)
	require.ErrorAs(t, rec.all()[0], &msgEvent)
	assert.True(t, msgEvent.Message.Retain)
}

func TestDispatchOutboundQoS2(t *testing.T) {
	c, ft, rec := connectClient(t)

	id, err := c.Publish(QoS2, false, false, "a", []byte("x"))
	require.NoError(t, err)
	ft.reset()

	ft.injectPacket(t, &PubrecPacket{PacketID: id})
	assert.Equal(t, [][]byte{{0x62, 0x02, 0x00, 0x01}}, ft.sentBytes())

	ft.reset()
	ft.injectPacket(t, &PubcompPacket{PacketID: id})
	assert.Empty(t, ft.sentBytes())
	assert.Empty(t, rec.all())
}

func TestDispatchPuback(t *testing.T) {
	_, ft, rec := connectClient(t)

	ft.inject([]byte{0x40, 0x02, 0x01, 0x02})

	events := rec.all()
	require.Len(t, events, 1)
	assert.ErrorIs(t, events[0], ErrPublished)

	var pub *PublishedEvent
	require.ErrorAs(t, events[0], &pub)
	assert.Equal(t, uint16(0x0102), pub.PacketID)
}

func TestDispatchMultiplePackets(t *testing.T) {
	_, ft, rec := connectClient(t)

	data := []byte{
		0xD0, 0x00,
		0x40, 0x02, 0x00, 0x01,
		0xB0, 0x02, 0x00, 0x02,
	}
	ft.inject(data)

	events := rec.all()
	require.Len(t, events, 3)
	assert.ErrorIs(t, events[0], ErrPingResponse)
	assert.ErrorIs(t, events[1], ErrPublished)
	assert.ErrorIs(t, events[2], ErrUnsubscribed)
}

func TestDispatchMalformed(t *testing.T) {
	metrics := NewMemoryMetrics()
	_, ft, rec := connectClient(t, WithMetrics(metrics))

	// PUBACK with a 3 byte body, then a valid PINGRESP
	ft.inject([]byte{0x40, 0x03, 0x00, 0x01, 0x00, 0xD0, 0x00})

	events := rec.all()
	require.Len(t, events, 2)

	var pktErr *PacketError
	require.ErrorAs(t, events[0], &pktErr)
	assert.Equal(t, PacketPUBACK, pktErr.PacketType)
	assert.ErrorIs(t, events[0], ErrMalformedPacket)

	assert.ErrorIs(t, events[1], ErrPingResponse, "following packet still dispatched")
	assert.Equal(t, 1.0, metrics.CounterValue(MetricMalformedPackets, nil))
}

func TestDispatchInvalidFlags(t *testing.T) {
	_, ft, rec := connectClient(t)

	// PUBREL must carry flags 0x02
	ft.inject([]byte{0x60, 0x02, 0x00, 0x01})

	events := rec.all()
	require.Len(t, events, 1)
	assert.ErrorIs(t, events[0], ErrMalformedPacket)
	assert.Empty(t, ft.sentBytes(), "no PUBCOMP for a malformed PUBREL")
}

func TestDispatchInvalidContents(t *testing.T) {
	tests := []struct {
		name       string
		data       []byte
		packetType PacketType
		cause      error
	}{
		{"qos1 publish without id", []byte{0x32, 0x06, 0x00, 0x01, 'a', 0x00, 0x00, 'x'}, PacketPUBLISH, ErrPacketIDRequired},
		{"qos2 publish without id", []byte{0x34, 0x06, 0x00, 0x01, 'a', 0x00, 0x00, 'x'}, PacketPUBLISH, ErrPacketIDRequired},
		{"publish with empty topic", []byte{0x30, 0x03, 0x00, 0x00, 'x'}, PacketPUBLISH, ErrEmptyTopic},
		{"publish with wildcard topic", []byte{0x30, 0x03, 0x00, 0x01, '#'}, PacketPUBLISH, ErrInvalidTopicName},
		{"dup on qos0 publish", []byte{0x38, 0x04, 0x00, 0x01, 'a', 'x'}, PacketPUBLISH, ErrDUPWithQoSZero},
		{"refused connack with session present", []byte{0x20, 0x02, 0x01, 0x05}, PacketCONNACK, ErrInvalidConnackFlags},
		{"suback without return codes", []byte{0x90, 0x02, 0x00, 0x01}, PacketSUBACK, ErrNoTopics},
		{"suback with reserved code", []byte{0x90, 0x03, 0x00, 0x01, 0x03}, PacketSUBACK, ErrInvalidSubackCode},
		{"puback without id", []byte{0x40, 0x02, 0x00, 0x00}, PacketPUBACK, ErrPacketIDRequired},
		{"pubrel without id", []byte{0x62, 0x02, 0x00, 0x00}, PacketPUBREL, ErrPacketIDRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := NewMemoryMetrics()
			c, ft, rec := connectClient(t, WithMetrics(metrics))

			// a PINGRESP follows so the skip is observable
			ft.inject(append(tt.data, 0xD0, 0x00))

			events := rec.all()
			require.Len(t, events, 2)

			var pktErr *PacketError
			require.ErrorAs(t, events[0], &pktErr)
			assert.Equal(t, tt.packetType, pktErr.PacketType)
			assert.ErrorIs(t, events[0], ErrMalformedPacket)
			assert.ErrorIs(t, events[0], tt.cause)
			assert.ErrorIs(t, events[1], ErrPingResponse)

			assert.Zero(t, rec.count(ErrMessageReceived))
			assert.Empty(t, ft.sentBytes(), "nothing acknowledged")
			assert.True(t, c.IsConnected())
			assert.Equal(t, 1.0, metrics.CounterValue(MetricMalformedPackets, nil))
		})
	}
}

func TestDispatchTruncated(t *testing.T) {
	_, ft, rec := connectClient(t)

	ft.inject([]byte{0x30, 0x0A, 0x00, 0x01})

	events := rec.all()
	require.Len(t, events, 1)
	assert.ErrorIs(t, events[0], ErrMalformedPacket)
	assert.ErrorIs(t, events[0], ErrShortBuffer)
}

func TestDispatchBadRemainingLength(t *testing.T) {
	_, ft, rec := connectClient(t)

	ft.inject([]byte{0x30, 0xFF, 0xFF, 0xFF, 0xFF, 0x01, 0xD0, 0x00})

	events := rec.all()
	require.Len(t, events, 1, "rest of buffer dropped")
	assert.ErrorIs(t, events[0], ErrMalformedRemainingLength)
}

func TestDispatchUnknownType(t *testing.T) {
	_, ft, rec := connectClient(t)

	// type 15 is reserved in 3.1.1, followed by a PINGRESP
	ft.inject([]byte{0xF0, 0x00, 0xD0, 0x00})

	assert.Equal(t, []error{ErrPingResponse}, rec.all())
}

func TestDispatchBrokerBoundPackets(t *testing.T) {
	_, ft, rec := connectClient(t)

	ft.injectPacket(t, &PingreqPacket{})
	ft.injectPacket(t, &DisconnectPacket{})
	ft.injectPacket(t, &SubscribePacket{PacketID: 1, Subscriptions: []Subscription{{TopicFilter: "a"}}})
	ft.injectPacket(t, &UnsubscribePacket{PacketID: 1, TopicFilters: []string{"a"}})
	ft.injectPacket(t, &ConnectPacket{ClientID: "other"})

	assert.Empty(t, rec.all())
	assert.Empty(t, ft.sentBytes())
}

func TestDispatchAckSendFailure(t *testing.T) {
	_, ft, rec := connectClient(t)
	ft.setSendErr(io.ErrClosedPipe)

	ft.injectPacket(t, &PublishPacket{Topic: "a", QoS: QoS1, PacketID: 5})

	events := rec.all()
	require.Len(t, events, 2)
	assert.ErrorIs(t, events[0], ErrMessageReceived)

	var pktErr *PacketError
	require.ErrorAs(t, events[1], &pktErr)
	assert.Equal(t, PacketPUBACK, pktErr.PacketType)
	assert.ErrorIs(t, events[1], ErrTransportFailure)
}

func TestDispatchBeforeInit(t *testing.T) {
	c := NewClient(&fakeTransport{})
	assert.NotPanics(t, func() {
		c.receive([]byte{0xD0, 0x00})
	})
}

func TestDispatchWithoutHandler(t *testing.T) {
	ft := &fakeTransport{}
	c := NewClient(ft)
	require.NoError(t, c.Init(LogLevelNone))
	require.NoError(t, c.Connect(context.Background(), &ConnectConfig{ClientID: "a"}, 0))

	assert.NotPanics(t, func() {
		ft.inject([]byte{0x20, 0x02, 0x00, 0x00})
	})
	assert.True(t, c.IsConnected())
}

func TestDispatchMetrics(t *testing.T) {
	metrics := NewMemoryMetrics()
	c, ft, _ := connectClient(t, WithMetrics(metrics))

	_, err := c.Publish(QoS1, false, false, "a", []byte("xyz"))
	require.NoError(t, err)
	ft.injectPacket(t, &PublishPacket{Topic: "a", Payload: []byte("12345")})

	snapshot := metrics.Snapshot()
	assert.NotEmpty(t, snapshot)
	assert.Equal(t, 1.0, metrics.GaugeValue(MetricConnected, nil))
}
