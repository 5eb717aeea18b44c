package mqttv3

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishPacketType(t *testing.T) {
	p := &PublishPacket{}
	assert.Equal(t, PacketPUBLISH, p.Type())

	p.SetPacketID(7)
	assert.Equal(t, uint16(7), p.GetPacketID())
}

func TestPublishPacketQoS1Layout(t *testing.T) {
	p := &PublishPacket{
		Topic:    "/test/val",
		Payload:  []byte(`{"val": 2}`),
		QoS:      QoS1,
		PacketID: 1,
	}

	var buf bytes.Buffer
	_, err := p.Encode(&buf)
	require.NoError(t, err)

	data := buf.Bytes()
	assert.Equal(t, byte(0x32), data[0])
	assert.Equal(t, byte(2+9+2+10), data[1])
	assert.Equal(t, []byte{0x00, 0x09}, data[2:4])
	assert.Equal(t, "/test/val", string(data[4:13]))
	assert.Equal(t, []byte{0x00, 0x01}, data[13:15], "packet id follows topic")
	assert.Equal(t, `{"val": 2}`, string(data[15:]))
}

func TestPublishPacketQoS0Layout(t *testing.T) {
	p := &PublishPacket{
		Topic:   "/test/val",
		Payload: []byte(`{"val": 2}`),
	}

	var buf bytes.Buffer
	_, err := p.Encode(&buf)
	require.NoError(t, err)

	data := buf.Bytes()
	assert.Equal(t, byte(0x30), data[0])
	assert.Equal(t, byte(2+9+10), data[1])
	assert.Equal(t, `{"val": 2}`, string(data[13:]), "no packet id at qos 0")
}

func TestPublishPacketEncodeDecode(t *testing.T) {
	tests := []struct {
		name   string
		packet PublishPacket
	}{
		{"qos0", PublishPacket{Topic: "a/b", Payload: []byte("hello")}},
		{"qos0 empty payload", PublishPacket{Topic: "a/b"}},
		{"qos1 retain", PublishPacket{Topic: "a/b", Payload: []byte("x"), QoS: 1, PacketID: 10, Retain: true}},
		{"qos2 dup", PublishPacket{Topic: "a/b", Payload: []byte("x"), QoS: 2, PacketID: 65535, DUP: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			_, err := tt.packet.Encode(&buf)
			require.NoError(t, err)

			var header FixedHeader
			_, err = header.Decode(&buf)
			require.NoError(t, err)

			var decoded PublishPacket
			n, err := decoded.Decode(&buf, header)
			require.NoError(t, err)
			assert.Equal(t, int(header.RemainingLength), n)
			assert.Equal(t, tt.packet, decoded)
		})
	}
}

func TestPublishPacketValidate(t *testing.T) {
	tests := []struct {
		name   string
		packet PublishPacket
		err    error
	}{
		{"valid", PublishPacket{Topic: "a"}, nil},
		{"qos 3", PublishPacket{Topic: "a", QoS: 3, PacketID: 1}, ErrInvalidQoS},
		{"dup at qos 0", PublishPacket{Topic: "a", DUP: true}, ErrDUPWithQoSZero},
		{"missing packet id", PublishPacket{Topic: "a", QoS: 1}, ErrPacketIDRequired},
		{"wildcard topic", PublishPacket{Topic: "a/+"}, ErrInvalidTopicName},
		{"empty topic", PublishPacket{}, ErrEmptyTopic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.packet.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestPublishPacketDecodeTooShort(t *testing.T) {
	// remaining length covers the topic but not the packet id
	body := []byte{0x00, 0x01, 'a', 0x00}
	header := FixedHeader{PacketType: PacketPUBLISH, Flags: 0x02, RemainingLength: 3}

	var p PublishPacket
	_, err := p.Decode(bytes.NewReader(body), header)
	assert.ErrorIs(t, err, ErrPublishTooShort)
}

func TestPublishPacketMessage(t *testing.T) {
	p := &PublishPacket{Topic: "a", Payload: []byte("b"), QoS: 1, PacketID: 3, Retain: true}
	msg := p.ToMessage()

	var back PublishPacket
	back.FromMessage(msg)
	assert.Equal(t, *p, back)

	clone := msg.Clone()
	clone.Payload[0] = 'z'
	assert.Equal(t, byte('b'), msg.Payload[0])

	var nilMsg *Message
	assert.Nil(t, nilMsg.Clone())
}
