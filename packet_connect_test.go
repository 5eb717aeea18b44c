package mqttv3

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectPacketType(t *testing.T) {
	p := &ConnectPacket{}
	assert.Equal(t, PacketCONNECT, p.Type())
}

func TestConnectPacketEncodeMinimal(t *testing.T) {
	p := &ConnectPacket{
		ClientID:  "MAMA12354",
		KeepAlive: 60,
	}

	var buf bytes.Buffer
	_, err := p.Encode(&buf)
	require.NoError(t, err)

	expected := []byte{
		0x10, 0x15, // CONNECT, remaining length 21
		0x00, 0x04, 'M', 'Q', 'T', 'T', // protocol name
		0x04,       // protocol level
		0x00,       // connect flags
		0x00, 0x3C, // keepalive 60
		0x00, 0x09, 'M', 'A', 'M', 'A', '1', '2', '3', '5', '4',
	}
	assert.Equal(t, expected, buf.Bytes())
}

func TestConnectPacketFlags(t *testing.T) {
	p := &ConnectPacket{
		ClientID:     "client1",
		CleanSession: true,
		Username:     "user",
		Password:     []byte("pass"),
		WillFlag:     true,
		WillQoS:      2,
		WillRetain:   true,
		WillTopic:    "status/client1",
		WillMessage:  []byte("offline"),
	}

	assert.Equal(t, byte(0x80|0x40|0x20|0x10|0x04|0x02), p.connectFlags())

	p.Password = nil
	assert.Equal(t, byte(0x80|0x20|0x10|0x04|0x02), p.connectFlags())
}

func TestConnectPacketPayloadOrder(t *testing.T) {
	p := &ConnectPacket{
		ClientID:    "c",
		Username:    "u",
		Password:    []byte("p"),
		WillFlag:    true,
		WillTopic:   "t",
		WillMessage: []byte("m"),
	}

	body, err := p.appendBody(nil)
	require.NoError(t, err)

	// after the 10 byte variable header: client id, will topic, will message, username, password
	assert.Equal(t, []byte{
		0x00, 0x01, 'c',
		0x00, 0x01, 't',
		0x00, 0x01, 'm',
		0x00, 0x01, 'u',
		0x00, 0x01, 'p',
	}, body[10:])
}

func TestConnectPacketEncodeDecode(t *testing.T) {
	tests := []struct {
		name   string
		packet ConnectPacket
	}{
		{
			name:   "minimal",
			packet: ConnectPacket{ClientID: "abc", KeepAlive: 30},
		},
		{
			name: "with credentials",
			packet: ConnectPacket{
				ClientID:     "abc",
				CleanSession: true,
				Username:     "user",
				Password:     []byte("secret"),
			},
		},
		{
			name: "with will",
			packet: ConnectPacket{
				ClientID:    "abc",
				WillFlag:    true,
				WillQoS:     1,
				WillRetain:  true,
				WillTopic:   "will/topic",
				WillMessage: []byte("bye"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			_, err := tt.packet.Encode(&buf)
			require.NoError(t, err)

			var header FixedHeader
			_, err = header.Decode(&buf)
			require.NoError(t, err)

			var decoded ConnectPacket
			n, err := decoded.Decode(&buf, header)
			require.NoError(t, err)
			assert.Equal(t, int(header.RemainingLength), n)
			assert.Equal(t, tt.packet, decoded)
		})
	}
}

func TestConnectPacketValidate(t *testing.T) {
	tests := []struct {
		name   string
		packet ConnectPacket
		err    error
	}{
		{"valid", ConnectPacket{ClientID: "MAMA12354"}, nil},
		{"empty client id", ConnectPacket{}, ErrBadClientIdent},
		{"long client id", ConnectPacket{ClientID: "abcdefghijklmnopqrstuvw"}, ErrBadClientIdent},
		{"client id with slash", ConnectPacket{ClientID: "a/b"}, ErrBadClientIdent},
		{"will qos 3", ConnectPacket{ClientID: "a", WillFlag: true, WillQoS: 3, WillTopic: "t", WillMessage: []byte("m")}, ErrInvalidQoS},
		{"will retain without will", ConnectPacket{ClientID: "a", WillRetain: true}, ErrInvalidConnectFlags},
		{"will without message", ConnectPacket{ClientID: "a", WillFlag: true, WillTopic: "t"}, ErrIncompleteWill},
		{"will with wildcard", ConnectPacket{ClientID: "a", WillFlag: true, WillTopic: "t/#", WillMessage: []byte("m")}, ErrInvalidTopicName},
		{"password without username", ConnectPacket{ClientID: "a", Password: []byte("p")}, ErrPasswordWithoutUsername},
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

func TestConnectPacketDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		body []byte
		err  error
	}{
		{"protocol name", []byte{0x00, 0x04, 'M', 'Q', 'I', 's', 0x04, 0x00, 0x00, 0x00}, ErrInvalidProtocolName},
		{"protocol level 5", []byte{0x00, 0x04, 'M', 'Q', 'T', 'T', 0x05, 0x00, 0x00, 0x00}, ErrInvalidProtocolVersion},
		{"reserved flag", []byte{0x00, 0x04, 'M', 'Q', 'T', 'T', 0x04, 0x01, 0x00, 0x00}, ErrInvalidConnectFlags},
		{"password without username", []byte{0x00, 0x04, 'M', 'Q', 'T', 'T', 0x04, 0x40, 0x00, 0x00}, ErrPasswordWithoutUsername},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := FixedHeader{PacketType: PacketCONNECT, RemainingLength: uint32(len(tt.body))}
			var p ConnectPacket
			_, err := p.Decode(bytes.NewReader(tt.body), header)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
