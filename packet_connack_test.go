package mqttv3

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectReturnCodeString(t *testing.T) {
	tests := []struct {
		code     ConnectReturnCode
		expected string
		valid    bool
	}{
		{ConnectAccepted, "connection accepted", true},
		{ConnectRefusedProtocolVersion, "unacceptable protocol version", true},
		{ConnectRefusedIdentifierRejected, "identifier rejected", true},
		{ConnectRefusedServerUnavailable, "server unavailable", true},
		{ConnectRefusedBadUsernamePassword, "bad user name or password", true},
		{ConnectRefusedNotAuthorized, "not authorized", true},
		{ConnectReturnCode(6), "unknown return code 0x06", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.code.String())
		assert.Equal(t, tt.valid, tt.code.Valid())
	}
}

func TestConnackPacketEncodeDecode(t *testing.T) {
	tests := []struct {
		name   string
		packet ConnackPacket
		bytes  []byte
	}{
		{"accepted", ConnackPacket{ReturnCode: ConnectAccepted}, []byte{0x20, 0x02, 0x00, 0x00}},
		{"session present", ConnackPacket{SessionPresent: true}, []byte{0x20, 0x02, 0x01, 0x00}},
		{"not authorized", ConnackPacket{ReturnCode: ConnectRefusedNotAuthorized}, []byte{0x20, 0x02, 0x00, 0x05}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			_, err := tt.packet.Encode(&buf)
			require.NoError(t, err)
			assert.Equal(t, tt.bytes, buf.Bytes())

			var header FixedHeader
			_, err = header.Decode(&buf)
			require.NoError(t, err)

			var decoded ConnackPacket
			_, err = decoded.Decode(&buf, header)
			require.NoError(t, err)
			assert.Equal(t, tt.packet, decoded)
		})
	}
}

func TestConnackPacketDecodeErrors(t *testing.T) {
	var p ConnackPacket

	_, err := p.Decode(bytes.NewReader([]byte{0x00, 0x00, 0x00}), FixedHeader{PacketType: PacketCONNACK, RemainingLength: 3})
	assert.ErrorIs(t, err, ErrInvalidConnackLength)

	_, err = p.Decode(bytes.NewReader([]byte{0x02, 0x00}), FixedHeader{PacketType: PacketCONNACK, RemainingLength: 2})
	assert.ErrorIs(t, err, ErrInvalidConnackFlags)
}

func TestConnackPacketValidate(t *testing.T) {
	p := ConnackPacket{SessionPresent: true, ReturnCode: ConnectRefusedServerUnavailable}
	assert.ErrorIs(t, p.Validate(), ErrInvalidConnackFlags)
}
