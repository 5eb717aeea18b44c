package mqttv3

import (
	"errors"
	"io"
)

// ErrInvalidAckLength is returned when an acknowledgment body is not exactly
// a 2-byte packet identifier.
var ErrInvalidAckLength = errors.New("acknowledgment remaining length must be 2")

// encodeAck encodes an acknowledgment packet carrying only a packet identifier
// (PUBACK, PUBREC, PUBREL, PUBCOMP, UNSUBACK).
func encodeAck(w io.Writer, packetType PacketType, flags byte, packetID uint16) (int, error) {
	return encodePacket(w, packetType, flags, []byte{byte(packetID >> 8), byte(packetID)})
}

// decodeAck decodes the packet identifier of an acknowledgment packet.
func decodeAck(r io.Reader, header FixedHeader, packetType PacketType) (uint16, int, error) {
	if header.PacketType != packetType {
		return 0, 0, ErrInvalidPacketType
	}

	if header.RemainingLength != 2 {
		return 0, 0, ErrInvalidAckLength
	}

	return decodeUint16(r)
}
