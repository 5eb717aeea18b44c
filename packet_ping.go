package mqttv3

import (
	"errors"
	"io"
)

// ErrNonEmptyBody is returned when a packet that has no variable header
// arrives with a non-zero remaining length.
var ErrNonEmptyBody = errors.New("packet must have zero remaining length")

// decodeEmpty checks the header of a packet with no body.
func decodeEmpty(header FixedHeader, packetType PacketType) (int, error) {
	if header.PacketType != packetType {
		return 0, ErrInvalidPacketType
	}
	if header.Flags != 0x00 {
		return 0, ErrInvalidPacketFlags
	}
	if header.RemainingLength != 0 {
		return 0, ErrNonEmptyBody
	}
	return 0, nil
}

// PingreqPacket represents an MQTT PINGREQ packet.
type PingreqPacket struct{}

// Type returns the packet type.
func (p *PingreqPacket) Type() PacketType { return PacketPINGREQ }

func (p *PingreqPacket) accept(v packetVisitor) { v.visitPingreq(p) }

// Encode writes the packet to the writer.
func (p *PingreqPacket) Encode(w io.Writer) (int, error) {
	return encodePacket(w, PacketPINGREQ, 0x00, nil)
}

// Decode reads the packet from the reader.
func (p *PingreqPacket) Decode(_ io.Reader, header FixedHeader) (int, error) {
	return decodeEmpty(header, PacketPINGREQ)
}

// Validate validates the packet contents.
func (p *PingreqPacket) Validate() error {
	return nil
}

// PingrespPacket represents an MQTT PINGRESP packet.
type PingrespPacket struct{}

// Type returns the packet type.
func (p *PingrespPacket) Type() PacketType { return PacketPINGRESP }

func (p *PingrespPacket) accept(v packetVisitor) { v.visitPingresp(p) }

// Encode writes the packet to the writer.
func (p *PingrespPacket) Encode(w io.Writer) (int, error) {
	return encodePacket(w, PacketPINGRESP, 0x00, nil)
}

// Decode reads the packet from the reader.
func (p *PingrespPacket) Decode(_ io.Reader, header FixedHeader) (int, error) {
	return decodeEmpty(header, PacketPINGRESP)
}

// Validate validates the packet contents.
func (p *PingrespPacket) Validate() error {
	return nil
}
