package mqttv3

import "io"

// PubackPacket acknowledges a QoS 1 PUBLISH.
type PubackPacket struct {
	PacketID uint16
}

// Type returns the packet type.
func (p *PubackPacket) Type() PacketType { return PacketPUBACK }

func (p *PubackPacket) accept(v packetVisitor) { v.visitPuback(p) }

// GetPacketID returns the packet identifier.
func (p *PubackPacket) GetPacketID() uint16 { return p.PacketID }

// SetPacketID sets the packet identifier.
func (p *PubackPacket) SetPacketID(id uint16) { p.PacketID = id }

// Encode writes the packet to the writer.
func (p *PubackPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	return encodeAck(w, PacketPUBACK, 0x00, p.PacketID)
}

// Decode reads the packet from the reader.
func (p *PubackPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	id, n, err := decodeAck(r, header, PacketPUBACK)
	p.PacketID = id
	return n, err
}

// Validate validates the packet contents.
func (p *PubackPacket) Validate() error {
	if p.PacketID == 0 {
		return ErrPacketIDRequired
	}
	return nil
}
