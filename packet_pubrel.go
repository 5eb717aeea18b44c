package mqttv3

import "io"

// PubrelPacket releases a QoS 2 message. It is sent with flags 0x02.
type PubrelPacket struct {
	PacketID uint16
}

// Type returns the packet type.
func (p *PubrelPacket) Type() PacketType { return PacketPUBREL }

func (p *PubrelPacket) accept(v packetVisitor) { v.visitPubrel(p) }

// GetPacketID returns the packet identifier.
func (p *PubrelPacket) GetPacketID() uint16 { return p.PacketID }

// SetPacketID sets the packet identifier.
func (p *PubrelPacket) SetPacketID(id uint16) { p.PacketID = id }

// Encode writes the packet to the writer.
func (p *PubrelPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	return encodeAck(w, PacketPUBREL, flagReserved, p.PacketID)
}

// Decode reads the packet from the reader.
func (p *PubrelPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	id, n, err := decodeAck(r, header, PacketPUBREL)
	p.PacketID = id
	return n, err
}

// Validate validates the packet contents.
func (p *PubrelPacket) Validate() error {
	if p.PacketID == 0 {
		return ErrPacketIDRequired
	}
	return nil
}
