package mqttv3

import "io"

// PubcompPacket completes the QoS 2 exchange.
type PubcompPacket struct {
	PacketID uint16
}

// Type returns the packet type.
func (p *PubcompPacket) Type() PacketType { return PacketPUBCOMP }

func (p *PubcompPacket) accept(v packetVisitor) { v.visitPubcomp(p) }

// GetPacketID returns the packet identifier.
func (p *PubcompPacket) GetPacketID() uint16 { return p.PacketID }

// SetPacketID sets the packet identifier.
func (p *PubcompPacket) SetPacketID(id uint16) { p.PacketID = id }

// Encode writes the packet to the writer.
func (p *PubcompPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	return encodeAck(w, PacketPUBCOMP, 0x00, p.PacketID)
}

// Decode reads the packet from the reader.
func (p *PubcompPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	id, n, err := decodeAck(r, header, PacketPUBCOMP)
	p.PacketID = id
	return n, err
}

// Validate validates the packet contents.
func (p *PubcompPacket) Validate() error {
	if p.PacketID == 0 {
		return ErrPacketIDRequired
	}
	return nil
}
