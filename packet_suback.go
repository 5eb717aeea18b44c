package mqttv3

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrInvalidSubackCode is returned for SUBACK return codes other than
// 0x00, 0x01, 0x02 and 0x80.
var ErrInvalidSubackCode = errors.New("invalid SUBACK return code")

// SubackCode is the per-filter result in SUBACK.
type SubackCode byte

// SUBACK return codes.
const (
	SubackMaxQoS0 SubackCode = 0x00
	SubackMaxQoS1 SubackCode = 0x01
	SubackMaxQoS2 SubackCode = 0x02
	SubackFailure SubackCode = 0x80
)

// Success returns true if the broker accepted the subscription.
func (c SubackCode) Success() bool {
	return c <= SubackMaxQoS2
}

// GrantedQoS returns the QoS granted by the broker.
// It is only meaningful when Success is true.
func (c SubackCode) GrantedQoS() byte {
	return byte(c) & 0x03
}

// Valid returns true for the codes defined by MQTT 3.1.1.
func (c SubackCode) Valid() bool {
	return c.Success() || c == SubackFailure
}

// SubackPacket represents an MQTT SUBACK packet.
type SubackPacket struct {
	PacketID    uint16
	ReturnCodes []SubackCode
}

// Type returns the packet type.
func (p *SubackPacket) Type() PacketType { return PacketSUBACK }

func (p *SubackPacket) accept(v packetVisitor) { v.visitSuback(p) }

// GetPacketID returns the packet identifier.
func (p *SubackPacket) GetPacketID() uint16 { return p.PacketID }

// SetPacketID sets the packet identifier.
func (p *SubackPacket) SetPacketID(id uint16) { p.PacketID = id }

// Encode writes the packet to the writer.
func (p *SubackPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	body := binary.BigEndian.AppendUint16(make([]byte, 0, 2+len(p.ReturnCodes)), p.PacketID)
	for _, rc := range p.ReturnCodes {
		body = append(body, byte(rc))
	}

	return encodePacket(w, PacketSUBACK, 0x00, body)
}

// Decode reads the packet from the reader.
func (p *SubackPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketSUBACK {
		return 0, ErrInvalidPacketType
	}

	if header.RemainingLength < 2 {
		return 0, ErrInvalidAckLength
	}

	var totalRead int

	id, n, err := decodeUint16(r)
	totalRead += n
	if err != nil {
		return totalRead, err
	}
	p.PacketID = id

	codes := make([]byte, header.RemainingLength-2)
	n, err = io.ReadFull(r, codes)
	totalRead += n
	if err != nil {
		return totalRead, err
	}

	p.ReturnCodes = make([]SubackCode, len(codes))
	for i, c := range codes {
		p.ReturnCodes[i] = SubackCode(c)
	}

	return totalRead, nil
}

// Validate validates the packet contents.
func (p *SubackPacket) Validate() error {
	if p.PacketID == 0 {
		return ErrPacketIDRequired
	}

	if len(p.ReturnCodes) == 0 {
		return ErrNoTopics
	}

	for _, rc := range p.ReturnCodes {
		if !rc.Valid() {
			return ErrInvalidSubackCode
		}
	}

	return nil
}
