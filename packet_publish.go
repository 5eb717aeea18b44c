package mqttv3

import (
	"encoding/binary"
	"errors"
	"io"
)

// QoS levels.
const (
	QoS0 byte = 0 // at most once
	QoS1 byte = 1 // at least once
	QoS2 byte = 2 // exactly once
)

// PUBLISH packet errors.
var (
	ErrInvalidQoS       = errors.New("invalid QoS level")
	ErrPacketIDRequired = errors.New("packet identifier required for QoS > 0")
	ErrPublishTooShort  = errors.New("PUBLISH remaining length shorter than its headers")
	ErrDUPWithQoSZero   = errors.New("DUP flag set on QoS 0 PUBLISH")
)

// PublishPacket represents an MQTT PUBLISH packet.
type PublishPacket struct {
	// Topic is the topic name.
	Topic string

	// Payload is the application message. It is sent without a length prefix.
	Payload []byte

	// QoS is the Quality of Service level (0, 1, or 2).
	QoS byte

	// Retain indicates if the message should be retained.
	Retain bool

	// DUP indicates if this is a retransmission.
	DUP bool

	// PacketID is the packet identifier (only for QoS > 0).
	PacketID uint16
}

// Type returns the packet type.
func (p *PublishPacket) Type() PacketType {
	return PacketPUBLISH
}

func (p *PublishPacket) accept(v packetVisitor) { v.visitPublish(p) }

// GetPacketID returns the packet identifier.
func (p *PublishPacket) GetPacketID() uint16 {
	return p.PacketID
}

// SetPacketID sets the packet identifier.
func (p *PublishPacket) SetPacketID(id uint16) {
	p.PacketID = id
}

// flags returns the fixed header flags.
func (p *PublishPacket) flags() byte {
	var h FixedHeader
	h.SetDUP(p.DUP)
	h.SetQoS(p.QoS)
	h.SetRetain(p.Retain)
	return h.Flags
}

// setFlags parses the fixed header flags.
func (p *PublishPacket) setFlags(h FixedHeader) {
	p.DUP = h.DUP()
	p.QoS = h.QoS()
	p.Retain = h.Retain()
}

// Encode writes the packet to the writer.
func (p *PublishPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	body, _, err := appendString(make([]byte, 0, 4+len(p.Topic)+len(p.Payload)), p.Topic)
	if err != nil {
		return 0, err
	}

	if p.QoS > 0 {
		body = binary.BigEndian.AppendUint16(body, p.PacketID)
	}

	body = append(body, p.Payload...)

	return encodePacket(w, PacketPUBLISH, p.flags(), body)
}

// Decode reads the packet from the reader.
// The payload length is the remaining length minus the topic field and,
// for QoS > 0, the packet identifier.
func (p *PublishPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketPUBLISH {
		return 0, ErrInvalidPacketType
	}

	p.setFlags(header)

	if p.QoS > 2 {
		return 0, ErrInvalidQoS
	}

	var totalRead int

	topic, n, err := decodeString(r)
	totalRead += n
	if err != nil {
		return totalRead, err
	}
	p.Topic = topic

	if p.QoS > 0 {
		p.PacketID, n, err = decodeUint16(r)
		totalRead += n
		if err != nil {
			return totalRead, err
		}
	}

	payloadLen := int(header.RemainingLength) - totalRead
	if payloadLen < 0 {
		return totalRead, ErrPublishTooShort
	}

	if payloadLen > 0 {
		p.Payload = make([]byte, payloadLen)
		n, err = io.ReadFull(r, p.Payload)
		totalRead += n
		if err != nil {
			return totalRead, err
		}
	}

	return totalRead, nil
}

// Validate validates the packet contents.
func (p *PublishPacket) Validate() error {
	if p.QoS > 2 {
		return ErrInvalidQoS
	}

	if p.QoS == 0 && p.DUP {
		return ErrDUPWithQoSZero
	}

	if p.QoS > 0 && p.PacketID == 0 {
		return ErrPacketIDRequired
	}

	return ValidateTopicName(p.Topic)
}

// ToMessage converts the PUBLISH packet to a Message.
func (p *PublishPacket) ToMessage() *Message {
	return &Message{
		Topic:    p.Topic,
		Payload:  p.Payload,
		QoS:      p.QoS,
		Retain:   p.Retain,
		DUP:      p.DUP,
		PacketID: p.PacketID,
	}
}

// FromMessage populates the PUBLISH packet from a Message.
func (p *PublishPacket) FromMessage(m *Message) {
	p.Topic = m.Topic
	p.Payload = m.Payload
	p.QoS = m.QoS
	p.Retain = m.Retain
	p.DUP = m.DUP
	p.PacketID = m.PacketID
}
