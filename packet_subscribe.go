package mqttv3

import (
	"encoding/binary"
	"errors"
	"io"
)

var (
	ErrNoTopics             = errors.New("at least one topic filter required")
	ErrInvalidSubscribeBody = errors.New("malformed SUBSCRIBE payload")
)

// Subscription is a topic filter with its requested QoS.
type Subscription struct {
	TopicFilter string
	QoS         byte
}

// SubscribePacket represents an MQTT SUBSCRIBE packet.
type SubscribePacket struct {
	PacketID      uint16
	Subscriptions []Subscription
}

// Type returns the packet type.
func (p *SubscribePacket) Type() PacketType { return PacketSUBSCRIBE }

func (p *SubscribePacket) accept(v packetVisitor) { v.visitSubscribe(p) }

// GetPacketID returns the packet identifier.
func (p *SubscribePacket) GetPacketID() uint16 { return p.PacketID }

// SetPacketID sets the packet identifier.
func (p *SubscribePacket) SetPacketID(id uint16) { p.PacketID = id }

// Encode writes the packet to the writer.
func (p *SubscribePacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	body := binary.BigEndian.AppendUint16(nil, p.PacketID)

	// Payload: each filter followed by its requested QoS byte
	var err error
	for _, sub := range p.Subscriptions {
		if body, _, err = appendString(body, sub.TopicFilter); err != nil {
			return 0, err
		}
		body = append(body, sub.QoS)
	}

	return encodePacket(w, PacketSUBSCRIBE, flagReserved, body)
}

// Decode reads the packet from the reader.
func (p *SubscribePacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketSUBSCRIBE {
		return 0, ErrInvalidPacketType
	}

	var totalRead int

	id, n, err := decodeUint16(r)
	totalRead += n
	if err != nil {
		return totalRead, err
	}
	p.PacketID = id

	p.Subscriptions = nil
	for totalRead < int(header.RemainingLength) {
		filter, n, err := decodeString(r)
		totalRead += n
		if err != nil {
			return totalRead, err
		}

		var qos [1]byte
		n, err = io.ReadFull(r, qos[:])
		totalRead += n
		if err != nil {
			return totalRead, err
		}

		if qos[0] > 2 {
			return totalRead, ErrInvalidQoS
		}

		p.Subscriptions = append(p.Subscriptions, Subscription{TopicFilter: filter, QoS: qos[0]})
	}

	if totalRead != int(header.RemainingLength) {
		return totalRead, ErrInvalidSubscribeBody
	}

	return totalRead, nil
}

// Validate validates the packet contents.
func (p *SubscribePacket) Validate() error {
	if p.PacketID == 0 {
		return ErrPacketIDRequired
	}

	if len(p.Subscriptions) == 0 {
		return ErrNoTopics
	}

	for _, sub := range p.Subscriptions {
		if sub.QoS > 2 {
			return ErrInvalidQoS
		}

		if err := ValidateTopicFilter(sub.TopicFilter); err != nil {
			return err
		}
	}

	return nil
}
