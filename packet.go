package mqttv3

import "io"

// Packet is the interface that all MQTT control packets implement.
type Packet interface {
	// Type returns the packet type.
	Type() PacketType

	// Encode writes the complete packet (fixed header included) to the writer.
	// Returns the number of bytes written.
	Encode(w io.Writer) (int, error)

	// Decode reads the packet from the reader.
	// The fixed header should already be decoded.
	// Returns the number of bytes read.
	Decode(r io.Reader, header FixedHeader) (int, error)

	// Validate validates the packet contents.
	Validate() error

	// accept routes the packet to the matching visitor method.
	accept(v packetVisitor)
}

// PacketWithID is implemented by packets that have a packet identifier.
type PacketWithID interface {
	Packet

	// GetPacketID returns the packet identifier.
	GetPacketID() uint16

	// SetPacketID sets the packet identifier.
	SetPacketID(id uint16)
}

// packetVisitor has one method per control packet type. A new packet type
// does not compile until every visitor handles it.
type packetVisitor interface {
	visitConnect(p *ConnectPacket)
	visitConnack(p *ConnackPacket)
	visitPublish(p *PublishPacket)
	visitPuback(p *PubackPacket)
	visitPubrec(p *PubrecPacket)
	visitPubrel(p *PubrelPacket)
	visitPubcomp(p *PubcompPacket)
	visitSubscribe(p *SubscribePacket)
	visitSuback(p *SubackPacket)
	visitUnsubscribe(p *UnsubscribePacket)
	visitUnsuback(p *UnsubackPacket)
	visitPingreq(p *PingreqPacket)
	visitPingresp(p *PingrespPacket)
	visitDisconnect(p *DisconnectPacket)
}

// Message represents an MQTT application message.
type Message struct {
	// Topic is the topic name the message was published to.
	Topic string

	// Payload is the application message payload.
	Payload []byte

	// QoS is the Quality of Service level (0, 1, or 2).
	QoS byte

	// Retain indicates if this is a retained message.
	Retain bool

	// DUP indicates the sender marked this as a redelivery.
	DUP bool

	// PacketID is the packet identifier. Zero for QoS 0.
	PacketID uint16
}

// Clone creates a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}

	clone := *m
	if m.Payload != nil {
		clone.Payload = make([]byte, len(m.Payload))
		copy(clone.Payload, m.Payload)
	}

	return &clone
}

// encodePacket writes a fixed header followed by body to w.
func encodePacket(w io.Writer, packetType PacketType, flags byte, body []byte) (int, error) {
	header := FixedHeader{
		PacketType:      packetType,
		Flags:           flags,
		RemainingLength: uint32(len(body)),
	}

	buf, err := header.appendTo(make([]byte, 0, header.Size()+len(body)))
	if err != nil {
		return 0, err
	}

	return w.Write(append(buf, body...))
}
