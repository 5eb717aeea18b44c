package mqttv3

import "io"

// DisconnectPacket represents an MQTT DISCONNECT packet.
// It is the last packet a client sends before closing the connection.
type DisconnectPacket struct{}

// Type returns the packet type.
func (p *DisconnectPacket) Type() PacketType { return PacketDISCONNECT }

func (p *DisconnectPacket) accept(v packetVisitor) { v.visitDisconnect(p) }

// Encode writes the packet to the writer.
func (p *DisconnectPacket) Encode(w io.Writer) (int, error) {
	return encodePacket(w, PacketDISCONNECT, 0x00, nil)
}

// Decode reads the packet from the reader.
func (p *DisconnectPacket) Decode(_ io.Reader, header FixedHeader) (int, error) {
	return decodeEmpty(header, PacketDISCONNECT)
}

// Validate validates the packet contents.
func (p *DisconnectPacket) Validate() error {
	return nil
}
