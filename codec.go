package mqttv3

import (
	"errors"
	"fmt"
	"io"
)

var (
	ErrPacketTooLarge    = errors.New("mqttv3: packet exceeds maximum size")
	ErrUnknownPacketType = errors.New("mqttv3: unknown packet type")
	ErrMalformedPacket   = errors.New("mqttv3: malformed packet")
)

// newPacket returns an empty packet for the given type.
func newPacket(t PacketType) (Packet, error) {
	switch t {
	case PacketCONNECT:
		return &ConnectPacket{}, nil
	case PacketCONNACK:
		return &ConnackPacket{}, nil
	case PacketPUBLISH:
		return &PublishPacket{}, nil
	case PacketPUBACK:
		return &PubackPacket{}, nil
	case PacketPUBREC:
		return &PubrecPacket{}, nil
	case PacketPUBREL:
		return &PubrelPacket{}, nil
	case PacketPUBCOMP:
		return &PubcompPacket{}, nil
	case PacketSUBSCRIBE:
		return &SubscribePacket{}, nil
	case PacketSUBACK:
		return &SubackPacket{}, nil
	case PacketUNSUBSCRIBE:
		return &UnsubscribePacket{}, nil
	case PacketUNSUBACK:
		return &UnsubackPacket{}, nil
	case PacketPINGREQ:
		return &PingreqPacket{}, nil
	case PacketPINGRESP:
		return &PingrespPacket{}, nil
	case PacketDISCONNECT:
		return &DisconnectPacket{}, nil
	default:
		return nil, ErrUnknownPacketType
	}
}

// decodeBody decodes body into a packet of the header's type. The body must
// be consumed exactly and the result must pass Validate.
func decodeBody(header FixedHeader, body []byte) (Packet, error) {
	packet, err := newPacket(header.PacketType)
	if err != nil {
		return nil, err
	}

	if err := header.ValidateFlags(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedPacket, header.PacketType, err)
	}

	reader := getBytesReader(body)
	defer putBytesReader(reader)

	n, err := packet.Decode(reader, header)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedPacket, header.PacketType, err)
	}

	if n != len(body) {
		return nil, fmt.Errorf("%w: %s: %d trailing bytes", ErrMalformedPacket, header.PacketType, len(body)-n)
	}

	// A packet that decodes but breaks the protocol rules is malformed too.
	if err := packet.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedPacket, header.PacketType, err)
	}

	return packet, nil
}

// ParsePacket decodes one complete packet from the start of data.
// It returns the packet and the number of bytes it occupied. When the
// header is intact but the body cannot be decoded, the returned length
// still covers the whole packet so callers can skip it.
func ParsePacket(data []byte) (Packet, int, error) {
	header, n, err := parseFixedHeader(data)
	if err != nil {
		return nil, n, err
	}

	total := n + int(header.RemainingLength)
	if len(data) < total {
		return nil, len(data), ErrShortBuffer
	}

	packet, err := decodeBody(header, data[n:total])
	return packet, total, err
}

// ReadPacket reads a complete MQTT packet from the reader.
// If maxSize is greater than 0, packets larger than maxSize will return ErrPacketTooLarge.
func ReadPacket(r io.Reader, maxSize uint32) (Packet, int, error) {
	var header FixedHeader
	n, err := header.Decode(r)
	if err != nil {
		return nil, n, err
	}

	if maxSize > 0 && header.RemainingLength > maxSize {
		return nil, n, ErrPacketTooLarge
	}

	remaining := make([]byte, header.RemainingLength)
	if header.RemainingLength > 0 {
		rn, err := io.ReadFull(r, remaining)
		n += rn
		if err != nil {
			return nil, n, err
		}
	}

	packet, err := decodeBody(header, remaining)
	if err != nil {
		return nil, n, err
	}

	return packet, n, nil
}

// WritePacket writes a complete MQTT packet to the writer.
// If maxSize is greater than 0, packets larger than maxSize will return ErrPacketTooLarge.
func WritePacket(w io.Writer, packet Packet, maxSize uint32) (int, error) {
	data, err := encodeToBytes(packet, maxSize)
	if err != nil {
		return 0, err
	}

	return w.Write(data)
}

// encodeToBytes encodes packet into a pooled buffer and returns an owned copy.
func encodeToBytes(packet Packet, maxSize uint32) ([]byte, error) {
	if err := packet.Validate(); err != nil {
		return nil, err
	}

	buf := getBytesBuffer()
	defer putBytesBuffer(buf)

	n, err := packet.Encode(buf)
	if err != nil {
		return nil, err
	}

	if maxSize > 0 && uint32(n) > maxSize {
		return nil, ErrPacketTooLarge
	}

	out := make([]byte, n)
	copy(out, buf.Bytes())
	return out, nil
}

// bytesReader wraps a byte slice for io.Reader interface.
type bytesReader struct {
	data []byte
	pos  int
}

func (r *bytesReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

// bytesBuffer is a simple buffer for encoding.
type bytesBuffer struct {
	data []byte
}

func (b *bytesBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *bytesBuffer) Bytes() []byte {
	return b.data
}
