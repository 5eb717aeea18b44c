package mqttv3

import (
	"errors"
	"fmt"
	"io"
)

// CONNACK packet errors.
var (
	ErrInvalidConnackFlags  = errors.New("invalid CONNACK flags")
	ErrInvalidConnackLength = errors.New("CONNACK remaining length must be 2")
)

// ConnectReturnCode is the result code carried in CONNACK.
type ConnectReturnCode byte

// CONNACK return codes.
const (
	ConnectAccepted                   ConnectReturnCode = 0x00
	ConnectRefusedProtocolVersion     ConnectReturnCode = 0x01
	ConnectRefusedIdentifierRejected  ConnectReturnCode = 0x02
	ConnectRefusedServerUnavailable   ConnectReturnCode = 0x03
	ConnectRefusedBadUsernamePassword ConnectReturnCode = 0x04
	ConnectRefusedNotAuthorized       ConnectReturnCode = 0x05
)

// String returns a human readable description of the return code.
func (c ConnectReturnCode) String() string {
	switch c {
	case ConnectAccepted:
		return "connection accepted"
	case ConnectRefusedProtocolVersion:
		return "unacceptable protocol version"
	case ConnectRefusedIdentifierRejected:
		return "identifier rejected"
	case ConnectRefusedServerUnavailable:
		return "server unavailable"
	case ConnectRefusedBadUsernamePassword:
		return "bad user name or password"
	case ConnectRefusedNotAuthorized:
		return "not authorized"
	default:
		return fmt.Sprintf("unknown return code 0x%02X", byte(c))
	}
}

// Valid returns true for the return codes defined by MQTT 3.1.1.
func (c ConnectReturnCode) Valid() bool {
	return c <= ConnectRefusedNotAuthorized
}

// ConnackPacket represents an MQTT CONNACK packet.
type ConnackPacket struct {
	// SessionPresent indicates if a session exists from a previous connection.
	SessionPresent bool

	// ReturnCode is the connection result.
	ReturnCode ConnectReturnCode
}

// Type returns the packet type.
func (p *ConnackPacket) Type() PacketType {
	return PacketCONNACK
}

func (p *ConnackPacket) accept(v packetVisitor) { v.visitConnack(p) }

// Encode writes the packet to the writer.
func (p *ConnackPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	var flags byte
	if p.SessionPresent {
		flags = 0x01
	}

	return encodePacket(w, PacketCONNACK, 0x00, []byte{flags, byte(p.ReturnCode)})
}

// Decode reads the packet from the reader.
func (p *ConnackPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketCONNACK {
		return 0, ErrInvalidPacketType
	}

	if header.RemainingLength != 2 {
		return 0, ErrInvalidConnackLength
	}

	var buf [2]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil {
		return n, err
	}

	// Reserved bits must be 0
	if buf[0]&0xFE != 0 {
		return n, ErrInvalidConnackFlags
	}

	p.SessionPresent = buf[0]&0x01 != 0
	p.ReturnCode = ConnectReturnCode(buf[1])

	return n, nil
}

// Validate validates the packet contents.
func (p *ConnackPacket) Validate() error {
	// Session present must be 0 when the connection is refused
	if p.ReturnCode != ConnectAccepted && p.SessionPresent {
		return ErrInvalidConnackFlags
	}

	return nil
}
