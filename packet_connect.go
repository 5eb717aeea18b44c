package mqttv3

import (
	"errors"
	"io"
)

// CONNECT packet constants.
const (
	protocolName    = "MQTT"
	protocolVersion = 4
)

// Connect flag bit positions.
const (
	connectFlagReserved     = 0x01
	connectFlagCleanSession = 0x02
	connectFlagWillFlag     = 0x04
	connectFlagWillQoSShift = 3
	connectFlagWillRetain   = 0x20
	connectFlagPasswordFlag = 0x40
	connectFlagUsernameFlag = 0x80
)

// CONNECT packet errors.
var (
	ErrInvalidProtocolName     = errors.New("invalid protocol name")
	ErrInvalidProtocolVersion  = errors.New("unsupported protocol version")
	ErrInvalidConnectFlags     = errors.New("invalid connect flags")
	ErrIncompleteWill          = errors.New("will requires both topic and message")
	ErrPasswordWithoutUsername = errors.New("password requires a username")
)

// ConnectPacket represents an MQTT CONNECT packet.
type ConnectPacket struct {
	// ClientID is the client identifier.
	ClientID string

	// CleanSession asks the broker to discard any previous session.
	CleanSession bool

	// KeepAlive is the keep alive interval in seconds.
	KeepAlive uint16

	// Username for authentication.
	Username string

	// Password for authentication.
	Password []byte

	// Will message configuration.
	WillFlag    bool
	WillRetain  bool
	WillQoS     byte
	WillTopic   string
	WillMessage []byte
}

// Type returns the packet type.
func (p *ConnectPacket) Type() PacketType {
	return PacketCONNECT
}

func (p *ConnectPacket) accept(v packetVisitor) { v.visitConnect(p) }

// connectFlags returns the connect flags byte.
func (p *ConnectPacket) connectFlags() byte {
	var flags byte

	if p.CleanSession {
		flags |= connectFlagCleanSession
	}

	if p.WillFlag {
		flags |= connectFlagWillFlag
		flags |= (p.WillQoS & 0x03) << connectFlagWillQoSShift
		if p.WillRetain {
			flags |= connectFlagWillRetain
		}
	}

	if p.Username != "" {
		flags |= connectFlagUsernameFlag

		if len(p.Password) > 0 {
			flags |= connectFlagPasswordFlag
		}
	}

	return flags
}

// setConnectFlags parses the connect flags byte.
func (p *ConnectPacket) setConnectFlags(flags byte) error {
	if flags&connectFlagReserved != 0 {
		return ErrInvalidConnectFlags
	}

	p.CleanSession = flags&connectFlagCleanSession != 0
	p.WillFlag = flags&connectFlagWillFlag != 0
	p.WillQoS = (flags >> connectFlagWillQoSShift) & 0x03
	p.WillRetain = flags&connectFlagWillRetain != 0

	if !p.WillFlag && (p.WillQoS != 0 || p.WillRetain) {
		return ErrInvalidConnectFlags
	}

	if p.WillQoS > 2 {
		return ErrInvalidConnectFlags
	}

	if flags&connectFlagPasswordFlag != 0 && flags&connectFlagUsernameFlag == 0 {
		return ErrPasswordWithoutUsername
	}

	return nil
}

// appendBody appends the variable header and payload.
// Payload order: client id, will topic, will message, username, password.
func (p *ConnectPacket) appendBody(buf []byte) ([]byte, error) {
	var err error

	if buf, _, err = appendString(buf, protocolName); err != nil {
		return buf, err
	}

	buf = append(buf, protocolVersion, p.connectFlags(), byte(p.KeepAlive>>8), byte(p.KeepAlive))

	if buf, _, err = appendString(buf, p.ClientID); err != nil {
		return buf, err
	}

	if p.WillFlag {
		if buf, _, err = appendString(buf, p.WillTopic); err != nil {
			return buf, err
		}

		if buf, _, err = appendBinary(buf, p.WillMessage); err != nil {
			return buf, err
		}
	}

	if p.Username != "" {
		if buf, _, err = appendString(buf, p.Username); err != nil {
			return buf, err
		}

		if len(p.Password) > 0 {
			if buf, _, err = appendBinary(buf, p.Password); err != nil {
				return buf, err
			}
		}
	}

	return buf, nil
}

// Encode writes the packet to the writer.
func (p *ConnectPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	body, err := p.appendBody(nil)
	if err != nil {
		return 0, err
	}

	return encodePacket(w, PacketCONNECT, 0x00, body)
}

// Decode reads the packet from the reader.
func (p *ConnectPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketCONNECT {
		return 0, ErrInvalidPacketType
	}

	var totalRead int

	protoName, n, err := decodeString(r)
	totalRead += n
	if err != nil {
		return totalRead, err
	}
	if protoName != protocolName {
		return totalRead, ErrInvalidProtocolName
	}

	var levelAndFlags [2]byte
	n, err = io.ReadFull(r, levelAndFlags[:])
	totalRead += n
	if err != nil {
		return totalRead, err
	}
	if levelAndFlags[0] != protocolVersion {
		return totalRead, ErrInvalidProtocolVersion
	}
	if err := p.setConnectFlags(levelAndFlags[1]); err != nil {
		return totalRead, err
	}

	usernameFlag := levelAndFlags[1]&connectFlagUsernameFlag != 0
	passwordFlag := levelAndFlags[1]&connectFlagPasswordFlag != 0

	p.KeepAlive, n, err = decodeUint16(r)
	totalRead += n
	if err != nil {
		return totalRead, err
	}

	p.ClientID, n, err = decodeString(r)
	totalRead += n
	if err != nil {
		return totalRead, err
	}

	if p.WillFlag {
		p.WillTopic, n, err = decodeString(r)
		totalRead += n
		if err != nil {
			return totalRead, err
		}

		p.WillMessage, n, err = decodeBinary(r)
		totalRead += n
		if err != nil {
			return totalRead, err
		}
	}

	if usernameFlag {
		p.Username, n, err = decodeString(r)
		totalRead += n
		if err != nil {
			return totalRead, err
		}
	}

	if passwordFlag {
		p.Password, n, err = decodeBinary(r)
		totalRead += n
		if err != nil {
			return totalRead, err
		}
	}

	return totalRead, nil
}

// Validate validates the packet contents.
func (p *ConnectPacket) Validate() error {
	if err := ValidateClientID(p.ClientID); err != nil {
		return err
	}

	if p.WillQoS > 2 {
		return ErrInvalidQoS
	}

	if !p.WillFlag && (p.WillRetain || p.WillQoS != 0) {
		return ErrInvalidConnectFlags
	}

	if p.WillFlag && (p.WillTopic == "" || len(p.WillMessage) == 0) {
		return ErrIncompleteWill
	}

	if p.WillFlag {
		if err := ValidateTopicName(p.WillTopic); err != nil {
			return err
		}
	}

	if p.Username == "" && len(p.Password) > 0 {
		return ErrPasswordWithoutUsername
	}

	return nil
}
