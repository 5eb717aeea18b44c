package mqttv3

import (
	"errors"
	"io"
)

// PacketType represents an MQTT control packet type.
type PacketType byte

// MQTT 3.1.1 control packet types.
const (
	PacketCONNECT     PacketType = 1
	PacketCONNACK     PacketType = 2
	PacketPUBLISH     PacketType = 3
	PacketPUBACK      PacketType = 4
	PacketPUBREC      PacketType = 5
	PacketPUBREL      PacketType = 6
	PacketPUBCOMP     PacketType = 7
	PacketSUBSCRIBE   PacketType = 8
	PacketSUBACK      PacketType = 9
	PacketUNSUBSCRIBE PacketType = 10
	PacketUNSUBACK    PacketType = 11
	PacketPINGREQ     PacketType = 12
	PacketPINGRESP    PacketType = 13
	PacketDISCONNECT  PacketType = 14
)

var packetTypeNames = [...]string{
	PacketCONNECT:     "CONNECT",
	PacketCONNACK:     "CONNACK",
	PacketPUBLISH:     "PUBLISH",
	PacketPUBACK:      "PUBACK",
	PacketPUBREC:      "PUBREC",
	PacketPUBREL:      "PUBREL",
	PacketPUBCOMP:     "PUBCOMP",
	PacketSUBSCRIBE:   "SUBSCRIBE",
	PacketSUBACK:      "SUBACK",
	PacketUNSUBSCRIBE: "UNSUBSCRIBE",
	PacketUNSUBACK:    "UNSUBACK",
	PacketPINGREQ:     "PINGREQ",
	PacketPINGRESP:    "PINGRESP",
	PacketDISCONNECT:  "DISCONNECT",
}

func (p PacketType) String() string {
	if !p.Valid() {
		return "UNKNOWN"
	}
	return packetTypeNames[p]
}

// Valid returns true if the packet type is valid.
func (p PacketType) Valid() bool {
	return p >= PacketCONNECT && p <= PacketDISCONNECT
}

// Fixed header errors.
var (
	ErrInvalidPacketType  = errors.New("invalid packet type")
	ErrInvalidPacketFlags = errors.New("invalid packet flags")
)

// Fixed header flag bits.
const (
	flagDUP      byte = 0x08
	flagQoSMask  byte = 0x06
	flagRetain   byte = 0x01
	flagReserved byte = 0x02 // PUBREL, SUBSCRIBE, UNSUBSCRIBE
)

// FixedHeader represents the fixed header of an MQTT control packet.
type FixedHeader struct {
	PacketType      PacketType
	Flags           byte
	RemainingLength uint32
}

// Encode writes the fixed header to the writer.
// Returns the number of bytes written.
func (h *FixedHeader) Encode(w io.Writer) (int, error) {
	buf, err := h.appendTo(make([]byte, 0, maxVarintBytes+1))
	if err != nil {
		return 0, err
	}

	return w.Write(buf)
}

// appendTo appends the encoded header to buf.
func (h *FixedHeader) appendTo(buf []byte) ([]byte, error) {
	if !h.PacketType.Valid() {
		return buf, ErrInvalidPacketType
	}

	if h.RemainingLength > maxRemainingLength {
		return buf, ErrRemainingLengthTooLarge
	}

	// type in the high nibble, flags in the low nibble
	buf = append(buf, byte(h.PacketType)<<4|(h.Flags&0x0F))

	return appendVarint(buf, h.RemainingLength), nil
}

// parseFixedHeader decodes a fixed header from the start of b.
// Returns the header and the number of bytes consumed.
func parseFixedHeader(b []byte) (FixedHeader, int, error) {
	if len(b) == 0 {
		return FixedHeader{}, 0, ErrShortBuffer
	}

	h := FixedHeader{
		PacketType: PacketType(b[0] >> 4),
		Flags:      b[0] & 0x0F,
	}

	length, n, err := DecodeRemainingLength(b[1:])
	if err != nil {
		return h, 1 + n, err
	}

	h.RemainingLength = length
	return h, 1 + n, nil
}

// Decode reads the fixed header from the reader.
// Returns the number of bytes read.
func (h *FixedHeader) Decode(r io.Reader) (int, error) {
	// Read first byte
	var buf [1]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil {
		return n, err
	}

	h.PacketType = PacketType(buf[0] >> 4)
	h.Flags = buf[0] & 0x0F

	if !h.PacketType.Valid() {
		return n, ErrInvalidPacketType
	}

	// Read remaining length
	length, n2, err := decodeVarint(r)
	n += n2
	if err != nil {
		return n, err
	}

	h.RemainingLength = length
	return n, nil
}

// Size returns the encoded size of the fixed header in bytes.
func (h *FixedHeader) Size() int {
	return 1 + varintSize(h.RemainingLength)
}

// ValidateFlags checks the low nibble against the packet type. PUBLISH
// carries DUP, QoS and RETAIN; PUBREL, SUBSCRIBE and UNSUBSCRIBE must
// carry 0x02; every other type must carry zero.
func (h *FixedHeader) ValidateFlags() error {
	switch {
	case !h.PacketType.Valid():
		return ErrInvalidPacketType
	case h.PacketType == PacketPUBLISH:
		if h.QoS() > 2 {
			return ErrInvalidPacketFlags
		}
	case h.Flags != requiredFlags(h.PacketType):
		return ErrInvalidPacketFlags
	}
	return nil
}

func requiredFlags(p PacketType) byte {
	switch p {
	case PacketPUBREL, PacketSUBSCRIBE, PacketUNSUBSCRIBE:
		return flagReserved
	}
	return 0
}

// PUBLISH flag accessors

// DUP returns the DUP flag from PUBLISH packet flags.
func (h *FixedHeader) DUP() bool {
	return h.Flags&flagDUP != 0
}

// SetDUP sets the DUP flag for PUBLISH packet.
func (h *FixedHeader) SetDUP(dup bool) {
	if dup {
		h.Flags |= flagDUP
	} else {
		h.Flags &^= flagDUP
	}
}

// QoS returns the QoS level from PUBLISH packet flags.
func (h *FixedHeader) QoS() byte {
	return (h.Flags & flagQoSMask) >> 1
}

// SetQoS sets the QoS level for PUBLISH packet.
func (h *FixedHeader) SetQoS(qos byte) {
	h.Flags = (h.Flags &^ flagQoSMask) | ((qos << 1) & flagQoSMask)
}

// Retain returns the RETAIN flag from PUBLISH packet flags.
func (h *FixedHeader) Retain() bool {
	return h.Flags&flagRetain != 0
}

// SetRetain sets the RETAIN flag for PUBLISH packet.
func (h *FixedHeader) SetRetain(retain bool) {
	if retain {
		h.Flags |= flagRetain
	} else {
		h.Flags &^= flagRetain
	}
}
