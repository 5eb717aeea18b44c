package mqttv3

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Encoding errors.
var (
	ErrStringTooLong            = errors.New("string exceeds maximum length of 65535 bytes")
	ErrBinaryTooLong            = errors.New("binary data exceeds maximum length of 65535 bytes")
	ErrEmptyString              = errors.New("string is empty")
	ErrInvalidUTF8              = errors.New("invalid UTF-8 string")
	ErrStringContainsNull       = errors.New("string contains null character")
	ErrRemainingLengthTooLarge  = errors.New("remaining length exceeds 268435455")
	ErrMalformedRemainingLength = errors.New("malformed remaining length")
	ErrShortBuffer              = fmt.Errorf("buffer ends inside field: %w", io.ErrUnexpectedEOF)
)

const (
	maxUint16          = 65535
	maxRemainingLength = 268435455 // 0x0FFFFFFF
	maxVarintBytes     = 4
	varintContinueBit  = 0x80
	varintValueMask    = 0x7F
)

// EncodeRemainingLength returns the variable length encoding of v:
// 7-bit groups, least significant first, continuation bit 0x80.
func EncodeRemainingLength(v uint32) ([]byte, error) {
	if v > maxRemainingLength {
		return nil, ErrRemainingLengthTooLarge
	}

	return appendVarint(make([]byte, 0, varintSize(v)), v), nil
}

// DecodeRemainingLength parses a remaining length from the start of b.
// It returns the value and the number of bytes consumed.
func DecodeRemainingLength(b []byte) (uint32, int, error) {
	var value uint32
	var multiplier uint32 = 1

	for i := 0; i < maxVarintBytes; i++ {
		if i >= len(b) {
			return 0, i, ErrShortBuffer
		}

		encoded := b[i]
		value += uint32(encoded&varintValueMask) * multiplier

		if encoded&varintContinueBit == 0 {
			return value, i + 1, nil
		}

		multiplier *= 128
	}

	return 0, maxVarintBytes, ErrMalformedRemainingLength
}

// appendVarint appends the encoding of value. Callers check the range.
func appendVarint(buf []byte, value uint32) []byte {
	for {
		encoded := byte(value & varintValueMask)
		value >>= 7

		if value > 0 {
			encoded |= varintContinueBit
		}

		buf = append(buf, encoded)

		if value == 0 {
			return buf
		}
	}
}

// encodeVarint writes a remaining length to w.
// Returns the number of bytes written.
func encodeVarint(w io.Writer, value uint32) (int, error) {
	if value > maxRemainingLength {
		return 0, ErrRemainingLengthTooLarge
	}

	var buf [maxVarintBytes]byte
	return w.Write(appendVarint(buf[:0], value))
}

// decodeVarint reads a remaining length from r one byte at a time.
func decodeVarint(r io.Reader) (uint32, int, error) {
	var value uint32
	var multiplier uint32 = 1
	var buf [1]byte

	for i := 0; i < maxVarintBytes; i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, i, err
		}

		value += uint32(buf[0]&varintValueMask) * multiplier

		if buf[0]&varintContinueBit == 0 {
			return value, i + 1, nil
		}

		multiplier *= 128
	}

	return 0, maxVarintBytes, ErrMalformedRemainingLength
}

// varintSize returns the number of bytes needed to encode a remaining length.
func varintSize(value uint32) int {
	switch {
	case value < 128:
		return 1
	case value < 16384:
		return 2
	case value < 2097152:
		return 3
	default:
		return 4
	}
}

// appendString appends s with a 2-byte big-endian length prefix.
// Empty strings are rejected; optional fields are omitted instead.
// Returns the extended buffer and the number of bytes appended.
func appendString(buf []byte, s string) ([]byte, int, error) {
	if s == "" {
		return buf, 0, ErrEmptyString
	}

	if len(s) > maxUint16 {
		return buf, 0, ErrStringTooLong
	}

	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))
	buf = append(buf, s...)

	return buf, 2 + len(s), nil
}

// appendBinary appends data with a 2-byte big-endian length prefix.
func appendBinary(buf []byte, data []byte) ([]byte, int, error) {
	if len(data) > maxUint16 {
		return buf, 0, ErrBinaryTooLong
	}

	buf = binary.BigEndian.AppendUint16(buf, uint16(len(data)))
	buf = append(buf, data...)

	return buf, 2 + len(data), nil
}

// decodeString reads a UTF-8 string with 2-byte length prefix from r.
func decodeString(r io.Reader) (string, int, error) {
	data, n, err := decodeBinary(r)
	if err != nil {
		return "", n, err
	}

	if !utf8.Valid(data) {
		return "", n, ErrInvalidUTF8
	}

	for _, c := range data {
		if c == 0 {
			return "", n, ErrStringContainsNull
		}
	}

	return string(data), n, nil
}

// decodeBinary reads binary data with 2-byte length prefix from r.
func decodeBinary(r io.Reader) ([]byte, int, error) {
	var lenBuf [2]byte
	n, err := io.ReadFull(r, lenBuf[:])
	if err != nil {
		return nil, n, err
	}

	length := binary.BigEndian.Uint16(lenBuf[:])
	if length == 0 {
		return nil, n, nil
	}

	buf := make([]byte, length)
	n2, err := io.ReadFull(r, buf)
	n += n2
	if err != nil {
		return nil, n, err
	}

	return buf, n, nil
}

// decodeUint16 reads a big-endian 2-byte integer from r.
func decodeUint16(r io.Reader) (uint16, int, error) {
	var buf [2]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil {
		return 0, n, err
	}

	return binary.BigEndian.Uint16(buf[:]), n, nil
}
