package mqttv3

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRemainingLength(t *testing.T) {
	tests := []struct {
		value uint32
		size  int
	}{
		{0, 1},
		{127, 1},
		{128, 2},
		{16383, 2},
		{16384, 3},
		{2097151, 3},
		{2097152, 4},
		{268435455, 4},
	}

	for _, tt := range tests {
		encoded, err := EncodeRemainingLength(tt.value)
		require.NoError(t, err)
		assert.Len(t, encoded, tt.size, "value %d", tt.value)
		assert.Equal(t, tt.size, varintSize(tt.value))

		decoded, n, err := DecodeRemainingLength(encoded)
		require.NoError(t, err)
		assert.Equal(t, tt.value, decoded)
		assert.Equal(t, tt.size, n)
	}
}

func TestEncodeRemainingLengthBytes(t *testing.T) {
	tests := []struct {
		value    uint32
		expected []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7F}},
		{128, []byte{0x80, 0x01}},
		{321, []byte{0xC1, 0x02}},
		{16384, []byte{0x80, 0x80, 0x01}},
		{268435455, []byte{0xFF, 0xFF, 0xFF, 0x7F}},
	}

	for _, tt := range tests {
		encoded, err := EncodeRemainingLength(tt.value)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, encoded)
	}
}

func TestEncodeRemainingLengthTooLarge(t *testing.T) {
	_, err := EncodeRemainingLength(268435456)
	assert.ErrorIs(t, err, ErrRemainingLengthTooLarge)

	var buf bytes.Buffer
	_, err = encodeVarint(&buf, 268435456)
	assert.ErrorIs(t, err, ErrRemainingLengthTooLarge)
	assert.Zero(t, buf.Len())
}

func TestDecodeRemainingLengthErrors(t *testing.T) {
	t.Run("five bytes", func(t *testing.T) {
		_, n, err := DecodeRemainingLength([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x01})
		assert.ErrorIs(t, err, ErrMalformedRemainingLength)
		assert.Equal(t, 4, n)
	})

	t.Run("short buffer", func(t *testing.T) {
		_, _, err := DecodeRemainingLength([]byte{0x80, 0x80})
		assert.ErrorIs(t, err, ErrShortBuffer)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("empty", func(t *testing.T) {
		_, n, err := DecodeRemainingLength(nil)
		assert.ErrorIs(t, err, ErrShortBuffer)
		assert.Zero(t, n)
	})
}

func TestVarintReader(t *testing.T) {
	var buf bytes.Buffer
	n, err := encodeVarint(&buf, 2097152)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	value, n, err := decodeVarint(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(2097152), value)
	assert.Equal(t, 4, n)

	_, _, err = decodeVarint(bytes.NewReader([]byte{0x80, 0x80, 0x80, 0x80}))
	assert.ErrorIs(t, err, ErrMalformedRemainingLength)

	_, _, err = decodeVarint(bytes.NewReader([]byte{0x80}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestAppendString(t *testing.T) {
	buf, n, err := appendString(nil, "MQTT")
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, []byte{0x00, 0x04, 'M', 'Q', 'T', 'T'}, buf)

	_, _, err = appendString(nil, "")
	assert.ErrorIs(t, err, ErrEmptyString)

	_, _, err = appendString(nil, strings.Repeat("a", 65536))
	assert.ErrorIs(t, err, ErrStringTooLong)
}

func TestAppendBinary(t *testing.T) {
	buf, n, err := appendBinary([]byte{0xAA}, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []byte{0xAA, 0x00, 0x03, 1, 2, 3}, buf)

	_, _, err = appendBinary(nil, make([]byte, 65536))
	assert.ErrorIs(t, err, ErrBinaryTooLong)
}

func TestDecodeString(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
		err      error
	}{
		{"valid", []byte{0x00, 0x03, 'a', '/', 'b'}, "a/b", nil},
		{"empty", []byte{0x00, 0x00}, "", nil},
		{"invalid utf8", []byte{0x00, 0x02, 0xC3, 0x28}, "", ErrInvalidUTF8},
		{"null character", []byte{0x00, 0x02, 'a', 0x00}, "", ErrStringContainsNull},
		{"truncated", []byte{0x00, 0x05, 'a'}, "", io.ErrUnexpectedEOF},
		{"no length", []byte{0x00}, "", io.ErrUnexpectedEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, err := decodeString(bytes.NewReader(tt.input))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, s)
		})
	}
}

func TestDecodeUint16(t *testing.T) {
	v, n, err := decodeUint16(bytes.NewReader([]byte{0x00, 0x3C}))
	require.NoError(t, err)
	assert.Equal(t, uint16(60), v)
	assert.Equal(t, 2, n)

	_, _, err = decodeUint16(bytes.NewReader([]byte{0x01}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func BenchmarkEncodeRemainingLength(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = EncodeRemainingLength(2097151)
	}
}
