package bitio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadBitsRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteBits(0b101, 3)
	w.WriteBits(0xFF, 8)
	w.WriteBits(0, 1)
	w.WriteBits(0x1FFFFFFFFFFFFFFF, 61)
	buf, _ := w.Finalize()

	r := NewReader(buf)
	v, err := r.ReadBits(3)
	require.NoError(t, err)
	require.EqualValues(t, 0b101, v)

	v, err = r.ReadBits(8)
	require.NoError(t, err)
	require.EqualValues(t, 0xFF, v)

	v, err = r.ReadBits(1)
	require.NoError(t, err)
	require.EqualValues(t, 0, v)

	v, err = r.ReadBits(61)
	require.NoError(t, err)
	require.EqualValues(t, 0x1FFFFFFFFFFFFFFF, v)
}

func TestReadBits64AcrossBoundary(t *testing.T) {
	w := NewWriter()
	w.WriteBits(1, 3)
	var full uint64 = 0xABCDEF0123456789
	w.WriteBits(full, 64)
	buf, _ := w.Finalize()

	r := NewReader(buf)
	_, err := r.ReadBits(3)
	require.NoError(t, err)
	v, err := r.ReadBits(64)
	require.NoError(t, err)
	require.Equal(t, full, v)
}

func TestAlign(t *testing.T) {
	w := NewWriter()
	w.WriteBits(0b11, 2)
	w.Align()
	w.WriteByte(0x42)
	buf, _ := w.Finalize()
	require.Len(t, buf, 2)
	require.Equal(t, byte(0b11000000), buf[0])
	require.Equal(t, byte(0x42), buf[1])

	r := NewReader(buf)
	_, _ = r.ReadBits(2)
	r.Align()
	b, err := r.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(0x42), b)
}

func TestUnsignedVarintRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 300, 1 << 20, 1<<63 - 1}
	for _, c := range cases {
		w := NewWriter()
		w.WriteUnsignedVarint(c)
		buf, _ := w.Finalize()
		r := NewReader(buf)
		got, err := r.ReadUnsignedVarint()
		require.NoError(t, err)
		require.Equal(t, c, got, "case %d", c)
	}
}

func TestUnsignedVarintOverflow(t *testing.T) {
	// 10 octets, each with the continuation bit set: overflow.
	buf := make([]byte, 10)
	for i := range buf {
		buf[i] = 0xFF
	}
	r := NewReader(buf)
	_, err := r.ReadUnsignedVarint()
	require.ErrorIs(t, err, ErrNumericOverflow)
}

func TestEmptyReadEndOfStream(t *testing.T) {
	r := NewReader(nil)
	_, err := r.ReadBit()
	require.ErrorIs(t, err, ErrEndOfStream)
}
