package exi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexbind/exi/internal/bitio"
)

func TestHeaderRoundTripDefaults(t *testing.T) {
	opts := DefaultHeaderOptions()
	w := bitio.NewWriter()
	_, err := EncodeHeader(w, false, 1, opts)
	require.NoError(t, err)
	buf, _ := w.Finalize()

	r := bitio.NewReader(buf)
	h, ch, err := DecodeHeader(r)
	require.NoError(t, err)
	require.NotNil(t, ch)
	assert.False(t, h.HasCookie)
	assert.Equal(t, 1, h.Version)
	assert.Equal(t, opts, h.Options)
}

func TestHeaderRoundTripWithCookieAndOptions(t *testing.T) {
	opts := HeaderOptions{
		Alignment:     AlignmentByteAligned,
		Strict:        false,
		Preserve:      Preserve{Comments: true, PIs: true, Prefixes: true},
		ValueCapacity: 512,
	}
	w := bitio.NewWriter()
	_, err := EncodeHeader(w, true, 3, opts)
	require.NoError(t, err)
	buf, _ := w.Finalize()

	r := bitio.NewReader(buf)
	h, _, err := DecodeHeader(r)
	require.NoError(t, err)
	assert.True(t, h.HasCookie)
	assert.Equal(t, 3, h.Version)
	assert.Equal(t, opts, h.Options)
}

func TestHeaderRejectsBadCookie(t *testing.T) {
	buf := []byte{0x00, 0x00, 0x00, 0x00, 0x00}
	r := bitio.NewReader(buf)
	_, _, err := DecodeHeader(r)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKind(KindMalformedCookie))
}

func TestHeaderEncodeRejectsInvalidOptions(t *testing.T) {
	opts := HeaderOptions{Compression: true, Alignment: AlignmentBitPacked}
	w := bitio.NewWriter()
	_, err := EncodeHeader(w, false, 1, opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKind(KindAlignmentCompressionMismatch))
}

func TestHeaderCanonicalDropsCookieAndForcesPreCompression(t *testing.T) {
	opts := HeaderOptions{Canonical: true, Alignment: AlignmentCompression, BlockSize: 1000, ValueCapacity: UnboundedCapacity}
	w := bitio.NewWriter()
	_, err := EncodeHeader(w, true, 1, opts)
	require.NoError(t, err)
	buf, _ := w.Finalize()

	// No cookie: the first two bits are the distinguishing bits "10", not
	// the "00" that precedes "$EXI".
	r := bitio.NewReader(buf)
	b0, err := r.ReadBits(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b10), b0)

	h, _, err := DecodeHeader(bitio.NewReader(buf))
	require.NoError(t, err)
	assert.False(t, h.HasCookie)
	assert.True(t, h.Options.Canonical)
	assert.Equal(t, AlignmentPreCompression, h.Options.Alignment)
}

func TestDecodeHeaderWithFallbackUsesOOBOptions(t *testing.T) {
	w := bitio.NewWriter()
	w.WriteBits(0b10, 2) // distinguishing bits
	w.WriteBit(0)        // options absent
	w.WriteBit(0)        // not a preview version
	w.WriteBits(0, 4)    // version chunk: version 1
	buf, _ := w.Finalize()

	oob := HeaderOptions{Alignment: AlignmentBitPacked, ValueCapacity: UnboundedCapacity, Preserve: Preserve{Comments: true}}
	h, ch, err := DecodeHeaderWithFallback(bitio.NewReader(buf), oob)
	require.NoError(t, err)
	require.NotNil(t, ch)
	assert.Equal(t, oob, h.Options)
}

func TestDecodeHeaderWithoutFallbackRejectsMissingOptions(t *testing.T) {
	w := bitio.NewWriter()
	w.WriteBits(0b10, 2)
	w.WriteBit(0)
	w.WriteBit(0)
	w.WriteBits(0, 4)
	buf, _ := w.Finalize()

	_, _, err := DecodeHeader(bitio.NewReader(buf))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKind(KindOptionsMissing))
}

func TestDatatypeMapOptionRoundTrip(t *testing.T) {
	opts := HeaderOptions{
		Alignment:     AlignmentBitPacked,
		DatatypeMap:   true,
		SchemaID:      "urn:schema:example",
		ValueCapacity: UnboundedCapacity,
	}
	w := bitio.NewWriter()
	_, err := EncodeHeader(w, false, 1, opts)
	require.NoError(t, err)
	buf, _ := w.Finalize()

	r := bitio.NewReader(buf)
	h, _, err := DecodeHeader(r)
	require.NoError(t, err)
	assert.Equal(t, "urn:schema:example", h.Options.SchemaID)
}
