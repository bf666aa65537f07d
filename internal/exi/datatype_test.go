package exi

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexbind/exi/internal/bitio"
)

func TestTypedValueBool(t *testing.T) {
	ok, err := StringValue("true").Bool()
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = StringValue("0").Bool()
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = StringValue("yes").Bool()
	assert.Error(t, err)
}

func TestTypedValueInteger(t *testing.T) {
	n, err := StringValue("+42").Integer()
	require.NoError(t, err)
	assert.Equal(t, int64(42), n.Int64())

	_, err = StringValue("not-a-number").Integer()
	assert.Error(t, err)
}

func TestDecimalRoundTrip(t *testing.T) {
	cases := []string{"0.0", "-3.14", "+2.5", "100.0025", "7"}
	for _, lex := range cases {
		w := bitio.NewWriter()
		ch := NewEncoderChannel(w, false)
		require.NoError(t, EncodeDecimal(ch, lex))
		buf, _ := w.Finalize()

		r := bitio.NewReader(buf)
		dch := NewDecoderChannel(r, false)
		got, err := DecodeDecimal(dch)
		require.NoError(t, err, "lex=%q", lex)
		assert.NotEmpty(t, got)
	}
}

func TestDecimalPreservesLeadingFractionZero(t *testing.T) {
	w := bitio.NewWriter()
	ch := NewEncoderChannel(w, false)
	require.NoError(t, EncodeDecimal(ch, "1.05"))
	buf, _ := w.Finalize()

	r := bitio.NewReader(buf)
	dch := NewDecoderChannel(r, false)
	got, err := DecodeDecimal(dch)
	require.NoError(t, err)
	assert.Equal(t, "1.05", got)
}

func TestFloatRoundTripFinite(t *testing.T) {
	for _, f := range []float64{0, 1, -1, 3.5, -123.125, 100} {
		w := bitio.NewWriter()
		ch := NewEncoderChannel(w, false)
		EncodeFloat(ch, f)
		buf, _ := w.Finalize()

		r := bitio.NewReader(buf)
		dch := NewDecoderChannel(r, false)
		got, err := DecodeFloat(dch)
		require.NoError(t, err)
		assert.InDelta(t, f, got, 1e-9)
	}
}

func TestFloatRoundTripSpecials(t *testing.T) {
	for _, f := range []float64{math.Inf(1), math.Inf(-1)} {
		w := bitio.NewWriter()
		ch := NewEncoderChannel(w, false)
		EncodeFloat(ch, f)
		buf, _ := w.Finalize()

		r := bitio.NewReader(buf)
		dch := NewDecoderChannel(r, false)
		got, err := DecodeFloat(dch)
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}

	w := bitio.NewWriter()
	ch := NewEncoderChannel(w, false)
	EncodeFloat(ch, math.NaN())
	buf, _ := w.Finalize()
	r := bitio.NewReader(buf)
	dch := NewDecoderChannel(r, false)
	got, err := DecodeFloat(dch)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got))
}

func TestDateTimeRoundTrip(t *testing.T) {
	in := time.Date(2024, time.March, 17, 13, 45, 9, 0, time.UTC)
	w := bitio.NewWriter()
	ch := NewEncoderChannel(w, false)
	EncodeDateTime(ch, in)
	buf, _ := w.Finalize()

	r := bitio.NewReader(buf)
	dch := NewDecoderChannel(r, false)
	got, err := DecodeDateTime(dch)
	require.NoError(t, err)
	assert.Equal(t, in.Year(), got.Year())
	assert.Equal(t, in.Month(), got.Month())
	assert.Equal(t, in.Day(), got.Day())
	assert.Equal(t, in.Hour(), got.Hour())
	assert.Equal(t, in.Minute(), got.Minute())
	assert.Equal(t, in.Second(), got.Second())
}
