package exi

import (
	"fmt"
	"unicode/utf8"

	Text "github.com/linkdotnet/golang-stringbuilder"

	"github.com/hexbind/exi/internal/bitio"
	"github.com/hexbind/exi/utils"
)

// DecoderChannel reads EXI primitive atoms (C2) from a bit/byte stream (C1).
// Grounded on the teacher's core.DecoderChannel (core/channels.go), trimmed
// to the schemaless datatype set this core supports: n-bit unsigned, boolean,
// string, unsigned/signed integer and decimal. Float/dateTime/binary are
// handled by datatype.go on top of these primitives.
type DecoderChannel struct {
	r       *bitio.Reader
	aligned bool // true: align() before every atom (byte-aligned/pre-compression/compression)
}

func NewDecoderChannel(r *bitio.Reader, aligned bool) *DecoderChannel {
	return &DecoderChannel{r: r, aligned: aligned}
}

func (c *DecoderChannel) Position() (int, int) {
	return c.r.Tell()
}

func (c *DecoderChannel) align() {
	if c.aligned {
		c.r.Align()
	}
}

func (c *DecoderChannel) fail(kind Kind, err error) error {
	bo, bi := c.r.Tell()
	return newError(kind, bo, bi, "", err)
}

// Align advances to the next byte boundary unconditionally (used at the
// header/body seam, §4.5 step 6).
func (c *DecoderChannel) Align() {
	c.r.Align()
}

func (c *DecoderChannel) Skip(n int) error {
	for i := 0; i < n; i++ {
		if _, err := c.ReadNBitUnsignedInt(8); err != nil {
			return err
		}
	}
	return nil
}

func (c *DecoderChannel) ReadBoolean() (bool, error) {
	c.align()
	bit, err := c.r.ReadBit()
	if err != nil {
		return false, c.fail(KindEndOfStream, err)
	}
	return bit == 1, nil
}

// ReadNBitUnsignedInt reads an n-bit unsigned integer (n may be 0, yielding 0).
func (c *DecoderChannel) ReadNBitUnsignedInt(n int) (int, error) {
	if n == 0 {
		return 0, nil
	}
	c.align()
	v, err := c.r.ReadBits(n)
	if err != nil {
		return 0, c.fail(KindEndOfStream, err)
	}
	return int(v), nil
}

// ReadUnsignedInteger decodes the 7-bit-per-octet unsigned integer (§4.1/4.2).
func (c *DecoderChannel) ReadUnsignedInteger() (uint64, error) {
	c.align()
	v, err := c.r.ReadUnsignedVarint()
	if err != nil {
		return 0, c.fail(KindNumericOverflow, err)
	}
	return v, nil
}

// ReadSignedInteger decodes a sign bit followed by an unsigned magnitude.
func (c *DecoderChannel) ReadSignedInteger() (negative bool, magnitude uint64, err error) {
	neg, err := c.ReadBoolean()
	if err != nil {
		return false, 0, err
	}
	mag, err := c.ReadUnsignedInteger()
	if err != nil {
		return false, 0, err
	}
	return neg, mag, nil
}

// ReadString decodes a length-prefixed sequence of Unicode scalar values.
func (c *DecoderChannel) ReadString() (string, error) {
	n, err := c.ReadUnsignedInteger()
	if err != nil {
		return "", err
	}
	return c.ReadStringOnly(int(n))
}

// ReadStringOnly decodes exactly length scalar values (length prefix already
// consumed by the caller, e.g. when it doubles as a table miss discriminant).
func (c *DecoderChannel) ReadStringOnly(length int) (string, error) {
	if length == 0 {
		return "", nil
	}
	var sb Text.StringBuilder
	for i := 0; i < length; i++ {
		cp, err := c.ReadUnsignedInteger()
		if err != nil {
			return "", err
		}
		r := rune(cp)
		if !utils.IsValidCodePoint(int(cp)) || !utf8.ValidRune(r) {
			return "", c.fail(KindInvalidUtf8, fmt.Errorf("invalid scalar value U+%X", cp))
		}
		sb.Append(string(r))
	}
	return sb.ToString(), nil
}

// ReadDecimalParts decodes sign + integral + reversed-fraction-digits per
// §4.2. The magnitude of each part is capped at 64 bits; overflow is
// reported as KindNumericOverflow (the teacher's core/values.go uses
// arbitrary-precision big.Int/apd.Decimal throughout; this scoped rewrite
// keeps apd.Decimal as the value type — see datatype.go — but bounds the
// wire magnitudes it is built from to what a single EXI unsigned integer
// atom realistically carries).
func (c *DecoderChannel) ReadDecimalParts() (negative bool, integral uint64, fractionDigitsReversed uint64, err error) {
	negative, err = c.ReadBoolean()
	if err != nil {
		return
	}
	integral, err = c.ReadUnsignedInteger()
	if err != nil {
		return
	}
	fractionDigitsReversed, err = c.ReadUnsignedInteger()
	return
}

// EncoderChannel mirrors DecoderChannel for writing.
type EncoderChannel struct {
	w       *bitio.Writer
	aligned bool
}

func NewEncoderChannel(w *bitio.Writer, aligned bool) *EncoderChannel {
	return &EncoderChannel{w: w, aligned: aligned}
}

func (c *EncoderChannel) align() {
	if c.aligned {
		c.w.Align()
	}
}

func (c *EncoderChannel) Align() {
	c.w.Align()
}

func (c *EncoderChannel) Len() int {
	return c.w.Len()
}

func (c *EncoderChannel) WriteBoolean(b bool) {
	c.align()
	if b {
		c.w.WriteBit(1)
	} else {
		c.w.WriteBit(0)
	}
}

func (c *EncoderChannel) WriteNBitUnsignedInt(v, n int) {
	if n == 0 {
		return
	}
	c.align()
	c.w.WriteBits(uint64(v), n)
}

func (c *EncoderChannel) WriteUnsignedInteger(v uint64) {
	c.align()
	c.w.WriteUnsignedVarint(v)
}

func (c *EncoderChannel) WriteSignedInteger(negative bool, magnitude uint64) {
	c.WriteBoolean(negative)
	c.WriteUnsignedInteger(magnitude)
}

func (c *EncoderChannel) WriteString(s string) {
	n := utf8.RuneCountInString(s)
	c.WriteUnsignedInteger(uint64(n))
	c.WriteStringOnly(s)
}

func (c *EncoderChannel) WriteStringOnly(s string) {
	for _, r := range s {
		c.WriteUnsignedInteger(uint64(r))
	}
}

func (c *EncoderChannel) WriteDecimalParts(negative bool, integral, fractionDigitsReversed uint64) {
	c.WriteBoolean(negative)
	c.WriteUnsignedInteger(integral)
	c.WriteUnsignedInteger(fractionDigitsReversed)
}

