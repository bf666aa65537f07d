package exi

import (
	"github.com/hexbind/exi/internal/bitio"
)

// exiCookie is the 4-byte magic, present only when the caller chose to
// emit it (§6 "Input format").
var exiCookie = [4]byte{0x24, 0x45, 0x58, 0x49} // "$EXI"

// Header is the decoded preamble (C5, §6): cookie presence, version, and
// the options record that governs the rest of the stream.
type Header struct {
	HasCookie     bool
	PreviewVersion bool
	Version       int
	Options       HeaderOptions
}

// DecodeHeader reads the cookie (if present), distinguishing bits,
// options-presence bit, version, and the in-band options block; a
// missing options-presence bit is fatal (§4.5 step 3 "OptionsMissing").
// Grounded on the teacher's core/exi_header.go ReadHeader, rewritten
// around this core's direct bit-field option encoding (see encodeOptions
// below) instead of a nested EXI-options-schema grammar instance.
func DecodeHeader(r *bitio.Reader) (Header, *DecoderChannel, error) {
	return decodeHeader(r, nil)
}

// DecodeHeaderWithFallback is DecodeHeader's out-of-band counterpart
// (§4.5 step 3): when the stream's options-presence bit is clear, oob is
// used instead of failing with OptionsMissing. In-band options, when
// present, still win over oob.
func DecodeHeaderWithFallback(r *bitio.Reader, oob HeaderOptions) (Header, *DecoderChannel, error) {
	return decodeHeader(r, &oob)
}

func decodeHeader(r *bitio.Reader, oob *HeaderOptions) (Header, *DecoderChannel, error) {
	var h Header

	// Detect cookie: first two bits are "00" only when the cookie is
	// present (the cookie's first byte 0x24 = 0b00100100).
	save := *r
	b0, err := r.ReadBits(2)
	if err != nil {
		return h, nil, headerErr(r, KindEndOfStream, err)
	}
	if b0 == 0 {
		*r = save
		var cookie [4]byte
		for i := range cookie {
			bb, err := r.ReadByte()
			if err != nil {
				return h, nil, headerErr(r, KindEndOfStream, err)
			}
			cookie[i] = bb
		}
		if cookie != exiCookie {
			return h, nil, headerErr(r, KindMalformedCookie, nil)
		}
		h.HasCookie = true
	} else {
		*r = save
	}

	distinguishing, err := r.ReadBits(2)
	if err != nil {
		return h, nil, headerErr(r, KindEndOfStream, err)
	}
	if distinguishing != 0b10 {
		return h, nil, headerErr(r, KindBadDistinguishingBits, nil)
	}

	optionsPresent, err := r.ReadBit()
	if err != nil {
		return h, nil, headerErr(r, KindEndOfStream, err)
	}

	preview, err := r.ReadBit()
	if err != nil {
		return h, nil, headerErr(r, KindEndOfStream, err)
	}
	h.PreviewVersion = preview == 1

	version, err := decodeVersionChunks(r)
	if err != nil {
		return h, nil, err
	}
	h.Version = version
	if h.PreviewVersion {
		return h, nil, headerErr(r, KindPreviewVersionRejected, nil)
	}

	var opts HeaderOptions
	if optionsPresent == 0 {
		if oob == nil {
			return h, nil, headerErr(r, KindOptionsMissing, nil)
		}
		opts = *oob
	} else {
		opts, err = decodeOptions(r)
		if err != nil {
			return h, nil, err
		}
	}
	if verr := opts.Validate(); verr != nil {
		return h, nil, verr
	}
	h.Options = opts

	// Alignment pad: advance to the next byte boundary for every mode but
	// bit-packed (§6 "Alignment pad").
	if opts.Alignment.byteAligned() {
		r.Align()
	}

	ch := NewDecoderChannel(r, opts.Alignment.byteAligned())
	return h, ch, nil
}

// decodeVersionChunks reads 4-bit chunks, summing them, terminating on a
// chunk below 0b1111 (§6 "Version").
func decodeVersionChunks(r *bitio.Reader) (int, error) {
	total := 0
	for {
		v, err := r.ReadBits(4)
		if err != nil {
			return 0, headerErr(r, KindEndOfStream, err)
		}
		total += int(v)
		if v < 0b1111 {
			return total + 1, nil
		}
	}
}

// decodeOptions reads the simplified direct bit-field options block this
// core uses in place of the W3C EXI-options XML document (see DESIGN.md
// for the scoping rationale): one presence/value bit per flag, followed
// by a capacity indicator and, if DatatypeMap is set, a schema identifier
// string.
func decodeOptions(r *bitio.Reader) (HeaderOptions, error) {
	var o HeaderOptions

	align, err := r.ReadBits(2)
	if err != nil {
		return o, headerErr(r, KindOptionsInvalid, err)
	}
	o.Alignment = Alignment(align)

	flags, err := r.ReadBits(8)
	if err != nil {
		return o, headerErr(r, KindOptionsInvalid, err)
	}
	o.Compression = flags&(1<<0) != 0
	o.Strict = flags&(1<<1) != 0
	o.SelfContained = flags&(1<<2) != 0
	o.Preserve.Comments = flags&(1<<3) != 0
	o.Preserve.DTDs = flags&(1<<4) != 0
	o.Preserve.LexicalValues = flags&(1<<5) != 0
	o.Preserve.PIs = flags&(1<<6) != 0
	o.Canonical = flags&(1<<7) != 0

	prefixesAndMap, err := r.ReadBits(2)
	if err != nil {
		return o, headerErr(r, KindOptionsInvalid, err)
	}
	o.Preserve.Prefixes = prefixesAndMap&(1<<0) != 0
	o.DatatypeMap = prefixesAndMap&(1<<1) != 0

	capKind, err := r.ReadBits(2)
	if err != nil {
		return o, headerErr(r, KindOptionsInvalid, err)
	}
	switch capKind {
	case 0:
		o.ValueCapacity = UnboundedCapacity
	case 1:
		o.ValueCapacity = DisabledCapacity
	default:
		v, err := r.ReadUnsignedVarint()
		if err != nil {
			return o, headerErr(r, KindOptionsInvalid, err)
		}
		o.ValueCapacity = int(v)
	}

	if o.Compression {
		v, err := r.ReadUnsignedVarint()
		if err != nil {
			return o, headerErr(r, KindOptionsInvalid, err)
		}
		o.BlockSize = int(v)
	}

	if o.DatatypeMap {
		n, err := r.ReadUnsignedVarint()
		if err != nil {
			return o, headerErr(r, KindOptionsInvalid, err)
		}
		id, err := readAsciiString(r, int(n))
		if err != nil {
			return o, headerErr(r, KindOptionsInvalid, err)
		}
		o.SchemaID = id
	}

	return o.normalizeCanonical(), nil
}

func readAsciiString(r *bitio.Reader, n int) (string, error) {
	buf := make([]byte, n)
	for i := range buf {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		buf[i] = b
	}
	return string(buf), nil
}

func headerErr(r *bitio.Reader, kind Kind, err error) error {
	bo, bi := r.Tell()
	return newError(kind, bo, bi, "header", err)
}

// EncodeHeader mirrors DecodeHeader: cookie (if requested), distinguishing
// bits, options-presence bit, version, options block, alignment pad.
func EncodeHeader(w *bitio.Writer, withCookie bool, version int, opts HeaderOptions) (*EncoderChannel, error) {
	opts = opts.normalizeCanonical()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	// Canonical EXI Header MUST NOT begin with the optional EXI Cookie.
	if opts.Canonical {
		withCookie = false
	}

	if withCookie {
		for _, b := range exiCookie {
			w.WriteByte(b)
		}
	}
	w.WriteBits(0b10, 2)
	w.WriteBit(1) // options always in-band in this core
	w.WriteBit(0) // preview bit: this core never emits a preview version
	encodeVersionChunks(w, version)
	encodeOptions(w, opts)

	if opts.Alignment.byteAligned() {
		w.Align()
	}
	return NewEncoderChannel(w, opts.Alignment.byteAligned()), nil
}

func encodeVersionChunks(w *bitio.Writer, version int) {
	v := version - 1
	for v >= 0b1111 {
		w.WriteBits(0b1111, 4)
		v -= 0b1111
	}
	w.WriteBits(uint64(v), 4)
}

func encodeOptions(w *bitio.Writer, o HeaderOptions) {
	o = o.normalizeCanonical()
	w.WriteBits(uint64(o.Alignment), 2)

	var flags uint64
	if o.Compression {
		flags |= 1 << 0
	}
	if o.Strict {
		flags |= 1 << 1
	}
	if o.SelfContained {
		flags |= 1 << 2
	}
	if o.Preserve.Comments {
		flags |= 1 << 3
	}
	if o.Preserve.DTDs {
		flags |= 1 << 4
	}
	if o.Preserve.LexicalValues {
		flags |= 1 << 5
	}
	if o.Preserve.PIs {
		flags |= 1 << 6
	}
	if o.Canonical {
		flags |= 1 << 7
	}
	w.WriteBits(flags, 8)

	var pm uint64
	if o.Preserve.Prefixes {
		pm |= 1 << 0
	}
	if o.DatatypeMap {
		pm |= 1 << 1
	}
	w.WriteBits(pm, 2)

	switch {
	case o.ValueCapacity == UnboundedCapacity:
		w.WriteBits(0, 2)
	case o.ValueCapacity == DisabledCapacity:
		w.WriteBits(1, 2)
	default:
		w.WriteBits(2, 2)
		w.WriteUnsignedVarint(uint64(o.ValueCapacity))
	}

	if o.Compression {
		w.WriteUnsignedVarint(uint64(o.BlockSize))
	}

	if o.DatatypeMap {
		w.WriteUnsignedVarint(uint64(len(o.SchemaID)))
		for i := 0; i < len(o.SchemaID); i++ {
			w.WriteByte(o.SchemaID[i])
		}
	}
}
