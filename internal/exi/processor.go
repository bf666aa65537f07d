// Package exi implements the EXI (Efficient XML Interchange) binary XML
// codec core: bit/byte stream I/O, the header codec, the built-in
// (schemaless) grammar engine, string/value table partitions, and the
// body processor that drives a Serializer from a decoded stream or an
// EventSource into an encoded one.
//
// This package owns no global state: every Decode/Encode call builds its
// own Processor, string tables, and grammar, so concurrent calls on
// disjoint buffers never interfere (§5 "Concurrency & resource model").
package exi

import "github.com/hexbind/exi/internal/bitio"

// Decode reads one complete EXI document from buf and delivers its events
// to ser. Cookie presence is detected from the wire, so unlike Encode it
// takes no cookie argument.
func Decode(buf []byte, ser Serializer) error {
	r := bitio.NewReader(buf)
	header, ch, err := DecodeHeader(r)
	if err != nil {
		return err
	}
	p := NewProcessor(header.Options)
	return p.DecodeBody(ch, ser)
}

// DecodeWithOptions is like Decode but lets the caller supply options
// out-of-band (§4.5 step 3: "if clear, options must be provided
// out-of-band by the caller"). If the stream's options-presence bit is
// set, the in-band options win over oob; oob is only consulted when the
// stream declares none.
func DecodeWithOptions(buf []byte, oob HeaderOptions, ser Serializer) error {
	r := bitio.NewReader(buf)
	header, ch, err := DecodeHeaderWithFallback(r, oob)
	if err != nil {
		return err
	}
	p := NewProcessor(header.Options)
	return p.DecodeBody(ch, ser)
}

// DecodeFragment decodes a standalone self-contained fragment region
// (§4.4 SC/Fragment, §12 Supplemented features): data holds just the
// region's bytes, already byte-aligned at offset 0, under opts (agreed
// out-of-band — a fragment carries no header of its own). Grounded on
// the teacher's EXIBodyDecoderInOrderSC.DecodeStartSelfContainedFragment
// (core/coders.go), which the same way decodes an SC region as a
// standalone document once its byte offset has been located.
func DecodeFragment(data []byte, opts HeaderOptions, ser Serializer) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	r := bitio.NewReader(data)
	ch := NewDecoderChannel(r, opts.Alignment.byteAligned())
	p := NewProcessor(opts)
	return p.DecodeFragmentBody(ch, ser)
}

// Encode writes one complete EXI document pulling events from src, using
// opts to configure alignment/fidelity/compaction, and optionally
// emitting the 4-byte cookie.
func Encode(src EventSource, opts HeaderOptions, withCookie bool, version int) ([]byte, error) {
	w := bitio.NewWriter()
	ch, err := EncodeHeader(w, withCookie, version, opts)
	if err != nil {
		return nil, err
	}
	p := NewProcessor(opts)
	if err := p.EncodeBody(ch, src); err != nil {
		return nil, err
	}
	buf, _ := w.Finalize()
	return buf, nil
}
