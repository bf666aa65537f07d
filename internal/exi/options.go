package exi

import "fmt"

// Alignment is the stream's bit/byte alignment discipline (§1 "Alignment
// mode"). The body processor treats PreCompression and Compression
// identically for layout purposes; only the outer block framing differs
// (compression is out of scope here, see DESIGN.md).
type Alignment int

const (
	AlignmentBitPacked Alignment = iota
	AlignmentByteAligned
	AlignmentPreCompression
	AlignmentCompression
)

func (a Alignment) byteAligned() bool {
	return a != AlignmentBitPacked
}

func (a Alignment) String() string {
	switch a {
	case AlignmentBitPacked:
		return "bit-packed"
	case AlignmentByteAligned:
		return "byte-aligned"
	case AlignmentPreCompression:
		return "pre-compression"
	case AlignmentCompression:
		return "compression"
	default:
		return "unknown"
	}
}

// Preserve is the bitset of lexical fidelity features a stream keeps
// through the round trip (§1 "Preserve bitset", GLOSSARY "Preserve set").
type Preserve struct {
	Comments      bool
	DTDs          bool
	LexicalValues bool
	PIs           bool
	Prefixes      bool
}

func (p Preserve) any() bool {
	return p.Comments || p.DTDs || p.LexicalValues || p.PIs || p.Prefixes
}

func (p Preserve) subsetOfLexicalValuesOnly() bool {
	return !p.Comments && !p.DTDs && !p.PIs && !p.Prefixes
}

// HeaderOptions is the fully-decoded options record (§1, §5 C5). It is
// immutable for the lifetime of one Decode/Encode call.
type HeaderOptions struct {
	Alignment      Alignment
	Compression    bool
	Strict         bool
	SelfContained  bool
	Preserve       Preserve
	DatatypeMap    bool
	SchemaID       string
	ValueCapacity  int // UnboundedCapacity, DisabledCapacity, or a positive bound
	BlockSize      int // only meaningful when Compression is set

	// Canonical requests Canonical EXI encoding (§12 "Supplemented
	// features"): off by default. The header-level rules this core
	// reproduces are applied by EncodeHeader/normalizeCanonical — no
	// cookie, and Compression collapsed to PreCompression; attribute/
	// namespace-declaration canonical ordering is not reproduced (see
	// DESIGN.md — it would require buffering a start tag's events,
	// which the one-event-at-a-time Serializer/EventSource contract in
	// §4.6 does not support).
	Canonical bool

	// SharedStrings pre-seeds the global value partition (§4.3) with an
	// out-of-band agreed string list before the document is decoded or
	// encoded, exactly as the teacher's experimental SetSharedStrings
	// does. Not part of the in-band options wire format: both sides
	// must be constructed with the same list.
	SharedStrings []string
}

// DefaultHeaderOptions returns the schemaless default: bit-packed, no
// compression, no strictness, nothing self-contained, no Preserve flags,
// unbounded value partition. Mirrors the teacher's EXIFactory defaults
// (core/options.go in the original tree) collapsed onto this core's
// narrower option surface.
func DefaultHeaderOptions() HeaderOptions {
	return HeaderOptions{
		Alignment:     AlignmentBitPacked,
		ValueCapacity: UnboundedCapacity,
	}
}

// normalizeCanonical applies the subset of Canonical EXI's header-level
// rules this core reproduces (§12 "Supplemented features", grounded on
// the teacher's updateFactoryAccordingCanonicalEXI): when Canonical is
// set and Alignment requests Compression, it is forced down to
// PreCompression, matching "pre-compress MUST be used instead of
// compression". The no-cookie rule is applied by EncodeHeader directly,
// since it governs a byte EncodeHeader writes, not a HeaderOptions field.
func (o HeaderOptions) normalizeCanonical() HeaderOptions {
	if o.Canonical && o.Alignment == AlignmentCompression {
		o.Alignment = AlignmentPreCompression
	}
	return o
}

// Validate enforces the four cross-option invariants (§1 "Invariants
// (§7)"). It stops at the first violation and returns it; invariants after
// that one are not checked.
func (o HeaderOptions) Validate() error {
	if o.Compression && o.Alignment != AlignmentPreCompression {
		return newError(KindAlignmentCompressionMismatch, 0, 0, "", fmt.Errorf("compression requires pre-compression alignment, got %s", o.Alignment))
	}
	if o.Strict {
		if !o.Preserve.subsetOfLexicalValuesOnly() {
			return newError(KindStrictViolation, 0, 0, "", fmt.Errorf("strict mode allows only LexicalValues in Preserve, got %+v", o.Preserve))
		}
		if o.SelfContained {
			return newError(KindStrictViolation, 0, 0, "", fmt.Errorf("strict mode forbids SelfContained"))
		}
	}
	if o.DatatypeMap {
		if o.Preserve.LexicalValues {
			return newError(KindDatatypeMapRequiresSchema, 0, 0, "", fmt.Errorf("DatatypeMap is incompatible with Preserve.LexicalValues"))
		}
		if o.SchemaID == "" {
			return newError(KindDatatypeMapRequiresSchema, 0, 0, "", fmt.Errorf("DatatypeMap requires a SchemaID"))
		}
	}
	if o.SelfContained && o.Alignment == AlignmentPreCompression {
		return newError(KindSelfContainedWithPreCompression, 0, 0, "", fmt.Errorf("SelfContained is incompatible with pre-compression alignment"))
	}
	return nil
}
