package exi

// Status is a Serializer callback's outcome (§6 "Serializer interface").
type Status int

const (
	StatusContinue Status = iota
	StatusDone
)

// Serializer is the sink the body processor (C6) delivers decoded events
// to. The encoder does not use it: EncodeBody pulls events from an
// EventSource (body.go). One implementation lives in internal/xmlio,
// producing real XML; tests use smaller in-package fakes.
//
// Each method returns (Status, error): StatusDone tells the body loop to
// stop early without that being an error; a non-nil error is wrapped as
// KindSerializerError and aborts decoding.
type Serializer interface {
	SD() (Status, error)
	ED() (Status, error)
	SE(qn QName) (Status, error)
	EE(qn QName) (Status, error)
	AT(qn QName, value TypedValue) (Status, error)
	NS(uri, prefix string, isLocalElement bool) (Status, error)
	CH(value TypedValue) (Status, error)
	CM(text string) (Status, error)
	PI(target, text string) (Status, error)
	DT(name, publicID, systemID, text string) (Status, error)
	ER(name string) (Status, error)
	SC() (Status, error)

	// NeedsPersistence reports whether this serializer retains decoded
	// events beyond the callback that delivered them (§4.6); the body
	// processor uses it to decide whether partition strings must be
	// copied out of the arena instead of referenced in place.
	NeedsPersistence() bool
}
