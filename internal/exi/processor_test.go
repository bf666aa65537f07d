package exi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexbind/exi/internal/bitio"
)

// sliceSource replays a fixed event list, the simplest possible EventSource.
type sliceSource struct {
	events []Event
	pos    int
}

func (s *sliceSource) Next() (Event, bool, error) {
	if s.pos >= len(s.events) {
		return Event{}, false, nil
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, true, nil
}

// recordingSerializer captures every event it's driven with, for
// comparison against what was encoded.
type recordingSerializer struct {
	events []Event
}

func (r *recordingSerializer) push(ev Event) (Status, error) {
	r.events = append(r.events, ev)
	return StatusContinue, nil
}

func (r *recordingSerializer) SD() (Status, error) { return r.push(Event{Kind: EventSD}) }
func (r *recordingSerializer) ED() (Status, error) { return r.push(Event{Kind: EventED}) }
func (r *recordingSerializer) SE(qn QName) (Status, error) {
	return r.push(Event{Kind: EventSE, QName: qn})
}
func (r *recordingSerializer) EE(qn QName) (Status, error) {
	return r.push(Event{Kind: EventEE, QName: qn})
}
func (r *recordingSerializer) AT(qn QName, v TypedValue) (Status, error) {
	return r.push(Event{Kind: EventAT, QName: qn, Value: v})
}
func (r *recordingSerializer) NS(uri, prefix string, isLocal bool) (Status, error) {
	return r.push(Event{Kind: EventNS, NSUri: uri, NSPrefix: prefix, NSIsLocal: isLocal})
}
func (r *recordingSerializer) CH(v TypedValue) (Status, error) {
	return r.push(Event{Kind: EventCH, Value: v})
}
func (r *recordingSerializer) CM(text string) (Status, error) {
	return r.push(Event{Kind: EventCM, Text: text})
}
func (r *recordingSerializer) PI(target, text string) (Status, error) {
	return r.push(Event{Kind: EventPI, PITarget: target, Text: text})
}
func (r *recordingSerializer) DT(name, pub, sys, text string) (Status, error) {
	return r.push(Event{Kind: EventDT, DTName: name, DTPublicID: pub, DTSystemID: sys, DTText: text})
}
func (r *recordingSerializer) ER(name string) (Status, error) {
	return r.push(Event{Kind: EventER, Text: name})
}
func (r *recordingSerializer) SC() (Status, error)          { return r.push(Event{Kind: EventSC}) }
func (r *recordingSerializer) NeedsPersistence() bool       { return false }

func sampleDocument() []Event {
	root := QName{Local: "root"}
	child := QName{Local: "item"}
	attr := QName{Local: "id"}
	return []Event{
		{Kind: EventSD},
		{Kind: EventSE, QName: root},
		{Kind: EventAT, QName: attr, Value: StringValue("42")},
		{Kind: EventSE, QName: child},
		{Kind: EventCH, Value: StringValue("first")},
		{Kind: EventEE, QName: child},
		{Kind: EventSE, QName: child}, // repeat: should take the learned/pinned production
		{Kind: EventCH, Value: StringValue("second")},
		{Kind: EventEE, QName: child},
		{Kind: EventEE, QName: root},
		{Kind: EventED},
	}
}

func TestEncodeDecodeRoundTripBitPacked(t *testing.T) {
	opts := DefaultHeaderOptions()
	events := sampleDocument()

	buf, err := Encode(&sliceSource{events: events}, opts, false, 1)
	require.NoError(t, err)
	require.NotEmpty(t, buf)

	rec := &recordingSerializer{}
	require.NoError(t, Decode(buf, rec))
	assert.Equal(t, events, rec.events)
}

func TestEncodeDecodeRoundTripByteAlignedWithCookie(t *testing.T) {
	opts := HeaderOptions{Alignment: AlignmentByteAligned, ValueCapacity: UnboundedCapacity}
	events := sampleDocument()

	buf, err := Encode(&sliceSource{events: events}, opts, true, 1)
	require.NoError(t, err)

	rec := &recordingSerializer{}
	require.NoError(t, Decode(buf, rec))
	assert.Equal(t, events, rec.events)
}

func TestEncodeDecodeRoundTripStrictMode(t *testing.T) {
	opts := HeaderOptions{Strict: true, ValueCapacity: UnboundedCapacity}
	events := sampleDocument()

	buf, err := Encode(&sliceSource{events: events}, opts, false, 1)
	require.NoError(t, err)

	rec := &recordingSerializer{}
	require.NoError(t, Decode(buf, rec))
	assert.Equal(t, events, rec.events)
}

func TestEncodeDecodeRoundTripPreservesPrefix(t *testing.T) {
	opts := HeaderOptions{Preserve: Preserve{Prefixes: true}, ValueCapacity: UnboundedCapacity}
	events := []Event{
		{Kind: EventSD},
		{Kind: EventSE, QName: QName{URI: "urn:example", Local: "root", Prefix: "x"}},
		{Kind: EventAT, QName: QName{URI: "urn:example", Local: "id", Prefix: "x"}, Value: StringValue("1")},
		{Kind: EventEE, QName: QName{URI: "urn:example", Local: "root"}},
		{Kind: EventED},
	}

	buf, err := Encode(&sliceSource{events: events}, opts, false, 1)
	require.NoError(t, err)

	rec := &recordingSerializer{}
	require.NoError(t, Decode(buf, rec))
	require.Len(t, rec.events, len(events))
	assert.Equal(t, "x", rec.events[1].QName.Prefix, "SE should carry the preserved prefix")
	assert.Equal(t, "x", rec.events[2].QName.Prefix, "AT should carry the preserved prefix")
}

func TestEncodeDecodeRoundTripWithoutPreserveDropsPrefix(t *testing.T) {
	opts := DefaultHeaderOptions()
	events := []Event{
		{Kind: EventSD},
		{Kind: EventSE, QName: QName{Local: "root", Prefix: "x"}},
		{Kind: EventEE, QName: QName{Local: "root"}},
		{Kind: EventED},
	}

	buf, err := Encode(&sliceSource{events: events}, opts, false, 1)
	require.NoError(t, err)

	rec := &recordingSerializer{}
	require.NoError(t, Decode(buf, rec))
	assert.Empty(t, rec.events[1].QName.Prefix, "Prefix is only carried when Preserve.Prefixes is set")
}

func TestSCTransitionsToFragmentAndRestoresParentState(t *testing.T) {
	opts := HeaderOptions{SelfContained: true, Alignment: AlignmentByteAligned, ValueCapacity: UnboundedCapacity}
	events := []Event{
		{Kind: EventSD},
		{Kind: EventSE, QName: QName{Local: "root"}},
		{Kind: EventSC},
		{Kind: EventSE, QName: QName{Local: "embedded"}},
		{Kind: EventCH, Value: StringValue("inner")},
		{Kind: EventEE, QName: QName{Local: "embedded"}},
		{Kind: EventCH, Value: StringValue("after")},
		{Kind: EventEE, QName: QName{Local: "root"}},
		{Kind: EventED},
	}

	buf, err := Encode(&sliceSource{events: events}, opts, false, 1)
	require.NoError(t, err)

	rec := &recordingSerializer{}
	require.NoError(t, Decode(buf, rec))
	assert.Equal(t, events, rec.events, "the parent's ElementContent grammar must still be active for the CH/EE that follow the fragment")
}

func TestDecodeFragmentStandaloneEntryPoint(t *testing.T) {
	opts := HeaderOptions{Alignment: AlignmentByteAligned, ValueCapacity: UnboundedCapacity}
	w := bitio.NewWriter()
	ch := NewEncoderChannel(w, true)
	p := NewProcessor(opts)
	p.grammar.PushFragment()
	if err := p.encodeEvent(ch, p.grammar.CurrentTable(), Event{Kind: EventSE, QName: QName{Local: "item"}}, new(bool)); err != nil {
		t.Fatal(err)
	}
	if err := p.encodeEvent(ch, p.grammar.CurrentTable(), Event{Kind: EventCH, Value: StringValue("v")}, new(bool)); err != nil {
		t.Fatal(err)
	}
	if err := p.encodeEvent(ch, p.grammar.CurrentTable(), Event{Kind: EventEE, QName: QName{Local: "item"}}, new(bool)); err != nil {
		t.Fatal(err)
	}
	buf, _ := w.Finalize()

	rec := &recordingSerializer{}
	require.NoError(t, DecodeFragment(buf, opts, rec))
	want := []Event{
		{Kind: EventSD},
		{Kind: EventSE, QName: QName{Local: "item"}},
		{Kind: EventCH, Value: StringValue("v")},
		{Kind: EventEE, QName: QName{Local: "item"}},
		{Kind: EventED},
	}
	assert.Equal(t, want, rec.events)
}

func TestPersistenceConsultDeliversStringsWhenRequested(t *testing.T) {
	opts := DefaultHeaderOptions()
	events := []Event{
		{Kind: EventSD},
		{Kind: EventSE, QName: QName{Local: "root"}},
		{Kind: EventCH, Value: StringValue("hello")},
		{Kind: EventEE, QName: QName{Local: "root"}},
		{Kind: EventED},
	}
	buf, err := Encode(&sliceSource{events: events}, opts, false, 1)
	require.NoError(t, err)

	rec := &persistingSerializer{recordingSerializer: recordingSerializer{}}
	require.NoError(t, Decode(buf, rec))

	var ch string
	for _, ev := range rec.events {
		if ev.Kind == EventCH {
			ch = ev.Value.Lex
		}
	}
	assert.Equal(t, "hello", ch)
}

// persistingSerializer answers NeedsPersistence() true; its captured
// strings must remain independent copies rather than table-owned views.
type persistingSerializer struct{ recordingSerializer }

func (r *persistingSerializer) NeedsPersistence() bool { return true }

func TestDecodeRejectsUnexpectedEE(t *testing.T) {
	events := []Event{
		{Kind: EventSD},
		{Kind: EventEE, QName: QName{Local: "root"}},
	}
	opts := DefaultHeaderOptions()
	// Encoding a grammar-illegal sequence isn't representable through the
	// public API in a way that round-trips; instead verify the grammar's
	// own transition guard directly.
	g := NewGrammar(opts)
	g.StartDocument()
	err := g.PopElement()
	assert.ErrorIs(t, err, ErrKind(KindUnexpectedEE))
	_ = events
}
