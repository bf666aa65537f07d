package inspect

import "github.com/hexbind/exi/internal/exi"

// Recorder wraps a Serializer and appends a Record for every event it
// forwards, timestamped against the decoder channel's current bit
// position — the raw material for the inspect TUI's event tree. The
// wrapped Serializer still drives real output (XML, etc); Recorder only
// observes.
type Recorder struct {
	exi.Serializer
	ch      *exi.DecoderChannel
	records []Record
}

func NewRecorder(inner exi.Serializer, ch *exi.DecoderChannel) *Recorder {
	return &Recorder{Serializer: inner, ch: ch}
}

func (r *Recorder) Records() []Record {
	return r.records
}

func (r *Recorder) record(ev exi.Event) {
	byteOff, bitOff := r.ch.Position()
	r.records = append(r.records, Record{Event: ev, BitOffset: byteOff*8 + bitOff})
}

func (r *Recorder) SD() (exi.Status, error) {
	r.record(exi.Event{Kind: exi.EventSD})
	return r.Serializer.SD()
}

func (r *Recorder) ED() (exi.Status, error) {
	r.record(exi.Event{Kind: exi.EventED})
	return r.Serializer.ED()
}

func (r *Recorder) SE(qn exi.QName) (exi.Status, error) {
	r.record(exi.Event{Kind: exi.EventSE, QName: qn})
	return r.Serializer.SE(qn)
}

func (r *Recorder) EE(qn exi.QName) (exi.Status, error) {
	r.record(exi.Event{Kind: exi.EventEE, QName: qn})
	return r.Serializer.EE(qn)
}

func (r *Recorder) AT(qn exi.QName, value exi.TypedValue) (exi.Status, error) {
	r.record(exi.Event{Kind: exi.EventAT, QName: qn, Value: value})
	return r.Serializer.AT(qn, value)
}

func (r *Recorder) NS(uri, prefix string, isLocalElement bool) (exi.Status, error) {
	r.record(exi.Event{Kind: exi.EventNS, NSUri: uri, NSPrefix: prefix, NSIsLocal: isLocalElement})
	return r.Serializer.NS(uri, prefix, isLocalElement)
}

func (r *Recorder) CH(value exi.TypedValue) (exi.Status, error) {
	r.record(exi.Event{Kind: exi.EventCH, Value: value})
	return r.Serializer.CH(value)
}

func (r *Recorder) CM(text string) (exi.Status, error) {
	r.record(exi.Event{Kind: exi.EventCM, Text: text})
	return r.Serializer.CM(text)
}

func (r *Recorder) PI(target, text string) (exi.Status, error) {
	r.record(exi.Event{Kind: exi.EventPI, PITarget: target, Text: text})
	return r.Serializer.PI(target, text)
}

func (r *Recorder) DT(name, publicID, systemID, text string) (exi.Status, error) {
	r.record(exi.Event{Kind: exi.EventDT, DTName: name, DTPublicID: publicID, DTSystemID: systemID, DTText: text})
	return r.Serializer.DT(name, publicID, systemID, text)
}

func (r *Recorder) ER(name string) (exi.Status, error) {
	r.record(exi.Event{Kind: exi.EventER, Text: name})
	return r.Serializer.ER(name)
}

func (r *Recorder) SC() (exi.Status, error) {
	r.record(exi.Event{Kind: exi.EventSC})
	return r.Serializer.SC()
}
