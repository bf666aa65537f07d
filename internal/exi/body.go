package exi

import (
	"fmt"
	"strings"
)

// matches reports whether production p can carry event ev.
func matches(p Production, ev Event) bool {
	if p.Sub != nil || p.Kind != ev.Kind {
		return false
	}
	switch p.Kind {
	case EventSE, EventAT:
		if p.Pinned {
			// Prefix plays no part in qname identity (§8 scenario 5):
			// the same URI/Local still matches a pinned production
			// however its Prefix happens to vary between occurrences.
			return p.QName.URI == ev.QName.URI && p.QName.Local == ev.QName.Local
		}
		return true
	default:
		return true
	}
}

// find locates the production (and its multi-level code path) matching
// ev, descending into nested tables as needed (§4.4 "code reading
// algorithm" run in reverse for encoding).
func (t *codeTable) find(ev Event) ([]int, Production, bool) {
	for i, p := range t.entries {
		if p.Sub != nil {
			if path, mp, ok := p.Sub.find(ev); ok {
				return append([]int{i}, path...), mp, true
			}
			continue
		}
		if matches(p, ev) {
			return []int{i}, p, true
		}
	}
	return nil, Production{}, false
}

func (t *codeTable) writePath(ch *EncoderChannel, path []int) {
	idx := path[0]
	t.encodeIndex(ch, idx)
	if len(path) > 1 {
		t.entries[idx].Sub.writePath(ch, path[1:])
	}
}

// Processor owns one document's string tables, value tables, and grammar
// engine, and drives the decode/encode loop between a bit channel and a
// Serializer/EventSource (C6). Grounded on the teacher's
// AbstractEXIBodyDecoder/Encoder (core/coders.go), collapsed into a
// single explicit-state type per document rather than the teacher's
// inheritance hierarchy — there is exactly one concrete body shape here
// (builtin/schemaless), so the extra abstraction layer buys nothing.
type Processor struct {
	opts      HeaderOptions
	strings   *StringTable
	values    *ValueTable
	grammar   *Grammar
	elemStack []*QNameContext

	// persist is the Serializer's NeedsPersistence() answer, consulted
	// once at SD (§4.6 "Persistence contract"): when true, string values
	// handed to AT/CH are cloned off of the table-owned backing slice
	// before delivery, so the Serializer may retain them past the
	// callback; when false the table's own string is passed directly.
	persist bool
}

func NewProcessor(opts HeaderOptions) *Processor {
	values := NewValueTable(opts.ValueCapacity)
	if len(opts.SharedStrings) > 0 {
		values.SeedSharedStrings(opts.SharedStrings)
	}
	return &Processor{
		opts:    opts,
		strings: NewStringTable(),
		values:  values,
		grammar: NewGrammar(opts),
	}
}

// maybePersist implements the Serializer side of §4.6's persistence
// contract: value-partition hits return a string backed by the table's
// own slice (t.local[...]/t.globalValues[...]), which this processor
// keeps for the document's lifetime regardless. A Serializer that
// answered NeedsPersistence() true is nonetheless given an independent
// copy rather than that shared reference, so nothing it does with the
// value can be observed through — or be broken by — a later table
// eviction; one that answered false gets the table's string directly.
func (p *Processor) maybePersist(lex string) string {
	if p.persist {
		return strings.Clone(lex)
	}
	return lex
}

// DecodeBody runs the body loop until ED (or the Serializer returns
// StatusDone early).
func (p *Processor) DecodeBody(ch *DecoderChannel, ser Serializer) error {
	if status, err := ser.SD(); err != nil {
		return newError(KindSerializerError, 0, 0, "SD", err)
	} else if status == StatusDone {
		return nil
	}
	p.persist = ser.NeedsPersistence()

	afterRoot := false
	for {
		var table *codeTable
		switch {
		case afterRoot:
			table = p.grammar.AfterDocContentTable()
		case p.grammar.inDocument():
			table = p.grammar.docContent
		default:
			table = p.grammar.CurrentTable()
		}

		prod, err := table.decodeCode(ch)
		if err != nil {
			return err
		}

		done, err := p.dispatchDecoded(ch, ser, prod, &afterRoot)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// DecodeFragmentBody decodes a standalone self-contained region — a
// byte-aligned SD/SE/…/EE sequence with exactly one top-level element and
// no enclosing document — and delivers it to ser. This is the entry
// point §4.4's SC production otherwise only reaches as a side effect of
// a full-document decode (see Grammar.PushFragment): it lets a caller
// who has located an SC region (e.g. via an index built while decoding)
// decode that region on its own, without replaying everything before it.
func (p *Processor) DecodeFragmentBody(ch *DecoderChannel, ser Serializer) error {
	if status, err := ser.SD(); err != nil {
		return newError(KindSerializerError, 0, 0, "SD", err)
	} else if status == StatusDone {
		return nil
	}
	p.persist = ser.NeedsPersistence()

	ch.Align()
	p.grammar.PushFragment()

	for {
		table := p.grammar.CurrentTable()
		prod, err := table.decodeCode(ch)
		if err != nil {
			return err
		}

		var afterRoot bool
		done, err := p.dispatchDecoded(ch, ser, prod, &afterRoot)
		if err != nil {
			return err
		}
		if afterRoot {
			break
		}
		if done {
			return nil
		}
	}

	if _, err := ser.ED(); err != nil {
		return newError(KindSerializerError, 0, 0, "ED", err)
	}
	return nil
}

func (p *Processor) dispatchDecoded(ch *DecoderChannel, ser Serializer, prod Production, afterRoot *bool) (bool, error) {
	switch prod.Kind {
	case EventED:
		if _, err := ser.ED(); err != nil {
			return false, newError(KindSerializerError, 0, 0, "ED", err)
		}
		return true, nil

	case EventSE:
		qnc, err := p.decodeQName(ch, prod)
		if err != nil {
			return false, err
		}
		qn := qnc.Name
		if p.opts.Preserve.Prefixes {
			prefix, _, err := p.strings.DecodePrefix(ch, qnc.URIID)
			if err != nil {
				return false, err
			}
			qn.Prefix = prefix
		}
		top := !p.grammar.inDocument()
		if top && !prod.Pinned {
			p.grammar.LearnChildSE(qnc.Name)
		}
		status, err := ser.SE(qn)
		if err != nil {
			return false, newError(KindSerializerError, 0, 0, "SE", err)
		}
		p.elemStack = append(p.elemStack, qnc)
		p.grammar.PushElement(qnc.Name)
		return status == StatusDone, nil

	case EventEE:
		if len(p.elemStack) == 0 {
			return false, newErrorAt(ch, KindUnexpectedEE, "EE")
		}
		qnc := p.elemStack[len(p.elemStack)-1]
		p.elemStack = p.elemStack[:len(p.elemStack)-1]
		if err := p.grammar.PopElement(); err != nil {
			return false, err
		}
		status, err := ser.EE(qnc.Name)
		if err != nil {
			return false, newError(KindSerializerError, 0, 0, "EE", err)
		}
		if len(p.elemStack) == 0 {
			*afterRoot = true
		}
		return status == StatusDone, nil

	case EventAT:
		qnc, err := p.decodeQName(ch, prod)
		if err != nil {
			return false, err
		}
		qn := qnc.Name
		if p.opts.Preserve.Prefixes {
			prefix, _, err := p.strings.DecodePrefix(ch, qnc.URIID)
			if err != nil {
				return false, err
			}
			qn.Prefix = prefix
		}
		if !prod.Pinned {
			p.grammar.LearnAT(qnc.Name)
		}
		lex, err := p.values.ReadValue(ch, qnc)
		if err != nil {
			return false, err
		}
		status, err := ser.AT(qn, StringValue(p.maybePersist(lex)))
		if err != nil {
			return false, newError(KindSerializerError, 0, 0, "AT", err)
		}
		return status == StatusDone, nil

	case EventCH:
		if len(p.elemStack) == 0 {
			return false, newErrorAt(ch, KindGrammarViolation, "CH outside element")
		}
		top := p.elemStack[len(p.elemStack)-1]
		if !prod.Pinned {
			p.grammar.LearnCH()
		}
		lex, err := p.values.ReadValue(ch, top)
		if err != nil {
			return false, err
		}
		status, err := ser.CH(StringValue(p.maybePersist(lex)))
		if err != nil {
			return false, newError(KindSerializerError, 0, 0, "CH", err)
		}
		return status == StatusDone, nil

	case EventNS:
		entry, uriID, err := p.strings.DecodeURI(ch)
		if err != nil {
			return false, err
		}
		prefix, _, err := p.strings.DecodePrefix(ch, uriID)
		if err != nil {
			return false, err
		}
		isLocal, err := ch.ReadBoolean()
		if err != nil {
			return false, err
		}
		status, err := ser.NS(entry.uri, prefix, isLocal)
		if err != nil {
			return false, newError(KindSerializerError, 0, 0, "NS", err)
		}
		return status == StatusDone, nil

	case EventCM:
		lex, err := ch.ReadString()
		if err != nil {
			return false, err
		}
		status, err := ser.CM(lex)
		if err != nil {
			return false, newError(KindSerializerError, 0, 0, "CM", err)
		}
		return status == StatusDone, nil

	case EventPI:
		target, err := ch.ReadString()
		if err != nil {
			return false, err
		}
		text, err := ch.ReadString()
		if err != nil {
			return false, err
		}
		status, err := ser.PI(target, text)
		if err != nil {
			return false, newError(KindSerializerError, 0, 0, "PI", err)
		}
		return status == StatusDone, nil

	case EventDT:
		name, err := ch.ReadString()
		if err != nil {
			return false, err
		}
		pub, err := ch.ReadString()
		if err != nil {
			return false, err
		}
		sys, err := ch.ReadString()
		if err != nil {
			return false, err
		}
		text, err := ch.ReadString()
		if err != nil {
			return false, err
		}
		status, err := ser.DT(name, pub, sys, text)
		if err != nil {
			return false, newError(KindSerializerError, 0, 0, "DT", err)
		}
		return status == StatusDone, nil

	case EventER:
		name, err := ch.ReadString()
		if err != nil {
			return false, err
		}
		status, err := ser.ER(name)
		if err != nil {
			return false, newError(KindSerializerError, 0, 0, "ER", err)
		}
		return status == StatusDone, nil

	case EventSC:
		status, err := ser.SC()
		if err != nil {
			return false, newError(KindSerializerError, 0, 0, "SC", err)
		}
		// §4.4 Transitions: SC moves into the Fragment state; the
		// current frame is left on the stack, suspended beneath the
		// Fragment frame, until the region's one element closes (see
		// Grammar.PopElement).
		ch.Align()
		p.grammar.PushFragment()
		return status == StatusDone, nil

	default:
		return false, newErrorAt(ch, KindGrammarViolation, fmt.Sprintf("unhandled event kind %v", prod.Kind))
	}
}

func (p *Processor) decodeQName(ch *DecoderChannel, prod Production) (*QNameContext, error) {
	if prod.Pinned {
		return p.strings.Context(prod.QName.URI, prod.QName.Local), nil
	}
	_, uriID, err := p.strings.DecodeURI(ch)
	if err != nil {
		return nil, err
	}
	localID, err := p.strings.DecodeLocalName(ch, uriID)
	if err != nil {
		return nil, err
	}
	return p.strings.ContextByIDs(uriID, localID), nil
}

// EventSource is pulled from by EncodeBody, one event at a time, mirroring
// the Serializer callback set (§6 "XML source interface").
type EventSource interface {
	Next() (Event, bool, error) // ok=false when the source is exhausted
}

// EncodeBody pulls events from src and writes the corresponding codes and
// atoms, driving the same grammar engine in reverse.
func (p *Processor) EncodeBody(ch *EncoderChannel, src EventSource) error {
	afterRoot := false
	for {
		ev, ok, err := src.Next()
		if err != nil {
			return newError(KindSerializerError, 0, 0, "source", err)
		}
		if !ok {
			return fmt.Errorf("exi: event source exhausted before ED")
		}

		if ev.Kind == EventSD {
			// Document has the single production SD DocContent, coded in
			// zero bits (§4.4), so SD writes nothing.
			continue
		}

		var table *codeTable
		switch {
		case afterRoot:
			table = p.grammar.AfterDocContentTable()
		case p.grammar.inDocument():
			table = p.grammar.docContent
		default:
			table = p.grammar.CurrentTable()
		}

		if ev.Kind == EventED {
			path, _, ok := table.find(ev)
			if !ok {
				return fmt.Errorf("exi: ED not valid in current grammar state")
			}
			table.writePath(ch, path)
			return nil
		}

		if err := p.encodeEvent(ch, table, ev, &afterRoot); err != nil {
			return err
		}
	}
}

func (p *Processor) encodeEvent(ch *EncoderChannel, table *codeTable, ev Event, afterRoot *bool) error {
	path, prod, ok := table.find(ev)
	if !ok {
		return fmt.Errorf("exi: event %v not valid in current grammar state", ev.Kind)
	}
	table.writePath(ch, path)

	switch ev.Kind {
	case EventSE:
		var qnc *QNameContext
		if prod.Pinned {
			// Already written literally on an earlier occurrence: the
			// table entry exists, so Context() only looks it up.
			qnc = p.strings.Context(ev.QName.URI, ev.QName.Local)
		} else {
			qnc = p.encodeQName(ch, ev.QName.URI, ev.QName.Local)
			if top := !p.grammar.inDocument(); top {
				p.grammar.LearnChildSE(qnc.Name)
			}
		}
		if p.opts.Preserve.Prefixes {
			p.strings.EncodePrefix(ch, qnc.URIID, ev.QName.Prefix)
		}
		p.elemStack = append(p.elemStack, qnc)
		p.grammar.PushElement(qnc.Name)

	case EventEE:
		if len(p.elemStack) == 0 {
			return fmt.Errorf("exi: EE with empty stack")
		}
		p.elemStack = p.elemStack[:len(p.elemStack)-1]
		if err := p.grammar.PopElement(); err != nil {
			return err
		}
		if len(p.elemStack) == 0 {
			*afterRoot = true
		}

	case EventAT:
		var qnc *QNameContext
		if prod.Pinned {
			qnc = p.strings.Context(ev.QName.URI, ev.QName.Local)
		} else {
			qnc = p.encodeQName(ch, ev.QName.URI, ev.QName.Local)
			p.grammar.LearnAT(qnc.Name)
		}
		if p.opts.Preserve.Prefixes {
			p.strings.EncodePrefix(ch, qnc.URIID, ev.QName.Prefix)
		}
		p.values.WriteValue(ch, qnc, ev.Value.Lex)

	case EventCH:
		if len(p.elemStack) == 0 {
			return fmt.Errorf("exi: CH outside element")
		}
		if !prod.Pinned {
			p.grammar.LearnCH()
		}
		p.values.WriteValue(ch, p.elemStack[len(p.elemStack)-1], ev.Value.Lex)

	case EventNS:
		uriID := p.strings.EncodeURI(ch, ev.NSUri)
		p.strings.EncodePrefix(ch, uriID, ev.NSPrefix)
		ch.WriteBoolean(ev.NSIsLocal)

	case EventCM:
		ch.WriteString(ev.Text)

	case EventPI:
		ch.WriteString(ev.PITarget)
		ch.WriteString(ev.Text)

	case EventDT:
		ch.WriteString(ev.DTName)
		ch.WriteString(ev.DTPublicID)
		ch.WriteString(ev.DTSystemID)
		ch.WriteString(ev.DTText)

	case EventER:
		ch.WriteString(ev.Text)

	case EventSC:
		// No payload of its own; the region it opens is byte-aligned
		// and begins in the Fragment state (mirrors the decode side).
		ch.Align()
		p.grammar.PushFragment()

	default:
		return fmt.Errorf("exi: unhandled event kind %v", ev.Kind)
	}
	return nil
}

// encodeQName writes the URI/LocalName wire codes (inserting new table
// entries on miss, exactly as the decoder would) and returns the resolved
// context. Must be called before any Context()/ContextByIDs() lookup for
// the same name, so the hit/miss decision reflects what a decoder
// actually sees first.
func (p *Processor) encodeQName(ch *EncoderChannel, uri, local string) *QNameContext {
	uriID := p.strings.EncodeURI(ch, uri)
	localID := p.strings.EncodeLocalName(ch, uriID, local)
	return p.strings.ContextByIDs(uriID, localID)
}
