package exi

// Production is one entry of a grammar nonterminal's production list
// (§4.4). A Production either resolves directly to an event term — with
// a pinned QName when the processor has *learned* that exact element or
// attribute name at this position, so the wire code alone identifies it
// and no URI/LocalName lookup is spent — or it recurses into a nested
// table for a further code-part read.
type Production struct {
	Kind      EventKind
	Pinned    bool // true: QName is part of the production, not the wire value
	QName     QName
	Sub       *codeTable // non-nil: read one more code part to disambiguate
}

// codeTable is one grammar nonterminal's production list at one code
// level. Its bit width is ceil(log2(len(entries))) (§4.4 "code reading
// algorithm").
type codeTable struct {
	entries []Production
}

func (t *codeTable) width() int {
	return codingLength(len(t.entries))
}

// decodeCode reads one full (possibly multi-part) event code from ch
// against this table, recursing into nested tables.
func (t *codeTable) decodeCode(ch *DecoderChannel) (Production, error) {
	n := t.width()
	idx, err := ch.ReadNBitUnsignedInt(n)
	if err != nil {
		return Production{}, err
	}
	if idx < 0 || idx >= len(t.entries) {
		return Production{}, newErrorAt(ch, KindGrammarViolation, "event-code")
	}
	p := t.entries[idx]
	if p.Sub != nil {
		return p.Sub.decodeCode(ch)
	}
	return p, nil
}

// encodeIndex writes the code part that selects entry index idx at this
// level (used by writePath in body.go, whose indices come from find's
// linear scan — the tables are always small).
func (t *codeTable) encodeIndex(ch *EncoderChannel, idx int) {
	ch.WriteNBitUnsignedInt(idx, t.width())
}

// ElementGrammar is the pair of built-in grammars (StartTagContent,
// ElementContent) the processor learns for one element name the first
// time it is encountered (§4.4 "Built-in element grammars"). Learned
// entries accumulate at the front, ahead of the option-derived generic
// fallback entries, so repeat occurrences of a known child get shorter
// codes — the concrete mechanism behind "code widths grow/shrink".
type ElementGrammar struct {
	startTagLearned []Production // specific AT(qname)/NS/SE(qname) seen in StartTagContent position
	contentLearned  []Production // specific SE(qname)/CH seen in ElementContent position
	sawCH           bool
}

// Grammar is the engine driving one document's decode or encode: the
// Document/DocContent/DocEnd nonterminals, the per-element learned
// grammars, and the active frame stack (§4.4 "Transitions").
type Grammar struct {
	opts HeaderOptions

	docContent *codeTable
	docEnd     *codeTable
	fragment   *codeTable

	elements map[QName]*ElementGrammar

	stack []frame
}

type gstate int

const (
	stateStartTagContent gstate = iota
	stateElementContent
	stateFragment
)

type frame struct {
	eg    *ElementGrammar
	state gstate
}

func NewGrammar(opts HeaderOptions) *Grammar {
	g := &Grammar{
		opts:     opts,
		elements: map[QName]*ElementGrammar{},
	}
	g.docContent = g.buildDocContentTable()
	g.docEnd = g.buildDocEndTable()
	g.fragment = g.buildFragmentTable()
	return g
}

// --- generic, option-derived tables (§4.4, the grammar diagram) ---

func (g *Grammar) buildDocContentTable() *codeTable {
	entries := []Production{{Kind: EventSE}} // code 0: SE(*) DocEnd
	if !g.opts.Strict {
		dtPi := []Production{}
		if g.opts.Preserve.Comments {
			dtPi = append(dtPi, Production{Kind: EventCM})
		}
		dtPi = append(dtPi, Production{Kind: EventPI})
		sub11 := &codeTable{entries: dtPi}
		sub1 := &codeTable{entries: []Production{{Kind: EventDT}, {Sub: sub11}}}
		entries = append(entries, Production{Sub: sub1})
	}
	return &codeTable{entries: entries}
}

// buildFragmentTable returns the code table governing the Fragment state
// (§3 "Grammar state", §4.4 Transitions "SC transitions to Fragment"): a
// self-contained region holds exactly one element, so the single
// production here is SE; the region auto-closes when that element's EE
// is reached (see PopElement below).
func (g *Grammar) buildFragmentTable() *codeTable {
	return &codeTable{entries: []Production{{Kind: EventSE}}}
}

func (g *Grammar) buildDocEndTable() *codeTable {
	entries := []Production{{Kind: EventED}}
	if !g.opts.Strict {
		if g.opts.Preserve.Comments {
			entries = append(entries, Production{Kind: EventCM})
		}
		entries = append(entries, Production{Kind: EventPI})
	}
	return &codeTable{entries: entries}
}

// buildGenericStartTagFallback returns the option-derived fallback
// entries that follow any element-specific learned productions:
// EE, AT(*), [NS], [SC], then the ChildContentItems group.
func (g *Grammar) buildGenericStartTagFallback() []Production {
	entries := []Production{{Kind: EventEE}, {Kind: EventAT}}
	if !g.opts.Strict && g.opts.Preserve.Prefixes {
		entries = append(entries, Production{Kind: EventNS})
	}
	if !g.opts.Strict && g.opts.SelfContained {
		entries = append(entries, Production{Kind: EventSC})
	}
	entries = append(entries, g.buildChildContentItems()...)
	return entries
}

func (g *Grammar) buildGenericElementContentFallback() []Production {
	entries := []Production{{Kind: EventEE}}
	entries = append(entries, g.buildChildContentItems()...)
	return entries
}

// buildChildContentItems returns SE(*), CH, [ER], and a nested [CM,PI]
// group, following §4.4's ChildContentItems(n,m).
func (g *Grammar) buildChildContentItems() []Production {
	entries := []Production{{Kind: EventSE}, {Kind: EventCH}}
	if !g.opts.Strict && g.opts.Preserve.DTDs {
		entries = append(entries, Production{Kind: EventER})
	}
	if !g.opts.Strict {
		cmPi := []Production{}
		if g.opts.Preserve.Comments {
			cmPi = append(cmPi, Production{Kind: EventCM})
		}
		cmPi = append(cmPi, Production{Kind: EventPI})
		entries = append(entries, Production{Sub: &codeTable{entries: cmPi}})
	}
	return entries
}

// elementGrammarFor returns (creating if necessary) the learned grammar
// for a newly or previously seen element name.
func (g *Grammar) elementGrammarFor(qn QName) *ElementGrammar {
	eg, ok := g.elements[qn]
	if !ok {
		eg = &ElementGrammar{}
		g.elements[qn] = eg
	}
	return eg
}

func (eg *ElementGrammar) startTagTable(g *Grammar) *codeTable {
	entries := append(append([]Production{}, eg.startTagLearned...), g.buildGenericStartTagFallback()...)
	return &codeTable{entries: entries}
}

func (eg *ElementGrammar) contentTable(g *Grammar) *codeTable {
	entries := append(append([]Production{}, eg.contentLearned...), g.buildGenericElementContentFallback()...)
	return &codeTable{entries: entries}
}

// --- transitions (§4.4 "Transitions") ---

// StartDocument must be called once before any other transition.
func (g *Grammar) StartDocument() {}

// PushElement transitions into a freshly opened element's StartTagContent
// state (SE pushes a frame).
func (g *Grammar) PushElement(qn QName) {
	eg := g.elementGrammarFor(qn)
	g.stack = append(g.stack, frame{eg: eg, state: stateStartTagContent})
}

// PushFragment enters the Fragment state for a self-contained region (SC
// production, §4.4 Transitions): the frame beneath it — Document,
// StartTagContent, or ElementContent — is left on the stack untouched,
// "suspended" until the region's one contained element closes and
// PopElement unwinds back past this frame.
func (g *Grammar) PushFragment() {
	g.stack = append(g.stack, frame{state: stateFragment})
}

// PopElement transitions out of the current element (EE pops). If this
// unwinds past a Fragment frame, that frame is popped too, which is the
// self-contained region ending and parent-state restoration resuming.
func (g *Grammar) PopElement() error {
	if len(g.stack) == 0 {
		return ErrKind(KindUnexpectedEE)
	}
	g.stack = g.stack[:len(g.stack)-1]
	if len(g.stack) > 0 && g.stack[len(g.stack)-1].state == stateFragment {
		g.stack = g.stack[:len(g.stack)-1]
	}
	return nil
}

// EndStartTag moves the current frame from StartTagContent to
// ElementContent. The body processor (body.go) does not call it, so an
// element's frame stays in StartTagContent until its EE: every AT, SE and
// CH of that element is coded against, and learned into, the start-tag
// table, and the element-content table is not used.
func (g *Grammar) EndStartTag() {
	if len(g.stack) == 0 {
		return
	}
	g.stack[len(g.stack)-1].state = stateElementContent
}

func (g *Grammar) inDocument() bool {
	return len(g.stack) == 0
}

// --- learning (§4.4 "Built-in element grammars") ---

// LearnAT records that qn was seen as an attribute name at the current
// element's start tag, so future encounters get a pinned, shorter code.
func (g *Grammar) LearnAT(qn QName) {
	if len(g.stack) == 0 {
		return
	}
	eg := g.stack[len(g.stack)-1].eg
	for _, p := range eg.startTagLearned {
		if p.Kind == EventAT && p.QName == qn {
			return
		}
	}
	eg.startTagLearned = append(eg.startTagLearned, Production{Kind: EventAT, Pinned: true, QName: qn})
}

// LearnChildSE records a child element name at the frame's current
// content position (StartTagContent if the start tag hasn't ended yet,
// else ElementContent).
func (g *Grammar) LearnChildSE(qn QName) {
	if len(g.stack) == 0 {
		return
	}
	top := &g.stack[len(g.stack)-1]
	if top.state == stateFragment {
		// A Fragment frame has no element grammar; its single SE
		// production stays generic.
		return
	}
	target := &top.eg.contentLearned
	if top.state == stateStartTagContent {
		target = &top.eg.startTagLearned
	}
	for _, p := range *target {
		if p.Kind == EventSE && p.QName == qn {
			return
		}
	}
	*target = append(*target, Production{Kind: EventSE, Pinned: true, QName: qn})
}

// LearnCH records that character data occurs at the current position;
// EXI learns this only once per element grammar.
func (g *Grammar) LearnCH() {
	if len(g.stack) == 0 {
		return
	}
	top := &g.stack[len(g.stack)-1]
	target := &top.eg.contentLearned
	if top.state == stateStartTagContent {
		target = &top.eg.startTagLearned
	}
	if top.eg.sawCH {
		return
	}
	top.eg.sawCH = true
	*target = append(*target, Production{Kind: EventCH})
}

// CurrentTable returns the code table governing the next event code read
// or write, given the engine's current position.
func (g *Grammar) CurrentTable() *codeTable {
	if g.inDocument() {
		return g.docContent
	}
	top := g.stack[len(g.stack)-1]
	switch top.state {
	case stateFragment:
		return g.fragment
	case stateStartTagContent:
		return top.eg.startTagTable(g)
	default:
		return top.eg.contentTable(g)
	}
}

// AfterDocContentTable returns the DocEnd table, used once the root
// element has been fully closed.
func (g *Grammar) AfterDocContentTable() *codeTable {
	return g.docEnd
}
