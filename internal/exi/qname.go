package exi

import "math/bits"

// QName is a namespace URI + local name pair, with an optional prefix used
// only when Prefixes are preserved. Grounded on the teacher's utils.QName /
// core.QNameContext split (core/context.go), collapsed into one type since
// this core does not need the teacher's separate schema-type bookkeeping.
//
// Prefix is carried on the SE/AT path, not only on NS: it is read/written
// right after the qname itself, using the same per-URI Prefix partition
// NS already maintains (§4.3, §8 scenario 5 "SE(uri=<new id>, ln=foo,
// prefix=x)"). It plays no part in QName identity — two QNames that agree
// on URI/Local name the same grammar production regardless of Prefix, see
// matches() in body.go — so it is left zero whenever Preserve.Prefixes is
// off.
type QName struct {
	URI    string
	Local  string
	Prefix string
}

// Pre-seeded namespace/local-name sets, §4.3.
const (
	uriEmpty = ""
	uriXML   = "http://www.w3.org/XML/1998/namespace"
	uriXSI   = "http://www.w3.org/2001/XMLSchema-instance"
)

var (
	localNamesXML = []string{"base", "id", "lang", "space"}
	localNamesXSI = []string{"nil", "type"}
)

// uriPartitionEntry is one URI partition slot: the URI string plus its own
// Prefix and LocalName sub-partitions (§3 "String tables").
type uriPartitionEntry struct {
	uri        string
	prefixes   []string
	localNames []string
	// localNameIndex speeds up name -> id lookup within this URI.
	localNameIndex map[string]int
}

func newURIEntry(uri string, prefixes, localNames []string) *uriPartitionEntry {
	idx := make(map[string]int, len(localNames))
	for i, n := range localNames {
		idx[n] = i
	}
	return &uriPartitionEntry{uri: uri, prefixes: append([]string{}, prefixes...), localNames: append([]string{}, localNames...), localNameIndex: idx}
}

func (e *uriPartitionEntry) addLocalName(name string) int {
	id := len(e.localNames)
	e.localNames = append(e.localNames, name)
	e.localNameIndex[name] = id
	return id
}

func (e *uriPartitionEntry) addPrefix(prefix string) int {
	id := len(e.prefixes)
	e.prefixes = append(e.prefixes, prefix)
	return id
}

// QNameContext is a resolved (URI-id, LocalName-id) pair, the processor's
// stable handle for a QName for the lifetime of one document.
type QNameContext struct {
	URIID       int
	LocalNameID int
	Name        QName
}

func (q *QNameContext) key() qnameKey {
	return qnameKey{q.URIID, q.LocalNameID}
}

type qnameKey struct {
	uriID, localNameID int
}

// StringTable is the URI/Prefix/LocalName partition set (C3, §4.3), owned
// exclusively by one processor for the lifetime of one document.
type StringTable struct {
	uris       []*uriPartitionEntry
	uriIndex   map[string]int
	qnameCache map[qnameKey]*QNameContext
}

// NewStringTable builds a fresh table pre-seeded with the empty/XML/XSI
// URIs (and their fixed local-name sets), as required by §4.3.
func NewStringTable() *StringTable {
	t := &StringTable{
		uriIndex:   map[string]int{},
		qnameCache: map[qnameKey]*QNameContext{},
	}
	t.addURI(uriEmpty, nil, nil)
	t.addURI(uriXML, []string{"xml"}, localNamesXML)
	t.addURI(uriXSI, []string{"xsi"}, localNamesXSI)
	return t
}

func (t *StringTable) addURI(uri string, prefixes, localNames []string) int {
	id := len(t.uris)
	t.uris = append(t.uris, newURIEntry(uri, prefixes, localNames))
	t.uriIndex[uri] = id
	return id
}

func (t *StringTable) NumURIs() int {
	return len(t.uris)
}

func (t *StringTable) uriByID(id int) *uriPartitionEntry {
	return t.uris[id]
}

// Context returns (creating if necessary) the QNameContext for a (uri,
// local) pair, inserting new URI/LocalName partition entries as needed. It
// is the single entry point both codec directions use to keep the table
// mutation order identical (§5 "table insertions are strictly ordered").
func (t *StringTable) Context(uri, local string) *QNameContext {
	uriID, ok := t.uriIndex[uri]
	if !ok {
		uriID = t.addURI(uri, nil, nil)
	}
	entry := t.uris[uriID]
	localID, ok := entry.localNameIndex[local]
	if !ok {
		localID = entry.addLocalName(local)
	}
	key := qnameKey{uriID, localID}
	if qnc, ok := t.qnameCache[key]; ok {
		return qnc
	}
	qnc := &QNameContext{URIID: uriID, LocalNameID: localID, Name: QName{URI: uri, Local: local}}
	t.qnameCache[key] = qnc
	return qnc
}

func (t *StringTable) ContextByIDs(uriID, localID int) *QNameContext {
	key := qnameKey{uriID, localID}
	if qnc, ok := t.qnameCache[key]; ok {
		return qnc
	}
	entry := t.uris[uriID]
	qnc := &QNameContext{URIID: uriID, LocalNameID: localID, Name: QName{URI: entry.uri, Local: entry.localNames[localID]}}
	t.qnameCache[key] = qnc
	return qnc
}

// --- URI partition wire codec, §4.3 "reserved-zero" convention ---

// DecodeURI reads a Compact ID of width ceil(log2(URI_count+1)), where ID
// 0 means "literal follows" and ID-1 indexes the partition. No separate
// flag bit precedes the ID: the reserved zero is the only hit/miss signal,
// matching the teacher's core/coders.go decodeURI.
func (t *StringTable) DecodeURI(ch *DecoderChannel) (*uriPartitionEntry, int, error) {
	n := codingLength(t.NumURIs() + 1)
	id, err := ch.ReadNBitUnsignedInt(n)
	if err != nil {
		return nil, 0, err
	}
	if id == 0 {
		lit, err := ch.ReadString()
		if err != nil {
			return nil, 0, err
		}
		uriID := t.addURI(lit, nil, nil)
		return t.uris[uriID], uriID, nil
	}
	uriID := id - 1
	if uriID < 0 || uriID >= len(t.uris) {
		return nil, 0, newErrorAt(ch, KindCompactIdOutOfRange, "uri")
	}
	return t.uris[uriID], uriID, nil
}

func (t *StringTable) EncodeURI(ch *EncoderChannel, uri string) int {
	n := codingLength(t.NumURIs() + 1)
	if id, ok := t.uriIndex[uri]; ok {
		ch.WriteNBitUnsignedInt(id+1, n)
		return id
	}
	ch.WriteNBitUnsignedInt(0, n)
	ch.WriteString(uri)
	return t.addURI(uri, nil, nil)
}

// DecodeLocalName implements the per-URI scoped hit/miss protocol: hit is a
// flag bit 1 followed by a Compact ID of width ceil(log2(N)); miss is a
// flag bit 0 followed by the literal, appended to get the next id.
func (t *StringTable) DecodeLocalName(ch *DecoderChannel, uriID int) (int, error) {
	entry := t.uris[uriID]
	hit, err := ch.ReadBoolean()
	if err != nil {
		return 0, err
	}
	if hit {
		n := codingLength(len(entry.localNames))
		id, err := ch.ReadNBitUnsignedInt(n)
		if err != nil {
			return 0, err
		}
		if id < 0 || id >= len(entry.localNames) {
			return 0, newErrorAt(ch, KindCompactIdOutOfRange, "localName")
		}
		return id, nil
	}
	lit, err := ch.ReadString()
	if err != nil {
		return 0, err
	}
	return entry.addLocalName(lit), nil
}

func (t *StringTable) EncodeLocalName(ch *EncoderChannel, uriID int, local string) int {
	entry := t.uris[uriID]
	if id, ok := entry.localNameIndex[local]; ok {
		ch.WriteBoolean(true)
		n := codingLength(len(entry.localNames))
		ch.WriteNBitUnsignedInt(id, n)
		return id
	}
	ch.WriteBoolean(false)
	ch.WriteString(local)
	return entry.addLocalName(local)
}

// DecodePrefix/EncodePrefix use the reserved-zero form on the per-URI
// Prefix partition, like the URI codec: a Compact ID of width
// ceil(log2(N+1)) with no flag bit, where 0 means a literal follows and
// ID-1 indexes the partition.
func (t *StringTable) DecodePrefix(ch *DecoderChannel, uriID int) (string, bool, error) {
	entry := t.uris[uriID]
	n := codingLength(len(entry.prefixes) + 1)
	id, err := ch.ReadNBitUnsignedInt(n)
	if err != nil {
		return "", false, err
	}
	if id == 0 {
		lit, err := ch.ReadString()
		if err != nil {
			return "", false, err
		}
		entry.addPrefix(lit)
		return lit, true, nil
	}
	pid := id - 1
	if pid < 0 || pid >= len(entry.prefixes) {
		return "", false, newErrorAt(ch, KindCompactIdOutOfRange, "prefix")
	}
	return entry.prefixes[pid], false, nil
}

func (t *StringTable) EncodePrefix(ch *EncoderChannel, uriID int, prefix string) {
	entry := t.uris[uriID]
	for i, p := range entry.prefixes {
		if p == prefix {
			n := codingLength(len(entry.prefixes) + 1)
			ch.WriteNBitUnsignedInt(i+1, n)
			return
		}
	}
	n := codingLength(len(entry.prefixes) + 1)
	ch.WriteNBitUnsignedInt(0, n)
	ch.WriteString(prefix)
	entry.addPrefix(prefix)
}

// codingLength returns ceil(log2(n)) for n >= 1, and 0 for n <= 1 — the
// Compact ID width formula used throughout §3/§4.3. Grounded on the
// teacher's utils.GetCodingLength (utils/misc.go), reimplemented with
// bits.Len since the naive per-insertion recompute flagged in spec.md §9
// as an anti-pattern is exactly what a leading-zero-count intrinsic fixes.
func codingLength(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

func newErrorAt(ch *DecoderChannel, kind Kind, ctx string) error {
	bo, bi := ch.Position()
	return newError(kind, bo, bi, ctx, errOutOfRange)
}

var errOutOfRange = &simpleErr{"compact id out of range"}

type simpleErr struct{ s string }

func (e *simpleErr) Error() string { return e.s }
