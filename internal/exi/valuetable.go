package exi

import (
	"github.com/cespare/xxhash/v2"
)

// UnboundedCapacity marks a value partition with no capacity limit.
const UnboundedCapacity = -1

// DisabledCapacity (0) turns the global value partition off entirely: no
// global hits are ever produced or accepted (§4.3 "Capacity").
const DisabledCapacity = 0

// hashBucket is one xxhash bucket of the global value partition's reverse
// index: every global compact ID whose value currently hashes to this
// bucket. Collisions are resolved with an exact string compare, so the
// hash never needs to be trusted beyond "maybe equal" — grounded on
// arloliu-mebo's use of cespare/xxhash to key its blob/series lookup maps
// before falling back to exact comparison.
type hashBucket = []int

// ValueTable is the two-layer value partition set (C3 §3/§4.3): one global
// partition shared by the whole document, optionally FIFO-bounded, and one
// local partition per (URI-id, LocalName-id).
type ValueTable struct {
	capacity int // UnboundedCapacity, DisabledCapacity, or a positive bound

	globalValues []string // indexed by compact id; len <= capacity when bounded
	globalHash   map[uint64]hashBucket
	globalSize   int // total insertions ever made (drives FIFO slot selection)

	local      map[qnameKey][]string
	localIndex map[qnameKey]map[string]int
}

func NewValueTable(capacity int) *ValueTable {
	return &ValueTable{
		capacity:   capacity,
		globalHash: map[uint64]hashBucket{},
		local:      map[qnameKey][]string{},
		localIndex: map[qnameKey]map[string]int{},
	}
}

func (t *ValueTable) globalEnabled() bool {
	return t.capacity != DisabledCapacity
}

func (t *ValueTable) globalLookup(value string) (int, bool) {
	if !t.globalEnabled() {
		return 0, false
	}
	h := xxhash.Sum64String(value)
	for _, id := range t.globalHash[h] {
		if t.globalValues[id] == value {
			return id, true
		}
	}
	return 0, false
}

// globalInsert appends value to the global partition, evicting the oldest
// entry (and reusing its compact ID) once a bounded partition is full.
func (t *ValueTable) globalInsert(value string) int {
	if !t.globalEnabled() {
		return -1
	}
	if t.capacity == UnboundedCapacity || len(t.globalValues) < t.capacity {
		id := len(t.globalValues)
		t.globalValues = append(t.globalValues, value)
		h := xxhash.Sum64String(value)
		t.globalHash[h] = append(t.globalHash[h], id)
		t.globalSize++
		return id
	}

	// Bounded and full: evict the oldest slot (FIFO), reusing its id.
	slot := t.globalSize % t.capacity
	old := t.globalValues[slot]
	oh := xxhash.Sum64String(old)
	t.globalHash[oh] = removeInt(t.globalHash[oh], slot)

	t.globalValues[slot] = value
	h := xxhash.Sum64String(value)
	t.globalHash[h] = append(t.globalHash[h], slot)
	t.globalSize++
	return slot
}

func removeInt(s []int, v int) []int {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

func (t *ValueTable) localLookup(key qnameKey, value string) (int, bool) {
	idx, ok := t.localIndex[key]
	if !ok {
		return 0, false
	}
	id, ok := idx[value]
	return id, ok
}

func (t *ValueTable) localInsert(key qnameKey, value string) int {
	id := len(t.local[key])
	t.local[key] = append(t.local[key], value)
	idx, ok := t.localIndex[key]
	if !ok {
		idx = map[string]int{}
		t.localIndex[key] = idx
	}
	idx[value] = id
	return id
}

// SeedSharedStrings pre-populates the global value partition with an
// out-of-band agreed string list (§12 "Supplemented features",
// HeaderOptions.SharedStrings), before any document content is read or
// written — grounded on the teacher's StringDecoderImpl/StringEncoderImpl
// SetSharedStrings, which does the same global-only insertion (no local
// partition is touched, since a shared string isn't attached to any one
// element/attribute name).
func (t *ValueTable) SeedSharedStrings(values []string) {
	for _, v := range values {
		t.globalInsert(v)
	}
}

// AddValue inserts value into both partitions, as happens whenever a
// literal miss is written/read (§4.3 "local hit -> global hit -> literal").
func (t *ValueTable) AddValue(qnc *QNameContext, value string) {
	t.localInsert(qnc.key(), value)
	t.globalInsert(value)
}

// WriteValue implements the encode-side lookup order and 2-bit
// discriminant (§4.3 "Value partitions" wire format).
func (t *ValueTable) WriteValue(ch *EncoderChannel, qnc *QNameContext, value string) {
	key := qnc.key()
	if id, ok := t.localLookup(key, value); ok {
		ch.WriteNBitUnsignedInt(0, 2)
		n := codingLength(len(t.local[key]))
		ch.WriteNBitUnsignedInt(id, n)
		return
	}
	if id, ok := t.globalLookup(value); ok {
		ch.WriteNBitUnsignedInt(1, 2)
		n := codingLength(len(t.globalValues))
		ch.WriteNBitUnsignedInt(id, n)
		return
	}
	ch.WriteNBitUnsignedInt(2, 2)
	ch.WriteString(value)
	t.AddValue(qnc, value)
}

// ReadValue implements the decode-side counterpart.
func (t *ValueTable) ReadValue(ch *DecoderChannel, qnc *QNameContext) (string, error) {
	disc, err := ch.ReadNBitUnsignedInt(2)
	if err != nil {
		return "", err
	}
	key := qnc.key()
	switch disc {
	case 0:
		n := codingLength(len(t.local[key]))
		id, err := ch.ReadNBitUnsignedInt(n)
		if err != nil {
			return "", err
		}
		vals := t.local[key]
		if id < 0 || id >= len(vals) {
			return "", newErrorAt(ch, KindCompactIdOutOfRange, "local-value")
		}
		return vals[id], nil
	case 1:
		if !t.globalEnabled() {
			return "", newErrorAt(ch, KindGrammarViolation, "global-value-disabled")
		}
		n := codingLength(len(t.globalValues))
		id, err := ch.ReadNBitUnsignedInt(n)
		if err != nil {
			return "", err
		}
		if id < 0 || id >= len(t.globalValues) {
			return "", newErrorAt(ch, KindCompactIdOutOfRange, "global-value")
		}
		return t.globalValues[id], nil
	case 2:
		lit, err := ch.ReadString()
		if err != nil {
			return "", err
		}
		t.AddValue(qnc, lit)
		return lit, nil
	default:
		return "", newErrorAt(ch, KindGrammarViolation, "value-discriminant-reserved")
	}
}
