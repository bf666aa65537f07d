package exi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexbind/exi/internal/bitio"
)

func TestValueTableLiteralThenLocalHit(t *testing.T) {
	qnc := &QNameContext{URIID: 0, LocalNameID: 1, Name: QName{Local: "widget"}}

	w := bitio.NewWriter()
	ch := NewEncoderChannel(w, false)
	encTable := NewValueTable(UnboundedCapacity)
	encTable.WriteValue(ch, qnc, "hello")
	encTable.WriteValue(ch, qnc, "hello")
	buf, _ := w.Finalize()

	r := bitio.NewReader(buf)
	dch := NewDecoderChannel(r, false)
	decTable := NewValueTable(UnboundedCapacity)
	v1, err := decTable.ReadValue(dch, qnc)
	require.NoError(t, err)
	assert.Equal(t, "hello", v1)

	v2, err := decTable.ReadValue(dch, qnc)
	require.NoError(t, err)
	assert.Equal(t, "hello", v2)
}

func TestValueTableGlobalHitAcrossElements(t *testing.T) {
	a := &QNameContext{URIID: 0, LocalNameID: 1, Name: QName{Local: "a"}}
	b := &QNameContext{URIID: 0, LocalNameID: 2, Name: QName{Local: "b"}}

	w := bitio.NewWriter()
	ch := NewEncoderChannel(w, false)
	encTable := NewValueTable(UnboundedCapacity)
	encTable.WriteValue(ch, a, "shared")
	encTable.WriteValue(ch, b, "shared") // different element, same value: global hit, not local
	buf, _ := w.Finalize()

	r := bitio.NewReader(buf)
	dch := NewDecoderChannel(r, false)
	decTable := NewValueTable(UnboundedCapacity)
	v1, err := decTable.ReadValue(dch, a)
	require.NoError(t, err)
	assert.Equal(t, "shared", v1)
	v2, err := decTable.ReadValue(dch, b)
	require.NoError(t, err)
	assert.Equal(t, "shared", v2)
}

func TestValueTableFIFOEviction(t *testing.T) {
	qnc := &QNameContext{URIID: 0, LocalNameID: 1}
	vt := NewValueTable(2)
	vt.AddValue(qnc, "one")
	vt.AddValue(qnc, "two")
	assert.Equal(t, []string{"one", "two"}, vt.globalValues)

	vt.AddValue(qnc, "three")
	assert.Equal(t, []string{"three", "two"}, vt.globalValues, "FIFO should overwrite the oldest slot")

	_, ok := vt.globalLookup("one")
	assert.False(t, ok, "evicted value should no longer be found")
	id, ok := vt.globalLookup("three")
	require.True(t, ok)
	assert.Equal(t, 0, id)
}

func TestSeedSharedStringsPopulatesGlobalOnly(t *testing.T) {
	vt := NewValueTable(UnboundedCapacity)
	vt.SeedSharedStrings([]string{"alpha", "beta"})

	id, ok := vt.globalLookup("alpha")
	require.True(t, ok)
	assert.Equal(t, 0, id)
	id, ok = vt.globalLookup("beta")
	require.True(t, ok)
	assert.Equal(t, 1, id)

	qnc := &QNameContext{URIID: 0, LocalNameID: 1}
	_, ok = vt.localLookup(qnc.key(), "alpha")
	assert.False(t, ok, "shared strings are global-only, not attached to any element")
}

func TestValueTableDisabledCapacitySkipsGlobal(t *testing.T) {
	qnc := &QNameContext{URIID: 0, LocalNameID: 1}
	vt := NewValueTable(DisabledCapacity)
	vt.AddValue(qnc, "x")
	_, ok := vt.globalLookup("x")
	assert.False(t, ok)
}
