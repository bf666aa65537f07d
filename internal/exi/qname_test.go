package exi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexbind/exi/internal/bitio"
)

func TestCodingLength(t *testing.T) {
	cases := map[int]int{0: 0, 1: 0, 2: 1, 3: 2, 4: 2, 5: 3, 8: 3, 9: 4, 16: 4, 17: 5}
	for n, want := range cases {
		assert.Equal(t, want, codingLength(n), "codingLength(%d)", n)
	}
}

func TestNewStringTablePreseeded(t *testing.T) {
	st := NewStringTable()
	require.Equal(t, 3, st.NumURIs())
	assert.Equal(t, 0, st.uriIndex[""])
	assert.Equal(t, 1, st.uriIndex["http://www.w3.org/XML/1998/namespace"])
	assert.Equal(t, 2, st.uriIndex["http://www.w3.org/2001/XMLSchema-instance"])

	xmlEntry := st.uriByID(1)
	assert.Equal(t, []string{"base", "id", "lang", "space"}, xmlEntry.localNames)
}

func TestURIRoundTripLiteralThenHit(t *testing.T) {
	st := NewStringTable()
	w := bitio.NewWriter()
	ch := NewEncoderChannel(w, false)

	firstID := st.EncodeURI(ch, "urn:example")
	secondID := st.EncodeURI(ch, "urn:example")
	assert.Equal(t, firstID, secondID)

	buf, _ := w.Finalize()
	r := bitio.NewReader(buf)
	dch := NewDecoderChannel(r, false)

	dst := NewStringTable()
	entry, id1, err := dst.DecodeURI(dch)
	require.NoError(t, err)
	assert.Equal(t, "urn:example", entry.uri)
	assert.Equal(t, firstID, id1)

	_, id2, err := dst.DecodeURI(dch)
	require.NoError(t, err)
	assert.Equal(t, firstID, id2)
}

func TestLocalNameRoundTrip(t *testing.T) {
	st := NewStringTable()

	w := bitio.NewWriter()
	ch := NewEncoderChannel(w, false)
	id := st.EncodeLocalName(ch, 0, "widget")
	id2 := st.EncodeLocalName(ch, 0, "widget")
	assert.Equal(t, id, id2)

	buf, _ := w.Finalize()
	r := bitio.NewReader(buf)
	dch := NewDecoderChannel(r, false)
	dst := NewStringTable()
	got1, err := dst.DecodeLocalName(dch, 0)
	require.NoError(t, err)
	assert.Equal(t, id, got1)
	got2, err := dst.DecodeLocalName(dch, 0)
	require.NoError(t, err)
	assert.Equal(t, id, got2)
}

func TestContextByIDsMatchesContext(t *testing.T) {
	st := NewStringTable()
	qnc := st.Context("urn:a", "foo")
	again := st.ContextByIDs(qnc.URIID, qnc.LocalNameID)
	assert.Same(t, qnc, again)
}
