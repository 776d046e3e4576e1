package revision

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/gettalong/hexapdf-sub011/internal/pdf"
	"github.com/gettalong/hexapdf-sub011/internal/xref"
)

// fakeLoader serves canned revisions by offset.
type fakeLoader struct {
	revs map[int64]*Revision
}

func (l *fakeLoader) LoadRevision(offset int64) (*Revision, error) {
	rev, ok := l.revs[offset]
	if !ok {
		return nil, errors.Errorf("no revision at offset %d", offset)
	}
	return rev, nil
}

func loadedRev(trailer pdf.Dictionary, offset int64) *Revision {
	return NewLoaded(xref.NewSection(), trailer, offset)
}

func TestLoadFollowsPrevChain(t *testing.T) {
	ld := &fakeLoader{revs: map[int64]*Revision{
		100: loadedRev(pdf.Dictionary{"Size": pdf.Integer(5)}, 100),
		200: loadedRev(pdf.Dictionary{"Size": pdf.Integer(8), "Prev": pdf.Integer(100)}, 200),
		300: loadedRev(pdf.Dictionary{"Size": pdf.Integer(9), "Prev": pdf.Integer(200)}, 300),
	}}

	chain, err := Load(300, ld)
	require.NoError(t, err)
	require.Equal(t, 3, chain.Len())

	// oldest first
	require.Equal(t, int64(100), chain.Revision(0).Offset)
	require.Equal(t, int64(300), chain.Current().Offset)
}

func TestLoadTruncatesOnLoop(t *testing.T) {
	ld := &fakeLoader{revs: map[int64]*Revision{
		100: loadedRev(pdf.Dictionary{"Prev": pdf.Integer(200)}, 100),
		200: loadedRev(pdf.Dictionary{"Prev": pdf.Integer(100)}, 200),
	}}

	chain, err := Load(200, ld)
	require.NoError(t, err)
	require.Equal(t, 2, chain.Len())
	require.Equal(t, int64(200), chain.Current().Offset)
}

func TestLoadTruncatesOnUnreadablePredecessor(t *testing.T) {
	ld := &fakeLoader{revs: map[int64]*Revision{
		200: loadedRev(pdf.Dictionary{"Prev": pdf.Integer(50)}, 200),
	}}

	chain, err := Load(200, ld)
	require.NoError(t, err)
	require.Equal(t, 1, chain.Len())
}

func TestLoadFailsOnUnreadableEntry(t *testing.T) {
	ld := &fakeLoader{revs: map[int64]*Revision{}}
	_, err := Load(123, ld)
	require.Error(t, err)
}

func TestAddInheritsSize(t *testing.T) {
	chain := NewChain(pdf.Dictionary{"Size": pdf.Integer(17)})
	rev := chain.Add()

	require.Equal(t, 2, chain.Len())
	require.Same(t, rev, chain.Current())
	require.Equal(t, int64(17), rev.Size())
	require.False(t, rev.Loaded())
	require.NotContains(t, rev.Trailer, pdf.Name("Prev"))
}

func TestDeleteKeepsAtLeastOneRevision(t *testing.T) {
	chain := NewChain(nil)
	require.Error(t, chain.DeleteAt(0))

	rev := chain.Add()
	require.NoError(t, chain.Delete(rev))
	require.Equal(t, 1, chain.Len())

	require.Error(t, chain.Delete(rev))
	require.Error(t, chain.DeleteAt(5))
}

func TestRevisionCache(t *testing.T) {
	rev := New(nil)
	obj := &pdf.IndirectObject{ID: pdf.NewID(4, 0), Value: pdf.Integer(7)}
	rev.StoreCached(obj)

	got, ok := rev.Cached(pdf.NewID(4, 0))
	require.True(t, ok)
	require.Same(t, obj, got)
	require.Equal(t, []pdf.ObjectID{pdf.NewID(4, 0)}, rev.CachedIDs())
	require.Equal(t, uint32(4), rev.MaxNumber())

	rev.DropCached(pdf.NewID(4, 0))
	_, ok = rev.Cached(pdf.NewID(4, 0))
	require.False(t, ok)
}

func TestChainMaxNumber(t *testing.T) {
	chain := NewChain(nil)
	chain.Current().StoreCached(&pdf.IndirectObject{ID: pdf.NewID(11, 0), Value: pdf.Null{}})
	rev := chain.Add()
	rev.StoreCached(&pdf.IndirectObject{ID: pdf.NewID(6, 0), Value: pdf.Null{}})

	require.Equal(t, uint32(11), chain.MaxNumber())
}
