package xref

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gettalong/hexapdf-sub011/internal/pdf"
)

func TestFromEntriesFirstOccurrenceWins(t *testing.T) {
	s := FromEntries([]Entry{
		{Number: 1, Type: EntryInUse, Field2: 100, Field3: 0},
		{Number: 1, Type: EntryInUse, Field2: 999, Field3: 0},
		{Number: 2, Type: EntryCompressed, Field2: 7, Field3: 3},
		{Number: 3, Type: EntryFree, Field2: 0, Field3: 1},
	})
	require.True(t, s.Final())

	loc, ok := s.Lookup(pdf.NewID(1, 0))
	require.True(t, ok)
	require.Equal(t, InFile, loc.Kind)
	require.Equal(t, int64(100), loc.Offset)

	loc, ok = s.Lookup(pdf.NewID(2, 0))
	require.True(t, ok)
	require.Equal(t, InStream, loc.Kind)
	require.Equal(t, pdf.NewID(7, 0), loc.Container)
	require.Equal(t, 3, loc.Index)

	require.Equal(t, []uint32{3}, s.FreeNumbers())
	require.Equal(t, uint32(1), s.FreeGeneration(3))
}

func TestLookupFreeAnswersForEveryGeneration(t *testing.T) {
	s := FromEntries([]Entry{
		{Number: 4, Type: EntryFree, Field3: 2},
	})

	// the number was freed; any generation asked for is tombstoned
	loc, ok := s.Lookup(pdf.NewID(4, 0))
	require.True(t, ok)
	require.Equal(t, Free, loc.Kind)

	loc, ok = s.Lookup(pdf.NewID(4, 5))
	require.True(t, ok)
	require.Equal(t, Free, loc.Kind)

	_, ok = s.Lookup(pdf.NewID(5, 0))
	require.False(t, ok)
}

func TestSetRefusedWhenFinal(t *testing.T) {
	s := NewSection()
	require.NoError(t, s.Set(pdf.NewID(1, 0), Location{Kind: InFile, Offset: 42}))

	s.Finalize()
	err := s.Set(pdf.NewID(2, 0), Location{Kind: InFile, Offset: 99})
	require.Error(t, err)
}

func TestSetFreeDropsBinding(t *testing.T) {
	s := NewSection()
	require.NoError(t, s.Set(pdf.NewID(6, 0), Location{Kind: InFile, Offset: 10}))
	require.NoError(t, s.Set(pdf.NewID(6, 1), Location{Kind: Free}))

	loc, ok := s.Lookup(pdf.NewID(6, 0))
	require.True(t, ok)
	require.Equal(t, Free, loc.Kind)
	require.Equal(t, uint32(1), s.FreeGeneration(6))

	// re-binding the number clears the free entry again
	require.NoError(t, s.Set(pdf.NewID(6, 1), Location{Kind: InFile, Offset: 20}))
	loc, ok = s.Lookup(pdf.NewID(6, 1))
	require.True(t, ok)
	require.Equal(t, InFile, loc.Kind)
	require.Empty(t, s.FreeNumbers())
}

func TestMaxNumber(t *testing.T) {
	s := NewSection()
	require.NoError(t, s.Set(pdf.NewID(3, 0), Location{Kind: InFile, Offset: 1}))
	require.NoError(t, s.Set(pdf.NewID(9, 0), Location{Kind: Free}))
	require.Equal(t, uint32(9), s.MaxNumber())
	require.Equal(t, 2, s.Len())
}
