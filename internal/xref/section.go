package xref

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/gettalong/hexapdf-sub011/internal/pdf"
)

// Section holds one revision's identity to location mapping.
//
// Sections built from file bytes are finalized and refuse further entries;
// mutation of an existing binding happens by adding an entry to a newer
// revision's section, never by editing an old one. The section belonging to
// the chain's current revision stays mutable.
type Section struct {
	entries map[pdf.ObjectID]Location
	free    map[uint32]uint32 // object number -> generation for next use

	final bool
}

// NewSection returns a new, mutable, empty section.
func NewSection() *Section {
	return &Section{
		entries: make(map[pdf.ObjectID]Location),
		free:    make(map[uint32]uint32),
	}
}

// FromEntries builds a finalized section from raw file entries, resolving
// the free-list encoding. Duplicate entries for one identity keep the first
// occurrence, matching how readers treat corrupt subsections.
func FromEntries(entries []Entry) *Section {
	s := NewSection()
	for _, e := range entries {
		switch e.Type {
		case EntryFree:
			if _, ok := s.free[e.Number]; !ok {
				s.free[e.Number] = uint32(e.Field3)
			}
		case EntryInUse:
			id := pdf.NewID(e.Number, uint32(e.Field3))
			if _, ok := s.entries[id]; !ok {
				s.entries[id] = Location{Kind: InFile, Offset: e.Field2}
			}
		case EntryCompressed:
			// members of container objects always have generation 0
			id := pdf.NewID(e.Number, 0)
			if _, ok := s.entries[id]; !ok {
				s.entries[id] = Location{
					Kind:      InStream,
					Container: pdf.NewID(uint32(e.Field2), 0),
					Index:     int(e.Field3),
				}
			}
		}
	}
	s.final = true
	return s
}

// Finalize marks the section as read-only.
func (s *Section) Finalize() {
	s.final = true
}

// Final reports whether the section refuses further entries.
func (s *Section) Final() bool {
	return s.final
}

// Lookup returns the location bound to id. Absence is a normal outcome, not
// an error: the revision chain simply continues its walk. A free entry for
// id's object number answers for every generation, so that a freed number
// tombstones all older bindings.
func (s *Section) Lookup(id pdf.ObjectID) (Location, bool) {
	if loc, ok := s.entries[id]; ok {
		return loc, true
	}
	if _, ok := s.free[id.Number]; ok {
		return Location{Kind: Free}, true
	}
	return Location{}, false
}

// Set binds id to loc. Binding an identity twice in a finalized section is
// a caller contract violation.
func (s *Section) Set(id pdf.ObjectID, loc Location) error {
	if s.final {
		return errors.Errorf("section is finalized, cannot bind %v", id)
	}
	if loc.Kind == Free {
		s.free[id.Number] = id.Generation
		delete(s.entries, id)
		return nil
	}
	delete(s.free, id.Number)
	s.entries[id] = loc
	return nil
}

// Len returns the number of bindings, free entries included.
func (s *Section) Len() int {
	return len(s.entries) + len(s.free)
}

// Each calls fn for every non-free binding until fn returns false.
func (s *Section) Each(fn func(pdf.ObjectID, Location) bool) {
	for id, loc := range s.entries {
		if !fn(id, loc) {
			return
		}
	}
}

// IDs returns the identities of all non-free bindings, sorted.
func (s *Section) IDs() []pdf.ObjectID {
	ids := make([]pdf.ObjectID, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

// FreeNumbers returns all freed object numbers, sorted. The generation
// recorded for a number is the one the next reuse must carry.
func (s *Section) FreeNumbers() []uint32 {
	nums := make([]uint32, 0, len(s.free))
	for n := range s.free {
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	return nums
}

// FreeGeneration returns the generation for the next reuse of a freed
// number.
func (s *Section) FreeGeneration(number uint32) uint32 {
	return s.free[number]
}

// MaxNumber returns the highest object number bound in the section.
func (s *Section) MaxNumber() uint32 {
	var max uint32
	for id := range s.entries {
		if id.Number > max {
			max = id.Number
		}
	}
	for n := range s.free {
		if n > max {
			max = n
		}
	}
	return max
}
