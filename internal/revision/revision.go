// Package revision models one increment of a document: a cross-reference
// section, its trailer and a private cache of materialized objects, plus
// the /Prev-linked chain the increments form.
package revision

import (
	"github.com/gettalong/hexapdf-sub011/internal/pdf"
	"github.com/gettalong/hexapdf-sub011/internal/xref"
)

// Revision owns exactly one cross-reference section and one trailer
// dictionary. Objects materialized from this revision's bindings are kept
// in the revision's cache; newly added objects live only in the cache until
// the revision is written out.
type Revision struct {
	Section *xref.Section
	Trailer pdf.Dictionary

	// Offset is the file offset the section was discovered at, -1 for
	// revisions created in memory.
	Offset int64

	// XRefStream holds the identity of the cross-reference stream object
	// this revision was loaded from, if any. The dereference engine treats
	// it as infrastructure, not application data.
	XRefStream pdf.ObjectID

	cache map[pdf.ObjectID]*pdf.IndirectObject
}

// New returns an empty in-memory revision with the given trailer.
func New(trailer pdf.Dictionary) *Revision {
	if trailer == nil {
		trailer = pdf.Dictionary{}
	}
	return &Revision{
		Section: xref.NewSection(),
		Trailer: trailer,
		Offset:  -1,
		cache:   make(map[pdf.ObjectID]*pdf.IndirectObject),
	}
}

// NewLoaded returns a revision materialized from file bytes. Its section is
// finalized.
func NewLoaded(section *xref.Section, trailer pdf.Dictionary, offset int64) *Revision {
	section.Finalize()
	return &Revision{
		Section: section,
		Trailer: trailer,
		Offset:  offset,
		cache:   make(map[pdf.ObjectID]*pdf.IndirectObject),
	}
}

// Cached returns the materialized object for id, if present.
func (r *Revision) Cached(id pdf.ObjectID) (*pdf.IndirectObject, bool) {
	obj, ok := r.cache[id]
	return obj, ok
}

// StoreCached records obj in the revision's cache.
func (r *Revision) StoreCached(obj *pdf.IndirectObject) {
	r.cache[obj.ID] = obj
}

// DropCached removes the cached object for id.
func (r *Revision) DropCached(id pdf.ObjectID) {
	delete(r.cache, id)
}

// CachedIDs returns the identities of all cached objects.
func (r *Revision) CachedIDs() []pdf.ObjectID {
	set := pdf.NewIDSet()
	for id := range r.cache {
		set.Insert(id)
	}
	return set.List()
}

// Loaded reports whether the revision was materialized from file bytes.
func (r *Revision) Loaded() bool {
	return r.Offset >= 0
}

// Size returns the trailer's declared object-count upper bound.
func (r *Revision) Size() int64 {
	n, _ := r.Trailer.Int("Size")
	return n
}

// MaxNumber returns the highest object number known to this revision.
func (r *Revision) MaxNumber() uint32 {
	max := r.Section.MaxNumber()
	for id := range r.cache {
		if id.Number > max {
			max = id.Number
		}
	}
	return max
}
