// Package resolver turns object identities into materialized objects by
// walking the revision chain from newest to oldest.
package resolver

import (
	"log"

	"github.com/pkg/errors"

	"github.com/gettalong/hexapdf-sub011/internal/filter"
	"github.com/gettalong/hexapdf-sub011/internal/pdf"
	"github.com/gettalong/hexapdf-sub011/internal/revision"
	"github.com/gettalong/hexapdf-sub011/internal/xref"
)

// Tokenizer is the byte-level collaborator the resolver loads objects
// through.
type Tokenizer interface {
	// ParseObjectAt parses the indirect object at a byte offset.
	ParseObjectAt(offset int64) (*pdf.IndirectObject, error)
	// ParseMembers decodes a container object's member table from its
	// decoded payload.
	ParseMembers(data []byte, n int, first int) ([]*pdf.IndirectObject, error)
}

// Resolver resolves identities against a revision chain. Results are
// cached for the resolver's lifetime, keyed by identity, so repeated
// resolution of one identity returns the same object instance; graph
// algorithms rely on that for identity comparison.
//
// A Resolver is owned by exactly one document and is not safe for
// concurrent use.
type Resolver struct {
	chain *revision.Chain
	tok   Tokenizer

	cache   map[pdf.ObjectID]*pdf.IndirectObject
	loading pdf.IDSet
}

// New returns a resolver over chain. tok may be nil for purely in-memory
// chains; resolution of file-backed locations then fails.
func New(chain *revision.Chain, tok Tokenizer) *Resolver {
	return &Resolver{
		chain:   chain,
		tok:     tok,
		cache:   make(map[pdf.ObjectID]*pdf.IndirectObject),
		loading: pdf.NewIDSet(),
	}
}

// Reset discards the cache and re-targets the resolver at chain. Rewrite
// tasks call it after replacing the chain, invalidating all handles.
func (r *Resolver) Reset(chain *revision.Chain) {
	r.chain = chain
	r.cache = make(map[pdf.ObjectID]*pdf.IndirectObject)
	r.loading = pdf.NewIDSet()
}

// Forget drops the cached result for id. Callers use it when a binding is
// replaced or tombstoned in the current revision.
func (r *Resolver) Forget(id pdf.ObjectID) {
	delete(r.cache, id)
}

// Chain returns the chain the resolver currently works on.
func (r *Resolver) Chain() *revision.Chain {
	return r.chain
}

// Resolve returns the object identified by id, or (nil, nil) when no
// revision binds it. A free entry in a revision's section tombstones the
// identity: older bindings are not consulted.
func (r *Resolver) Resolve(id pdf.ObjectID) (*pdf.IndirectObject, error) {
	if id.IsDirect() {
		return nil, nil
	}
	if obj, ok := r.cache[id]; ok {
		return obj, nil
	}

	// corrupt location data can point resolution back at an identity that
	// is still being loaded: a container claiming to hold itself, two
	// containers claiming each other, a stream whose /Length references
	// the stream. Re-entering would recurse without bound.
	if r.loading.Has(id) {
		return nil, errors.Errorf("cyclic resolution of %v", id)
	}
	r.loading.Insert(id)
	defer r.loading.Delete(id)

	revs := r.chain.Revisions()
	for i := len(revs) - 1; i >= 0; i-- {
		rev := revs[i]

		if obj, ok := rev.Cached(id); ok {
			r.cache[id] = obj
			return obj, nil
		}

		loc, ok := rev.Section.Lookup(id)
		if !ok {
			continue
		}

		switch loc.Kind {
		case xref.Free:
			return nil, nil

		case xref.InFile:
			obj, err := r.loadAt(loc.Offset, id)
			if err != nil {
				return nil, err
			}
			rev.StoreCached(obj)
			r.cache[id] = obj
			return obj, nil

		case xref.InStream:
			obj, err := r.loadFromContainer(rev, loc, id)
			if err != nil {
				return nil, err
			}
			return obj, nil
		}
	}

	return nil, nil
}

func (r *Resolver) loadAt(offset int64, id pdf.ObjectID) (*pdf.IndirectObject, error) {
	if r.tok == nil {
		return nil, errors.Errorf("no tokenizer to load %v at offset %d", id, offset)
	}
	obj, err := r.tok.ParseObjectAt(offset)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %v", id)
	}
	if obj.ID != id {
		// tolerate the mismatch, the binding wins over the object header
		log.Printf("object at offset %d identifies as %v, expected %v", offset, obj.ID, id)
		obj.ID = id
	}
	if err := r.fixStreamLength(obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// fixStreamLength resolves an indirect /Length and clamps the raw data to
// it. The length object stays legitimately indirect but is not part of the
// application graph; whole-graph dereferencing reports it as unused.
func (r *Resolver) fixStreamLength(obj *pdf.IndirectObject) error {
	stream, ok := obj.Value.(pdf.Stream)
	if !ok {
		return nil
	}
	ref, ok := stream.Ref("Length")
	if !ok {
		return nil
	}
	target, err := r.Resolve(ref.ObjectID)
	if err != nil {
		return errors.Wrapf(err, "stream %v /Length", obj.ID)
	}
	if target == nil {
		return nil
	}
	length, ok := target.Value.(pdf.Integer)
	if !ok {
		return nil
	}
	stream.Dictionary["Length"] = length
	if int(length) >= 0 && int(length) < len(stream.Raw) {
		stream.Raw = stream.Raw[:int(length)]
		obj.Value = stream
	}
	return nil
}

// loadFromContainer resolves the container object, decodes its member
// table and caches every member at once; containers are fully resolved
// before member extraction begins, which keeps recursion bounded.
func (r *Resolver) loadFromContainer(rev *revision.Revision, loc xref.Location, id pdf.ObjectID) (*pdf.IndirectObject, error) {
	container, err := r.Resolve(loc.Container)
	if err != nil {
		return nil, errors.Wrapf(err, "container of %v", id)
	}
	if container == nil {
		return nil, errors.Errorf("container %v of %v not found", loc.Container, id)
	}
	stream, ok := container.Value.(pdf.Stream)
	if !ok {
		return nil, errors.Errorf("container %v of %v is not a stream", loc.Container, id)
	}

	n, ok := stream.Int("N")
	if !ok {
		return nil, errors.Errorf("container %v has no member count", loc.Container)
	}
	first, ok := stream.Int("First")
	if !ok {
		return nil, errors.Errorf("container %v has no member table offset", loc.Container)
	}

	data, err := filter.Decode(stream.Raw, stream.Dictionary["Filter"], stream.Dictionary["DecodeParms"])
	if err != nil {
		return nil, errors.Wrapf(err, "decoding container %v", loc.Container)
	}
	if r.tok == nil {
		return nil, errors.Errorf("no tokenizer to unpack container %v", loc.Container)
	}
	members, err := r.tok.ParseMembers(data, int(n), int(first))
	if err != nil {
		return nil, errors.Wrapf(err, "unpacking container %v", loc.Container)
	}

	for _, m := range members {
		if _, ok := r.cache[m.ID]; !ok {
			rev.StoreCached(m)
			r.cache[m.ID] = m
		}
	}

	if loc.Index < 0 || loc.Index >= len(members) {
		return nil, errors.Errorf("member index %d outside container %v with %d members", loc.Index, loc.Container, len(members))
	}
	member := members[loc.Index]
	if member.ID != id {
		// index from the section is stale, fall back to the member table
		log.Printf("container %v member %d identifies as %v, expected %v", loc.Container, loc.Index, member.ID, id)
		if obj, ok := r.cache[id]; ok {
			return obj, nil
		}
		return nil, errors.Errorf("object %v not present in container %v", id, loc.Container)
	}
	return r.cache[id], nil
}
