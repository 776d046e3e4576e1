// Package document ties the revision chain, the resolver and the rewrite
// tasks together into one mutable document model.
package document

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/gettalong/hexapdf-sub011/internal/pdf"
	"github.com/gettalong/hexapdf-sub011/internal/resolver"
	"github.com/gettalong/hexapdf-sub011/internal/revision"
	"github.com/gettalong/hexapdf-sub011/internal/scanner"
	"github.com/gettalong/hexapdf-sub011/internal/schema"
	"github.com/gettalong/hexapdf-sub011/internal/storage"
	"github.com/gettalong/hexapdf-sub011/internal/xref"
)

// Document is a single document instance: one revision chain, one resolver
// owning the materialized objects, one field-schema registry.
//
// A Document must not be shared across goroutines without external
// synchronization.
type Document struct {
	store *storage.Store
	scan  *scanner.Scanner
	chain *revision.Chain
	res   *resolver.Resolver
	reg   schema.Registry

	version pdf.Version
	path    string
}

// Create returns a new empty document with a single fresh revision and a
// randomly seeded file identifier.
func Create() *Document {
	id := pdf.String(uuid.New().String())
	trailer := pdf.Dictionary{
		"Size": pdf.Integer(1),
		"ID":   pdf.Array{id, id},
	}
	chain := revision.NewChain(trailer)
	return &Document{
		chain:   chain,
		res:     resolver.New(chain, nil),
		reg:     schema.Default(),
		version: pdf.V17,
	}
}

// Open memory-maps and loads the document at path.
func Open(path string) (*Document, error) {
	store, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	d, err := fromStore(store)
	if err != nil {
		store.Close()
		return nil, err
	}
	d.path = path
	log.WithFields(log.Fields{
		"path":      path,
		"revisions": d.chain.Len(),
		"version":   d.version,
	}).Info("document loaded")
	return d, nil
}

// OpenBytes loads a document from an in-memory buffer.
func OpenBytes(data []byte) (*Document, error) {
	return fromStore(storage.FromBytes(data))
}

func fromStore(store *storage.Store) (*Document, error) {
	sc := scanner.New(store.Bytes())

	version, err := sc.HeaderVersion()
	if err != nil {
		// malformed headers are tolerated on read
		log.Warnf("unreadable file header: %v", err)
		version = pdf.V10
	}

	entry, err := sc.StartXRef()
	if err != nil {
		return nil, err
	}
	chain, err := revision.Load(entry, sc)
	if err != nil {
		return nil, err
	}

	d := &Document{
		store:   store,
		scan:    sc,
		chain:   chain,
		res:     resolver.New(chain, sc),
		reg:     schema.Default(),
		version: version,
	}

	// the catalog's /Version entry may raise the header version
	if cat, err := d.Catalog(); err == nil && cat != nil {
		if vn, ok := cat.GetName("Version"); ok {
			if v, err := pdf.ParseVersion(string(vn)); err == nil {
				d.version = d.version.Max(v)
			}
		}
	}

	return d, nil
}

// Close releases the underlying byte store.
func (d *Document) Close() error {
	if d.store == nil {
		return nil
	}
	return d.store.Close()
}

// Version returns the document's effective declared version.
func (d *Document) Version() pdf.Version {
	return d.version
}

// SetVersion declares a version explicitly.
func (d *Document) SetVersion(v pdf.Version) {
	d.version = v
}

// Chain exposes the revision chain.
func (d *Document) Chain() *revision.Chain {
	return d.chain
}

// Registry exposes the field-schema registry for extension.
func (d *Document) Registry() schema.Registry {
	return d.reg
}

// Resolve returns the object identified by id, or (nil, nil) when no
// revision binds it.
func (d *Document) Resolve(id pdf.ObjectID) (*pdf.IndirectObject, error) {
	return d.res.Resolve(id)
}

// Get resolves ref and returns the target's value; unresolvable references
// yield Null.
func (d *Document) Get(ref pdf.Reference) pdf.Object {
	obj, err := d.res.Resolve(ref.ObjectID)
	if err != nil {
		log.Warnf("resolving %v: %v", ref.ObjectID, err)
		return pdf.Null{}
	}
	if obj == nil {
		return pdf.Null{}
	}
	return obj.Value
}

// Trailer returns the document's merged trailer view: every revision's
// trailer applied oldest to newest, so the newest binding of each key wins
// while inherited keys such as /Root stay visible.
func (d *Document) Trailer() pdf.Dictionary {
	merged := pdf.Dictionary{}
	d.chain.Each(func(rev *revision.Revision) bool {
		for k, v := range rev.Trailer {
			merged[k] = v
		}
		return true
	})
	return merged
}

// Catalog resolves the document catalog.
func (d *Document) Catalog() (pdf.Dictionary, error) {
	trailer := d.Trailer()
	switch root := trailer["Root"].(type) {
	case pdf.Reference:
		obj, err := d.res.Resolve(root.ObjectID)
		if err != nil {
			return nil, err
		}
		if obj == nil {
			return nil, errors.Errorf("catalog %v not found", root.ObjectID)
		}
		if dict, ok := pdf.DictOf(obj.Value); ok {
			return dict, nil
		}
		return nil, errors.Errorf("catalog %v is not a dictionary", root.ObjectID)
	case *pdf.IndirectObject:
		dict, ok := pdf.DictOf(root.Value)
		if !ok {
			return nil, errors.Errorf("catalog %v is not a dictionary", root.ID)
		}
		return dict, nil
	case nil:
		return nil, errors.New("trailer has no /Root entry")
	default:
		return nil, errors.Errorf("trailer /Root is %T", root)
	}
}

// editable returns the current revision, stacking a fresh one on top first
// when the current revision was loaded from file bytes and is therefore
// read-only.
func (d *Document) editable() *revision.Revision {
	cur := d.chain.Current()
	if cur.Section.Final() {
		cur = d.chain.Add()
	}
	return cur
}

// allocID reserves the next unused object number.
func (d *Document) allocID() pdf.ObjectID {
	num := d.chain.MaxNumber() + 1
	if size, ok := d.Trailer().Int("Size"); ok && uint32(size) > num {
		num = uint32(size)
	}
	return pdf.NewID(num, 0)
}

func (d *Document) bumpSize(rev *revision.Revision, number uint32) {
	if size, ok := rev.Trailer.Int("Size"); !ok || size < int64(number)+1 {
		rev.Trailer["Size"] = pdf.Integer(number + 1)
	}
}

// Add stores value as a new indirect object in the current revision and
// returns its reference.
func (d *Document) Add(value pdf.Object) (pdf.Reference, error) {
	rev := d.editable()
	obj := &pdf.IndirectObject{ID: d.allocID(), Value: value}
	rev.StoreCached(obj)
	d.bumpSize(rev, obj.ID.Number)
	return pdf.Reference{ObjectID: obj.ID}, nil
}

// Put stores obj under its own identity in the current revision, shadowing
// any binding from an older revision.
func (d *Document) Put(obj *pdf.IndirectObject) error {
	if obj.ID.IsDirect() {
		return errors.New("object number 0 is reserved")
	}
	rev := d.editable()
	rev.StoreCached(obj)
	d.bumpSize(rev, obj.ID.Number)
	d.res.Forget(obj.ID)
	return nil
}

// Free marks an object number as unused in the current revision. The free
// entry tombstones every older binding of that number.
func (d *Document) Free(number uint32) error {
	if number == 0 {
		return errors.New("object number 0 is reserved")
	}
	rev := d.editable()

	// determine the generation the next reuse must carry
	gen := uint32(0)
	revs := d.chain.Revisions()
lookup:
	for i := len(revs) - 1; i >= 0; i-- {
		for _, id := range revs[i].Section.IDs() {
			if id.Number == number {
				gen = id.Generation + 1
				break lookup
			}
		}
		for _, id := range revs[i].CachedIDs() {
			if id.Number == number {
				gen = id.Generation + 1
				break lookup
			}
		}
	}

	if err := rev.Section.Set(pdf.NewID(number, gen), xref.Location{Kind: xref.Free}); err != nil {
		return err
	}
	for _, r := range revs {
		for _, id := range r.CachedIDs() {
			if id.Number == number {
				r.DropCached(id)
				d.res.Forget(id)
			}
		}
	}
	return nil
}

// objectIDs enumerates every identity bound anywhere in the chain,
// cross-reference stream objects excluded.
func (d *Document) objectIDs() pdf.IDSet {
	ids := pdf.NewIDSet()
	d.chain.Each(func(rev *revision.Revision) bool {
		for _, id := range rev.Section.IDs() {
			ids.Insert(id)
		}
		for _, id := range rev.CachedIDs() {
			ids.Insert(id)
		}
		if !rev.XRefStream.IsDirect() {
			ids.Delete(rev.XRefStream)
		}
		return true
	})
	return ids
}
