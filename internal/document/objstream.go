package document

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/gettalong/hexapdf-sub011/internal/filter"
	"github.com/gettalong/hexapdf-sub011/internal/pdf"
	"github.com/gettalong/hexapdf-sub011/internal/revision"
	"github.com/gettalong/hexapdf-sub011/internal/xref"
)

// ObjectStreamMode selects what happens to object streams during
// optimization.
type ObjectStreamMode int

const (
	// ObjectStreamsPreserve leaves existing containers untouched.
	ObjectStreamsPreserve ObjectStreamMode = iota
	// ObjectStreamsGenerate packs eligible objects into fresh containers.
	ObjectStreamsGenerate
	// ObjectStreamsDelete inlines members and frees the containers.
	ObjectStreamsDelete
)

// ObjectStreamOptions tunes container generation.
type ObjectStreamOptions struct {
	// GroupSize is the maximum number of members per container.
	GroupSize int
	// ExcludeTypes lists /Type values whose objects must stay outside
	// containers.
	ExcludeTypes pdf.NameSet
}

// DefaultObjectStreamOptions returns the generation defaults: groups of
// 200 members, infrastructure and encryption objects excluded.
func DefaultObjectStreamOptions() ObjectStreamOptions {
	return ObjectStreamOptions{
		GroupSize:    200,
		ExcludeTypes: pdf.NewNameSet("XRef", "ObjStm", "Encrypt", "Sig"),
	}
}

// GenerateObjectStreams packs every eligible object into containers of at
// most opts.GroupSize members. Objects with stream data, objects with a
// non-zero generation, excluded types and the encryption dictionary keep
// their own cross-reference entry.
//
// Members stay materialized in the current revision's cache; only their
// cross-reference binding changes, so resolution keeps handing out the
// same instances.
func (d *Document) GenerateObjectStreams(opts ObjectStreamOptions) error {
	if opts.GroupSize <= 0 {
		opts.GroupSize = 200
	}
	if opts.ExcludeTypes == nil {
		opts.ExcludeTypes = DefaultObjectStreamOptions().ExcludeTypes
	}

	encryptID := pdf.ObjectID{}
	if ref, ok := d.Trailer().Ref("Encrypt"); ok {
		encryptID = ref.ObjectID
	}

	var members []*pdf.IndirectObject
	for _, id := range d.objectIDs().List() {
		obj, err := d.res.Resolve(id)
		if err != nil {
			log.Warnf("skipping unreadable object %v: %v", id, err)
			continue
		}
		if obj == nil {
			continue
		}
		if !eligibleForContainer(obj, opts.ExcludeTypes, encryptID) {
			continue
		}
		members = append(members, obj)
	}
	if len(members) == 0 {
		return nil
	}

	rev := d.editable()
	containers := 0
	for start := 0; start < len(members); start += opts.GroupSize {
		end := start + opts.GroupSize
		if end > len(members) {
			end = len(members)
		}
		if err := d.packContainer(rev, members[start:end]); err != nil {
			return err
		}
		containers++
	}
	log.WithFields(log.Fields{"members": len(members), "containers": containers}).Info("object streams generated")
	return nil
}

func eligibleForContainer(obj *pdf.IndirectObject, exclude pdf.NameSet, encryptID pdf.ObjectID) bool {
	if obj.ID.Generation != 0 {
		return false
	}
	if obj.ID == encryptID && !encryptID.IsDirect() {
		return false
	}
	if _, ok := obj.Value.(pdf.Stream); ok {
		return false
	}
	if typ, ok := pdf.TypeOf(obj.Value); ok && exclude.Has(typ) {
		return false
	}
	return true
}

// packContainer serializes members into one container object, binds them
// in-stream and adds the container to the current revision.
func (d *Document) packContainer(rev *revision.Revision, members []*pdf.IndirectObject) error {
	header := &bytes.Buffer{}
	payload := &bytes.Buffer{}
	for _, m := range members {
		fmt.Fprintf(header, "%d %d ", m.ID.Number, payload.Len())
		if err := serializeValue(payload, m.Value); err != nil {
			return errors.Wrapf(err, "packing %v", m.ID)
		}
		payload.WriteByte(' ')
	}

	first := header.Len()
	data := append(header.Bytes(), payload.Bytes()...)
	encoded, err := filter.Encode(data)
	if err != nil {
		return errors.Wrap(err, "encoding container payload")
	}

	container := &pdf.IndirectObject{
		ID: d.allocID(),
		Value: pdf.Stream{
			Dictionary: pdf.Dictionary{
				"Type":   pdf.Name("ObjStm"),
				"N":      pdf.Integer(len(members)),
				"First":  pdf.Integer(first),
				"Filter": filter.FlateDecode,
			},
			Raw: encoded,
		},
	}
	rev.StoreCached(container)
	d.bumpSize(rev, container.ID.Number)

	for i, m := range members {
		rev.StoreCached(m)
		err := rev.Section.Set(m.ID, xref.Location{
			Kind:      xref.InStream,
			Container: container.ID,
			Index:     i,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteObjectStreams rebinds every in-stream member as a standalone
// object in the current revision and frees the container numbers.
func (d *Document) DeleteObjectStreams() error {
	containers := pdf.NewIDSet()
	memberIDs := pdf.NewIDSet()
	d.chain.Each(func(rev *revision.Revision) bool {
		rev.Section.Each(func(id pdf.ObjectID, loc xref.Location) bool {
			if loc.Kind == xref.InStream {
				containers.Insert(loc.Container)
				memberIDs.Insert(id)
			}
			return true
		})
		for _, id := range rev.CachedIDs() {
			if obj, ok := rev.Cached(id); ok {
				if typ, hasType := pdf.TypeOf(obj.Value); hasType && typ == "ObjStm" {
					containers.Insert(id)
				}
			}
		}
		return true
	})
	if len(containers) == 0 {
		return nil
	}

	cur := d.editable()
	for _, id := range memberIDs.List() {
		obj, err := d.res.Resolve(id)
		if err != nil {
			return errors.Wrapf(err, "inlining member %v", id)
		}
		if obj == nil {
			continue
		}
		cur.StoreCached(obj)
		d.bumpSize(cur, obj.ID.Number)
	}
	for _, id := range containers.List() {
		if err := d.Free(id.Number); err != nil {
			return errors.Wrapf(err, "freeing container %v", id)
		}
	}
	log.WithFields(log.Fields{"containers": len(containers), "members": len(memberIDs)}).Info("object streams deleted")
	return nil
}
