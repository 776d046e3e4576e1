package document

import (
	log "github.com/sirupsen/logrus"

	"github.com/gettalong/hexapdf-sub011/internal/pdf"
	"github.com/gettalong/hexapdf-sub011/internal/revision"
)

// DereferenceInPlace replaces every Reference reachable from root with the
// resolved object's shared handle. The handle keeps the target's identity,
// so serialization still emits a reference; only raw identity-only
// Reference values disappear. Unresolvable and tombstoned references
// become Null, as does the reserved direct sentinel.
//
// Each composite is visited exactly once: a visited set keyed by identity
// guards against the back-references document graphs routinely contain.
func (d *Document) DereferenceInPlace(root pdf.Object) (pdf.Object, error) {
	return d.walk(root, pdf.NewIDSet())
}

func (d *Document) walk(obj pdf.Object, visited pdf.IDSet) (pdf.Object, error) {
	switch v := obj.(type) {
	case pdf.Reference:
		if v.IsDirect() {
			// number 0 never binds a real object, so there is no wrapped
			// value to unwrap here; Null is the only possible outcome
			return pdf.Null{}, nil
		}
		target, err := d.res.Resolve(v.ObjectID)
		if err != nil {
			return nil, err
		}
		if target == nil {
			return pdf.Null{}, nil
		}
		return d.walk(target, visited)

	case *pdf.IndirectObject:
		if visited.Has(v.ID) {
			return v, nil
		}
		visited.Insert(v.ID)
		value, err := d.walk(v.Value, visited)
		if err != nil {
			return nil, err
		}
		v.Value = value
		return v, nil

	case pdf.Array:
		for i := range v {
			item, err := d.walk(v[i], visited)
			if err != nil {
				return nil, err
			}
			v[i] = item
		}
		return v, nil

	case pdf.Dictionary:
		if err := d.walkDict(v, visited); err != nil {
			return nil, err
		}
		return v, nil

	case pdf.Stream:
		if err := d.walkDict(v.Dictionary, visited); err != nil {
			return nil, err
		}
		return v, nil

	default:
		return obj, nil
	}
}

func (d *Document) walkDict(dict pdf.Dictionary, visited pdf.IDSet) error {
	for k := range dict {
		value, err := d.walk(dict[k], visited)
		if err != nil {
			return err
		}
		dict[k] = value
	}
	return nil
}

// DereferenceAll walks the whole graph from the revision trailers and
// returns every object bound in the chain that the walk never reached.
// Object-stream containers and cross-reference stream objects are
// infrastructure and excluded; an object referenced only from a stream's
// declared length field was fixed up during resolution, is never reached
// by the walk, and is therefore reported unused alongside true orphans.
//
// Running it twice yields the same unused set and leaves the graph
// identically dereferenced.
func (d *Document) DereferenceAll() ([]*pdf.IndirectObject, error) {
	visited := pdf.NewIDSet()

	var walkErr error
	d.chain.Each(func(rev *revision.Revision) bool {
		walkErr = d.walkDict(rev.Trailer, visited)
		return walkErr == nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	var unused []*pdf.IndirectObject
	for _, id := range d.objectIDs().List() {
		if visited.Has(id) {
			continue
		}
		obj, err := d.res.Resolve(id)
		if err != nil {
			log.Warnf("skipping unreadable object %v: %v", id, err)
			continue
		}
		if obj == nil {
			continue // tombstoned
		}
		if typ, ok := pdf.TypeOf(obj.Value); ok && (typ == "ObjStm" || typ == "XRef") {
			continue
		}
		unused = append(unused, obj)
	}
	return unused, nil
}
