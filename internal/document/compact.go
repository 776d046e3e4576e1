package document

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/gettalong/hexapdf-sub011/internal/pdf"
	"github.com/gettalong/hexapdf-sub011/internal/revision"
)

// Compact collapses the revision chain into a single fresh revision that
// binds only reachable objects, renumbered densely from 1. Unreachable
// objects, tombstoned numbers and superseded bindings are all dropped;
// the next write produces a complete file, not an incremental update.
//
// Renumbering mutates the shared object handles in place, so a graph
// dereferenced before compaction stays consistent afterwards.
func (d *Document) Compact() error {
	unused, err := d.DereferenceAll()
	if err != nil {
		return errors.Wrap(err, "compact")
	}
	drop := pdf.NewIDSet()
	for _, obj := range unused {
		drop.Insert(obj.ID)
	}

	var live []*pdf.IndirectObject
	for _, id := range d.objectIDs().List() {
		if drop.Has(id) {
			continue
		}
		obj, err := d.res.Resolve(id)
		if err != nil {
			log.Warnf("dropping unreadable object %v: %v", id, err)
			continue
		}
		if obj == nil {
			continue
		}
		if typ, ok := pdf.TypeOf(obj.Value); ok && (typ == "ObjStm" || typ == "XRef") {
			continue
		}
		live = append(live, obj)
	}

	renum := make(map[pdf.ObjectID]pdf.ObjectID, len(live))
	for i, obj := range live {
		newID := pdf.NewID(uint32(i)+1, 0)
		renum[obj.ID] = newID
		obj.ID = newID
	}

	trailer := pdf.Dictionary{}
	for k, v := range d.Trailer() {
		switch k {
		case "Prev", "XRefStm", "Type", "W", "Index", "Filter", "DecodeParms", "Length":
		default:
			trailer[k] = v
		}
	}
	trailer["Size"] = pdf.Integer(len(live) + 1)

	// the graph holds shared handles after dereferencing; any raw
	// reference left over must still point at a surviving object
	visited := pdf.NewIDSet()
	for _, obj := range live {
		value, err := rewriteRefs(obj.Value, renum, visited)
		if err != nil {
			return errors.Wrapf(err, "object %v", obj.ID)
		}
		obj.Value = value
	}
	if err := rewriteDictRefs(trailer, renum, visited); err != nil {
		return errors.Wrap(err, "trailer")
	}

	rev := revision.New(trailer)
	for _, obj := range live {
		rev.StoreCached(obj)
	}

	d.chain = revision.NewChainWith(rev)
	d.res.Reset(d.chain)
	log.WithFields(log.Fields{"objects": len(live), "removed": len(unused)}).Info("chain compacted")
	return nil
}

func rewriteRefs(obj pdf.Object, renum map[pdf.ObjectID]pdf.ObjectID, visited pdf.IDSet) (pdf.Object, error) {
	switch v := obj.(type) {
	case pdf.Reference:
		newID, ok := renum[v.ObjectID]
		if !ok {
			return nil, errors.Errorf("dangling reference to %v", v.ObjectID)
		}
		return pdf.Reference{ObjectID: newID}, nil

	case *pdf.IndirectObject:
		if visited.Has(v.ID) {
			return v, nil
		}
		visited.Insert(v.ID)
		value, err := rewriteRefs(v.Value, renum, visited)
		if err != nil {
			return nil, err
		}
		v.Value = value
		return v, nil

	case pdf.Array:
		for i := range v {
			item, err := rewriteRefs(v[i], renum, visited)
			if err != nil {
				return nil, err
			}
			v[i] = item
		}
		return v, nil

	case pdf.Dictionary:
		if err := rewriteDictRefs(v, renum, visited); err != nil {
			return nil, err
		}
		return v, nil

	case pdf.Stream:
		if err := rewriteDictRefs(v.Dictionary, renum, visited); err != nil {
			return nil, err
		}
		return v, nil

	default:
		return obj, nil
	}
}

func rewriteDictRefs(dict pdf.Dictionary, renum map[pdf.ObjectID]pdf.ObjectID, visited pdf.IDSet) error {
	for k := range dict {
		value, err := rewriteRefs(dict[k], renum, visited)
		if err != nil {
			return err
		}
		dict[k] = value
	}
	return nil
}
