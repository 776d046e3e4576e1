package document

import (
	"bytes"
	"math"
	"reflect"

	log "github.com/sirupsen/logrus"

	"github.com/gettalong/hexapdf-sub011/internal/pdf"
)

// PruneFieldDefaults removes optional dictionary entries whose value equals
// the documented default for the object's type. A reader supplies the same
// value for the missing entry, so the document's meaning is unchanged.
// Required fields are never touched, nor are entries the schema does not
// know a default for.
//
// Only objects whose /Type names a registered schema participate.
func (d *Document) PruneFieldDefaults() error {
	pruned := 0
	for _, id := range d.objectIDs().List() {
		obj, err := d.res.Resolve(id)
		if err != nil {
			log.Warnf("skipping unreadable object %v: %v", id, err)
			continue
		}
		if obj == nil {
			continue
		}
		dict, ok := pdf.DictOf(obj.Value)
		if !ok {
			continue
		}
		typ, ok := dict.GetName("Type")
		if !ok {
			continue
		}
		fields, ok := d.reg.Lookup(typ)
		if !ok {
			continue
		}

		for _, f := range fields {
			if f.Required || f.Default == nil {
				continue
			}
			value, present := dict[f.Name]
			if !present {
				continue
			}
			if defaultEqual(value, f.Default) {
				delete(dict, f.Name)
				pruned++
			}
		}
	}
	log.WithField("entries", pruned).Info("default-valued fields pruned")
	return nil
}

// defaultEqual compares a stored value against a schema default. Integer
// and Real compare numerically, so a stored 0 matches a default 0.0.
func defaultEqual(value, def pdf.Object) bool {
	if a, ok := numeric(value); ok {
		if b, bok := numeric(def); bok {
			return math.Abs(a-b) < 1e-9
		}
		return false
	}
	if a, ok := value.(pdf.String); ok {
		if b, bok := def.(pdf.String); bok {
			return bytes.Equal(a, b)
		}
		return false
	}
	return reflect.DeepEqual(value, def)
}

func numeric(obj pdf.Object) (float64, bool) {
	switch v := obj.(type) {
	case pdf.Integer:
		return float64(v), true
	case pdf.Real:
		return float64(v), true
	}
	return 0, false
}
