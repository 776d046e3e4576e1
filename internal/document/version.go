package document

import (
	log "github.com/sirupsen/logrus"

	"github.com/gettalong/hexapdf-sub011/internal/pdf"
	"github.com/gettalong/hexapdf-sub011/internal/xref"
)

// ComputeMinimumVersion determines the lowest format version the document's
// features require: the highest MinVersion among all schema-known fields
// present on typed dictionaries, raised to 1.5 when cross-reference streams
// or object streams are in use.
func (d *Document) ComputeMinimumVersion() (pdf.Version, error) {
	min := pdf.V10

	for _, rev := range d.chain.Revisions() {
		if !rev.XRefStream.IsDirect() {
			min = min.Max(pdf.V15)
		}
		rev.Section.Each(func(id pdf.ObjectID, loc xref.Location) bool {
			if loc.Kind == xref.InStream {
				min = min.Max(pdf.V15)
				return false
			}
			return true
		})
	}

	for _, id := range d.objectIDs().List() {
		obj, err := d.res.Resolve(id)
		if err != nil {
			log.Warnf("skipping unreadable object %v: %v", id, err)
			continue
		}
		if obj == nil {
			continue
		}
		if dict, ok := pdf.DictOf(obj.Value); ok {
			min = min.Max(d.dictMinVersion(dict))
		}
	}
	return min, nil
}

// dictMinVersion inspects one dictionary and its directly nested plain
// dictionaries. Nested indirect objects are covered by the caller's own
// iteration over all bound identities.
func (d *Document) dictMinVersion(dict pdf.Dictionary) pdf.Version {
	min := pdf.V10
	if typ, ok := dict.GetName("Type"); ok {
		if fields, ok := d.reg.Lookup(typ); ok {
			for _, f := range fields {
				if _, present := dict[f.Name]; present {
					min = min.Max(f.MinVersion)
				}
			}
		}
	}
	for _, v := range dict {
		if nested, ok := v.(pdf.Dictionary); ok {
			min = min.Max(d.dictMinVersion(nested))
		}
	}
	return min
}

// RaiseToMinimumVersion computes the minimum required version and raises
// the declared header version to it. An already higher declaration stays.
func (d *Document) RaiseToMinimumVersion() (pdf.Version, error) {
	min, err := d.ComputeMinimumVersion()
	if err != nil {
		return d.version, err
	}
	if d.version.Less(min) {
		log.WithFields(log.Fields{"from": d.version, "to": min}).Info("header version raised")
	}
	d.version = d.version.Max(min)
	return d.version, nil
}
