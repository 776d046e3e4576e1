// Package schema holds the per-type field tables driving field-default
// pruning and minimum-version computation. Schemas are data, not types:
// the rewrite tasks are generic functions over these tables.
package schema

import (
	"github.com/gettalong/hexapdf-sub011/internal/pdf"
)

// Field describes one documented dictionary entry of a structured type.
type Field struct {
	Name     pdf.Name
	Required bool
	// Default is the value a reader supplies when the entry is absent;
	// nil means the field has no documented default.
	Default pdf.Object
	// MinVersion is the version that introduced the field.
	MinVersion pdf.Version
}

// Registry maps a type name (the /Type entry) to its field table.
type Registry map[pdf.Name][]Field

// Lookup returns the field table for a type name.
func (r Registry) Lookup(typ pdf.Name) ([]Field, bool) {
	fields, ok := r[typ]
	return fields, ok
}

// Field returns the schema entry for one field of a type.
func (r Registry) Field(typ, name pdf.Name) (Field, bool) {
	for _, f := range r[typ] {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Register adds or replaces the field table for a type name.
func (r Registry) Register(typ pdf.Name, fields []Field) {
	r[typ] = fields
}

// Default returns the built-in registry covering the structured types the
// rewrite tasks meet in practice. Callers may extend it via Register.
func Default() Registry {
	return Registry{
		"Catalog": {
			{Name: "Type", Required: true, MinVersion: pdf.V10},
			{Name: "Version", MinVersion: pdf.V14},
			{Name: "Pages", Required: true, MinVersion: pdf.V10},
			{Name: "PageLayout", Default: pdf.Name("SinglePage"), MinVersion: pdf.V10},
			{Name: "PageMode", Default: pdf.Name("UseNone"), MinVersion: pdf.V10},
			{Name: "Outlines", MinVersion: pdf.V10},
			{Name: "Names", MinVersion: pdf.V12},
			{Name: "Dests", MinVersion: pdf.V11},
			{Name: "ViewerPreferences", MinVersion: pdf.V12},
			{Name: "Metadata", MinVersion: pdf.V14},
			{Name: "MarkInfo", MinVersion: pdf.V14},
			{Name: "StructTreeRoot", MinVersion: pdf.V13},
			{Name: "OCProperties", MinVersion: pdf.V15},
			{Name: "AcroForm", MinVersion: pdf.V12},
			{Name: "Lang", MinVersion: pdf.V14},
			{Name: "NeedsRendering", Default: pdf.Boolean(false), MinVersion: pdf.V17},
		},
		"Pages": {
			{Name: "Type", Required: true, MinVersion: pdf.V10},
			{Name: "Parent", MinVersion: pdf.V10},
			{Name: "Kids", Required: true, MinVersion: pdf.V10},
			{Name: "Count", Required: true, MinVersion: pdf.V10},
		},
		"Page": {
			{Name: "Type", Required: true, MinVersion: pdf.V10},
			{Name: "Parent", Required: true, MinVersion: pdf.V10},
			{Name: "MediaBox", MinVersion: pdf.V10},
			{Name: "Resources", MinVersion: pdf.V10},
			{Name: "Contents", MinVersion: pdf.V10},
			{Name: "Rotate", Default: pdf.Integer(0), MinVersion: pdf.V10},
			{Name: "Group", MinVersion: pdf.V14},
			{Name: "Annots", MinVersion: pdf.V10},
			{Name: "Tabs", MinVersion: pdf.V15},
			{Name: "UserUnit", Default: pdf.Real(1.0), MinVersion: pdf.V16},
			{Name: "PresSteps", MinVersion: pdf.V15},
		},
		"Font": {
			{Name: "Type", Required: true, MinVersion: pdf.V10},
			{Name: "Subtype", Required: true, MinVersion: pdf.V10},
			{Name: "BaseFont", MinVersion: pdf.V10},
			{Name: "Encoding", MinVersion: pdf.V10},
			{Name: "ToUnicode", MinVersion: pdf.V12},
		},
		"Annot": {
			{Name: "Type", Required: true, MinVersion: pdf.V10},
			{Name: "Subtype", Required: true, MinVersion: pdf.V10},
			{Name: "Rect", Required: true, MinVersion: pdf.V10},
			{Name: "F", Default: pdf.Integer(0), MinVersion: pdf.V11},
			{Name: "CA", Default: pdf.Real(1.0), MinVersion: pdf.V14},
			{Name: "OC", MinVersion: pdf.V15},
			{Name: "BM", Default: pdf.Name("Normal"), MinVersion: pdf.V20},
		},
		"ObjStm": {
			{Name: "Type", Required: true, MinVersion: pdf.V15},
			{Name: "N", Required: true, MinVersion: pdf.V15},
			{Name: "First", Required: true, MinVersion: pdf.V15},
			{Name: "Extends", MinVersion: pdf.V15},
		},
		"XRef": {
			{Name: "Type", Required: true, MinVersion: pdf.V15},
			{Name: "Size", Required: true, MinVersion: pdf.V15},
			{Name: "Index", MinVersion: pdf.V15},
			{Name: "Prev", MinVersion: pdf.V15},
			{Name: "W", Required: true, MinVersion: pdf.V15},
		},
	}
}
