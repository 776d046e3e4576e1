package pdf

import (
	"fmt"
)

// Object is any value that can appear in a PDF file body.
//
// The concrete types are Boolean, Integer, Real, String, Name, Array,
// Dictionary, Stream, Null, Reference and *IndirectObject. A nested
// *IndirectObject is a shared, non-owning handle inserted by the
// dereferencer; it is serialized as a reference, never inline.
type Object interface{}

type Boolean bool

type Integer int64

type Real float64

// String holds the raw bytes of a PDF string; it is not necessarily text.
type String []byte

type Name string

type Array []Object

type Dictionary map[Name]Object

// Null is the explicit null object. A missing dictionary entry and an entry
// holding Null are equivalent when read back.
type Null struct{}

// Stream couples a dictionary with its raw, still-encoded stream bytes.
type Stream struct {
	Dictionary
	Raw []byte
}

// Reference is a lightweight identity-only pointer to an indirect object.
type Reference struct {
	ObjectID
}

// NewReference returns a reference to the object with the given number and
// generation.
func NewReference(number, generation uint32) Reference {
	return Reference{ObjectID{Number: number, Generation: generation}}
}

// IndirectObject is an object addressable by identity. Value holds the
// parsed object; for objects with stream data, Value is a Stream.
//
// The resolver owns materialized IndirectObjects; everything else keeps
// either the identity or the pointer as a non-owning handle.
type IndirectObject struct {
	ID    ObjectID
	Value Object
}

func (io *IndirectObject) String() string {
	return fmt.Sprintf("obj(%v)", io.ID)
}

// Int returns the entry for key as an int64.
func (d Dictionary) Int(key Name) (int64, bool) {
	switch v := d[key].(type) {
	case Integer:
		return int64(v), true
	case Real:
		return int64(v), true
	}
	return 0, false
}

// GetName returns the entry for key as a Name.
func (d Dictionary) GetName(key Name) (Name, bool) {
	n, ok := d[key].(Name)
	return n, ok
}

// Dict returns the entry for key as a Dictionary. Streams answer with their
// stream dictionary.
func (d Dictionary) Dict(key Name) (Dictionary, bool) {
	switch v := d[key].(type) {
	case Dictionary:
		return v, true
	case Stream:
		return v.Dictionary, true
	case *IndirectObject:
		return DictOf(v.Value)
	}
	return nil, false
}

// GetArray returns the entry for key as an Array.
func (d Dictionary) GetArray(key Name) (Array, bool) {
	a, ok := d[key].(Array)
	return a, ok
}

// Ref returns the entry for key as a Reference.
func (d Dictionary) Ref(key Name) (Reference, bool) {
	r, ok := d[key].(Reference)
	return r, ok
}

// DictOf extracts the dictionary of obj if it has one.
func DictOf(obj Object) (Dictionary, bool) {
	switch v := obj.(type) {
	case Dictionary:
		return v, true
	case Stream:
		return v.Dictionary, true
	case *IndirectObject:
		return DictOf(v.Value)
	}
	return nil, false
}

// TypeOf returns the value of the /Type entry of obj's dictionary, if any.
func TypeOf(obj Object) (Name, bool) {
	d, ok := DictOf(obj)
	if !ok {
		return "", false
	}
	return d.GetName("Type")
}
