// Package xref implements the per-revision cross-reference section that
// maps object identities to storage locations.
//
// On disk, free entries are encoded as a linked list: each free entry's
// first field points at the next free object number. That encoding is
// resolved while a Section is constructed; callers only ever see the
// simplified Free / InFile / InStream view.
package xref

import (
	"fmt"

	"github.com/gettalong/hexapdf-sub011/internal/pdf"
)

// Kind describes where an object's bytes live.
type Kind uint8

const (
	// Free marks an object number as unused and eligible for reuse. A free
	// entry shadows any binding in an older section.
	Free Kind = iota

	// InFile means the object's serialized bytes begin at Location.Offset.
	InFile

	// InStream means the object is packed inside a compressed container
	// object, at position Location.Index of the container's member table.
	InStream
)

func (k Kind) String() string {
	switch k {
	case Free:
		return "free"
	case InFile:
		return "in-file"
	case InStream:
		return "in-stream"
	}
	return "invalid"
}

// Location is the resolved storage location of an object.
type Location struct {
	Kind      Kind
	Offset    int64        // InFile: byte offset of the object in the file
	Container pdf.ObjectID // InStream: identity of the container object
	Index     int          // InStream: position within the container
}

func (l Location) String() string {
	switch l.Kind {
	case InFile:
		return fmt.Sprintf("in-file@%d", l.Offset)
	case InStream:
		return fmt.Sprintf("in-stream(%v,%d)", l.Container, l.Index)
	}
	return l.Kind.String()
}

// EntryType is the raw type tag of a cross-reference entry before the free
// list is resolved.
type EntryType uint8

const (
	EntryFree EntryType = iota
	EntryInUse
	EntryCompressed
)

// Entry is one raw cross-reference line as read from the file. The meaning
// of Field2/Field3 depends on Type:
//
//	EntryFree:       Field2 = next free object number, Field3 = generation
//	EntryInUse:      Field2 = byte offset, Field3 = generation
//	EntryCompressed: Field2 = container object number, Field3 = member index
type Entry struct {
	Number uint32
	Type   EntryType
	Field2 int64
	Field3 int64
}
