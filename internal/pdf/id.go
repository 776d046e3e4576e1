package pdf

import "fmt"

// ObjectID identifies an indirect object within a revision's
// cross-reference section.
type ObjectID struct {
	Number     uint32
	Generation uint32
}

// NewID returns the identity for the given object and generation number.
func NewID(number, generation uint32) ObjectID {
	return ObjectID{Number: number, Generation: generation}
}

func (id ObjectID) String() string {
	return fmt.Sprintf("%d,%d", id.Number, id.Generation)
}

// IsDirect reports whether id is the reserved sentinel for a wrapped direct
// value. Object number 0 never names a real indirect object.
func (id ObjectID) IsDirect() bool {
	return id.Number == 0
}

// Less orders identities by number, then generation.
func (id ObjectID) Less(other ObjectID) bool {
	if id.Number != other.Number {
		return id.Number < other.Number
	}
	return id.Generation < other.Generation
}
