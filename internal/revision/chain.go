package revision

import (
	"log"

	"github.com/pkg/errors"

	"github.com/gettalong/hexapdf-sub011/internal/pdf"
)

// Loader materializes the revision stored at a byte offset. The scanner
// implements it; the chain stays ignorant of file syntax.
type Loader interface {
	LoadRevision(offset int64) (*Revision, error)
}

// Chain is the ordered collection of a document's revisions, oldest first.
// It always contains at least one revision; exactly one revision, the
// newest, is current and mutable.
type Chain struct {
	revs []*Revision // oldest first
}

// NewChain returns a chain holding a single fresh revision.
func NewChain(trailer pdf.Dictionary) *Chain {
	return &Chain{revs: []*Revision{New(trailer)}}
}

// NewChainWith returns a chain holding exactly rev.
func NewChainWith(rev *Revision) *Chain {
	return &Chain{revs: []*Revision{rev}}
}

// Load discovers the chain by following predecessor pointers from the
// entry point. Revisions are prepended as they are discovered, so the
// result is ordered oldest first.
//
// Chain discovery degrades instead of failing: a predecessor pointer that
// leads back to an already-seen offset, or a predecessor that cannot be
// parsed, terminates discovery and the chain built so far is accepted.
// Only a completely unreadable entry point is an error.
func Load(entry int64, ld Loader) (*Chain, error) {
	var revs []*Revision
	seen := make(map[int64]struct{})
	offset := entry

	for {
		if _, ok := seen[offset]; ok {
			log.Printf("revision chain loops back to offset %d, truncating", offset)
			break
		}
		seen[offset] = struct{}{}

		rev, err := ld.LoadRevision(offset)
		if err != nil {
			if len(revs) == 0 {
				return nil, errors.Wrapf(err, "entry point at offset %d", entry)
			}
			log.Printf("predecessor at offset %d unreadable, truncating chain: %v", offset, err)
			break
		}
		revs = append([]*Revision{rev}, revs...)

		prev, ok := rev.Trailer.Int("Prev")
		if !ok {
			break
		}
		offset = prev
	}

	return &Chain{revs: revs}, nil
}

// Current returns the newest revision.
func (c *Chain) Current() *Revision {
	return c.revs[len(c.revs)-1]
}

// Len returns the number of revisions.
func (c *Chain) Len() int {
	return len(c.revs)
}

// Revision returns the i-th revision, oldest first.
func (c *Chain) Revision(i int) *Revision {
	return c.revs[i]
}

// Add appends a fresh empty revision on top of the current one and makes
// it current. The new trailer starts out with only the inherited
// object-count bound; the predecessor pointer is materialized at write
// time.
func (c *Chain) Add() *Revision {
	size := c.Current().Size()
	rev := New(pdf.Dictionary{"Size": pdf.Integer(size)})
	c.revs = append(c.revs, rev)
	return rev
}

// Delete removes rev from the chain. Deleting the last remaining revision
// is a caller contract violation.
func (c *Chain) Delete(rev *Revision) error {
	for i, r := range c.revs {
		if r == rev {
			return c.DeleteAt(i)
		}
	}
	return errors.New("revision is not part of this chain")
}

// DeleteAt removes the i-th revision, oldest first.
func (c *Chain) DeleteAt(i int) error {
	if i < 0 || i >= len(c.revs) {
		return errors.Errorf("revision index %d out of range [0,%d)", i, len(c.revs))
	}
	if len(c.revs) == 1 {
		return errors.New("cannot delete the only revision in the chain")
	}
	c.revs = append(c.revs[:i], c.revs[i+1:]...)
	return nil
}

// Each calls fn for every revision, oldest to newest, until fn returns
// false. The iteration is restartable; each call walks the chain afresh.
func (c *Chain) Each(fn func(*Revision) bool) {
	for _, rev := range c.revs {
		if !fn(rev) {
			return
		}
	}
}

// Revisions returns the revisions oldest first. The slice is a copy; the
// revisions are shared.
func (c *Chain) Revisions() []*Revision {
	out := make([]*Revision, len(c.revs))
	copy(out, c.revs)
	return out
}

// MaxNumber returns the highest object number known anywhere in the chain.
func (c *Chain) MaxNumber() uint32 {
	var max uint32
	for _, rev := range c.revs {
		if n := rev.MaxNumber(); n > max {
			max = n
		}
	}
	return max
}
