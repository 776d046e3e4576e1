package pdf

import "sort"

// IDSet is a set of object identities.
type IDSet map[ObjectID]struct{}

// NewIDSet returns a new IDSet, populated with ids.
func NewIDSet(ids ...ObjectID) IDSet {
	m := make(IDSet)
	for _, id := range ids {
		m[id] = struct{}{}
	}

	return m
}

// Has returns true iff id is contained in the set.
func (s IDSet) Has(id ObjectID) bool {
	_, ok := s[id]
	return ok
}

// Insert adds id to the set.
func (s IDSet) Insert(id ObjectID) {
	s[id] = struct{}{}
}

// Delete removes id from the set.
func (s IDSet) Delete(id ObjectID) {
	delete(s, id)
}

// List returns a sorted slice of all ids in the set.
func (s IDSet) List() []ObjectID {
	list := make([]ObjectID, 0, len(s))
	for id := range s {
		list = append(list, id)
	}

	sort.Slice(list, func(i, j int) bool { return list[i].Less(list[j]) })

	return list
}

// NameSet is a set of names.
type NameSet map[Name]struct{}

// NewNameSet returns a new NameSet, populated with names.
func NewNameSet(names ...Name) NameSet {
	m := make(NameSet)
	for _, n := range names {
		m[n] = struct{}{}
	}

	return m
}

// Has returns true iff n is contained in the set.
func (s NameSet) Has(n Name) bool {
	_, ok := s[n]
	return ok
}
