package pdf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDictionaryAccessors(t *testing.T) {
	d := Dictionary{
		"N":     Integer(12),
		"Scale": Real(2.5),
		"Type":  Name("Page"),
		"Kids":  Array{NewReference(3, 0)},
		"Info":  Dictionary{"Title": String("x")},
		"Root":  NewReference(1, 0),
	}

	n, ok := d.Int("N")
	require.True(t, ok)
	require.Equal(t, int64(12), n)

	sc, ok := d.Int("Scale")
	require.True(t, ok)
	require.Equal(t, int64(2), sc)

	_, ok = d.Int("Type")
	require.False(t, ok)

	typ, ok := d.GetName("Type")
	require.True(t, ok)
	require.Equal(t, Name("Page"), typ)

	kids, ok := d.GetArray("Kids")
	require.True(t, ok)
	require.Len(t, kids, 1)

	info, ok := d.Dict("Info")
	require.True(t, ok)
	require.Contains(t, info, Name("Title"))

	root, ok := d.Ref("Root")
	require.True(t, ok)
	require.Equal(t, uint32(1), root.Number)
}

func TestTypeOf(t *testing.T) {
	typ, ok := TypeOf(Dictionary{"Type": Name("Catalog")})
	require.True(t, ok)
	require.Equal(t, Name("Catalog"), typ)

	stream := Stream{Dictionary: Dictionary{"Type": Name("ObjStm")}}
	typ, ok = TypeOf(stream)
	require.True(t, ok)
	require.Equal(t, Name("ObjStm"), typ)

	_, ok = TypeOf(Integer(1))
	require.False(t, ok)

	obj := &IndirectObject{ID: NewID(5, 0), Value: Dictionary{"Type": Name("Page")}}
	typ, ok = TypeOf(obj)
	require.True(t, ok)
	require.Equal(t, Name("Page"), typ)
}

func TestIDSet(t *testing.T) {
	s := NewIDSet(NewID(3, 0), NewID(1, 2))
	require.True(t, s.Has(NewID(3, 0)))
	require.False(t, s.Has(NewID(3, 1)))

	s.Insert(NewID(2, 0))
	s.Delete(NewID(3, 0))

	require.Equal(t, []ObjectID{NewID(1, 2), NewID(2, 0)}, s.List())
}
