package document

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gettalong/hexapdf-sub011/internal/pdf"
)

// buildDoc assembles a minimal document: catalog, page tree, one page and
// one orphan object nothing references.
func buildDoc(t *testing.T) *Document {
	t.Helper()
	doc := Create()

	put := func(num uint32, value pdf.Object) {
		require.NoError(t, doc.Put(&pdf.IndirectObject{ID: pdf.NewID(num, 0), Value: value}))
	}
	put(1, pdf.Dictionary{"Type": pdf.Name("Catalog"), "Pages": pdf.NewReference(2, 0)})
	put(2, pdf.Dictionary{"Type": pdf.Name("Pages"), "Kids": pdf.Array{pdf.NewReference(3, 0)}, "Count": pdf.Integer(1)})
	put(3, pdf.Dictionary{"Type": pdf.Name("Page"), "Parent": pdf.NewReference(2, 0)})
	put(4, pdf.String("orphan"))

	doc.Chain().Current().Trailer["Root"] = pdf.NewReference(1, 0)
	return doc
}

func writeAndReopen(t *testing.T, doc *Document, opts WriteOptions) *Document {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, doc.Write(buf, opts))

	reopened, err := OpenBytes(buf.Bytes())
	require.NoError(t, err)
	return reopened
}

func TestWriteAndReopenFreshDocument(t *testing.T) {
	doc := writeAndReopen(t, buildDoc(t), WriteOptions{})

	require.Equal(t, pdf.V17, doc.Version())
	require.Equal(t, 1, doc.Chain().Len())

	cat, err := doc.Catalog()
	require.NoError(t, err)
	typ, _ := cat.GetName("Type")
	require.Equal(t, pdf.Name("Catalog"), typ)

	page, err := doc.Resolve(pdf.NewID(3, 0))
	require.NoError(t, err)
	require.NotNil(t, page)
	typ, _ = pdf.TypeOf(page.Value)
	require.Equal(t, pdf.Name("Page"), typ)
}

func TestIncrementalUpdate(t *testing.T) {
	base := &bytes.Buffer{}
	require.NoError(t, buildDoc(t).Write(base, WriteOptions{}))

	doc, err := OpenBytes(base.Bytes())
	require.NoError(t, err)

	ref, err := doc.Add(pdf.String("added later"))
	require.NoError(t, err)
	require.Equal(t, 2, doc.Chain().Len())

	reopened := writeAndReopen(t, doc, WriteOptions{})
	require.Equal(t, 2, reopened.Chain().Len())

	obj, err := reopened.Resolve(ref.ObjectID)
	require.NoError(t, err)
	require.NotNil(t, obj)
	require.Equal(t, pdf.String("added later"), obj.Value)

	// the base revision's objects stay resolvable
	cat, err := reopened.Catalog()
	require.NoError(t, err)
	require.NotNil(t, cat)
}

func TestFreeTombstonesAcrossRevisions(t *testing.T) {
	doc, err := OpenBytes(freshBytes(t))
	require.NoError(t, err)

	obj, err := doc.Resolve(pdf.NewID(4, 0))
	require.NoError(t, err)
	require.NotNil(t, obj)

	require.NoError(t, doc.Free(4))
	obj, err = doc.Resolve(pdf.NewID(4, 0))
	require.NoError(t, err)
	require.Nil(t, obj)

	// freeing survives a write cycle
	reopened := writeAndReopen(t, doc, WriteOptions{})
	obj, err = reopened.Resolve(pdf.NewID(4, 0))
	require.NoError(t, err)
	require.Nil(t, obj)
}

func freshBytes(t *testing.T) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, buildDoc(t).Write(buf, WriteOptions{}))
	return buf.Bytes()
}

func TestDereferenceAllFindsOrphans(t *testing.T) {
	doc, err := OpenBytes(freshBytes(t))
	require.NoError(t, err)

	unused, err := doc.DereferenceAll()
	require.NoError(t, err)
	require.Len(t, unused, 1)
	require.Equal(t, pdf.NewID(4, 0), unused[0].ID)

	// idempotent: a second run reports the same set
	again, err := doc.DereferenceAll()
	require.NoError(t, err)
	require.Len(t, again, 1)
	require.Equal(t, pdf.NewID(4, 0), again[0].ID)
}

func TestDereferenceInPlaceSharesHandles(t *testing.T) {
	doc, err := OpenBytes(freshBytes(t))
	require.NoError(t, err)

	cat, err := doc.Catalog()
	require.NoError(t, err)
	deref, err := doc.DereferenceInPlace(cat)
	require.NoError(t, err)
	cat = deref.(pdf.Dictionary)

	pages, ok := cat["Pages"].(*pdf.IndirectObject)
	require.True(t, ok)

	resolved, err := doc.Resolve(pages.ID)
	require.NoError(t, err)
	require.Same(t, pages, resolved)

	// the page's Parent handle is the same instance, cycle and all
	kids, ok := pages.Value.(pdf.Dictionary).GetArray("Kids")
	require.True(t, ok)
	page, ok := kids[0].(*pdf.IndirectObject)
	require.True(t, ok)
	parent, ok := page.Value.(pdf.Dictionary)["Parent"].(*pdf.IndirectObject)
	require.True(t, ok)
	require.Same(t, pages, parent)
}

func TestCompactDropsOrphansAndRenumbers(t *testing.T) {
	doc, err := OpenBytes(freshBytes(t))
	require.NoError(t, err)

	require.NoError(t, doc.Compact())
	require.Equal(t, 1, doc.Chain().Len())

	reopened := writeAndReopen(t, doc, WriteOptions{})
	require.Equal(t, 1, reopened.Chain().Len())

	// three reachable objects, densely numbered
	for num := uint32(1); num <= 3; num++ {
		obj, err := reopened.Resolve(pdf.NewID(num, 0))
		require.NoError(t, err)
		require.NotNil(t, obj, "object %d", num)
	}
	obj, err := reopened.Resolve(pdf.NewID(4, 0))
	require.NoError(t, err)
	require.Nil(t, obj)

	cat, err := reopened.Catalog()
	require.NoError(t, err)
	require.NotNil(t, cat)
}

func TestCompactCollapsesIncrementalChain(t *testing.T) {
	doc, err := OpenBytes(freshBytes(t))
	require.NoError(t, err)

	// supersede the page in a second revision
	require.NoError(t, doc.Put(&pdf.IndirectObject{
		ID:    pdf.NewID(3, 0),
		Value: pdf.Dictionary{"Type": pdf.Name("Page"), "Parent": pdf.NewReference(2, 0), "Rotate": pdf.Integer(90)},
	}))
	require.Equal(t, 2, doc.Chain().Len())

	require.NoError(t, doc.Compact())
	require.Equal(t, 1, doc.Chain().Len())

	reopened := writeAndReopen(t, doc, WriteOptions{})
	page, err := reopened.Resolve(pdf.NewID(3, 0))
	require.NoError(t, err)
	require.NotNil(t, page)
	rot, ok := page.Value.(pdf.Dictionary).Int("Rotate")
	require.True(t, ok)
	require.Equal(t, int64(90), rot)
}

func TestGenerateObjectStreamsRoundTrip(t *testing.T) {
	doc := buildDoc(t)
	for i := 0; i < 5; i++ {
		_, err := doc.Add(pdf.Dictionary{"V": pdf.Integer(i)})
		require.NoError(t, err)
	}

	opts := DefaultObjectStreamOptions()
	opts.GroupSize = 3
	require.NoError(t, doc.GenerateObjectStreams(opts))

	reopened := writeAndReopen(t, doc, WriteOptions{})

	cat, err := reopened.Catalog()
	require.NoError(t, err)
	require.NotNil(t, cat)

	for num := uint32(5); num <= 9; num++ {
		obj, err := reopened.Resolve(pdf.NewID(num, 0))
		require.NoError(t, err)
		require.NotNil(t, obj, "object %d", num)
		v, ok := obj.Value.(pdf.Dictionary).Int("V")
		require.True(t, ok)
		require.Equal(t, int64(num-5), v)
	}

	// the reopened file carries a cross-reference stream
	require.False(t, reopened.Chain().Current().XRefStream.IsDirect())

	min, err := reopened.ComputeMinimumVersion()
	require.NoError(t, err)
	require.False(t, min.Less(pdf.V15))
}

func TestDeleteObjectStreams(t *testing.T) {
	doc := buildDoc(t)
	for i := 0; i < 4; i++ {
		_, err := doc.Add(pdf.Dictionary{"V": pdf.Integer(i)})
		require.NoError(t, err)
	}
	require.NoError(t, doc.GenerateObjectStreams(DefaultObjectStreamOptions()))

	withStreams := writeAndReopen(t, doc, WriteOptions{})
	require.NoError(t, withStreams.DeleteObjectStreams())

	reopened := writeAndReopen(t, withStreams, WriteOptions{})
	for num := uint32(5); num <= 8; num++ {
		obj, err := reopened.Resolve(pdf.NewID(num, 0))
		require.NoError(t, err)
		require.NotNil(t, obj, "object %d", num)
	}
}

func TestPruneFieldDefaults(t *testing.T) {
	doc := buildDoc(t)
	page := pdf.Dictionary{
		"Type":     pdf.Name("Page"),
		"Parent":   pdf.NewReference(2, 0),
		"Rotate":   pdf.Integer(0),
		"UserUnit": pdf.Real(1.0),
		"Tabs":     pdf.Name("S"),
	}
	require.NoError(t, doc.Put(&pdf.IndirectObject{ID: pdf.NewID(3, 0), Value: page}))

	require.NoError(t, doc.PruneFieldDefaults())

	require.NotContains(t, page, pdf.Name("Rotate"))
	require.NotContains(t, page, pdf.Name("UserUnit"))
	require.Contains(t, page, pdf.Name("Tabs"))
	require.Contains(t, page, pdf.Name("Type"))
}

func TestPruneKeepsNonDefaultValues(t *testing.T) {
	doc := buildDoc(t)
	page := pdf.Dictionary{
		"Type":   pdf.Name("Page"),
		"Parent": pdf.NewReference(2, 0),
		"Rotate": pdf.Integer(90),
	}
	require.NoError(t, doc.Put(&pdf.IndirectObject{ID: pdf.NewID(3, 0), Value: page}))

	require.NoError(t, doc.PruneFieldDefaults())
	require.Contains(t, page, pdf.Name("Rotate"))
}

func TestComputeMinimumVersion(t *testing.T) {
	doc := buildDoc(t)
	min, err := doc.ComputeMinimumVersion()
	require.NoError(t, err)
	require.Equal(t, pdf.V10, min)

	require.NoError(t, doc.Put(&pdf.IndirectObject{
		ID: pdf.NewID(3, 0),
		Value: pdf.Dictionary{
			"Type":     pdf.Name("Page"),
			"Parent":   pdf.NewReference(2, 0),
			"UserUnit": pdf.Real(2.0),
		},
	}))

	min, err = doc.ComputeMinimumVersion()
	require.NoError(t, err)
	require.Equal(t, pdf.V16, min)
}

func TestRaiseToMinimumVersionNeverLowers(t *testing.T) {
	doc := buildDoc(t)
	doc.SetVersion(pdf.V12)

	require.NoError(t, doc.Put(&pdf.IndirectObject{
		ID: pdf.NewID(3, 0),
		Value: pdf.Dictionary{
			"Type":     pdf.Name("Page"),
			"Parent":   pdf.NewReference(2, 0),
			"UserUnit": pdf.Real(2.0),
		},
	}))

	v, err := doc.RaiseToMinimumVersion()
	require.NoError(t, err)
	require.Equal(t, pdf.V16, v)

	doc.SetVersion(pdf.V20)
	v, err = doc.RaiseToMinimumVersion()
	require.NoError(t, err)
	require.Equal(t, pdf.V20, v)
}

func TestOptimizePipeline(t *testing.T) {
	doc, err := OpenBytes(freshBytes(t))
	require.NoError(t, err)

	require.NoError(t, doc.Optimize(DefaultOptimizeOptions()))
	require.Equal(t, 1, doc.Chain().Len())

	reopened := writeAndReopen(t, doc, WriteOptions{})
	cat, err := reopened.Catalog()
	require.NoError(t, err)
	require.NotNil(t, cat)

	// the orphan is gone
	unused, err := reopened.DereferenceAll()
	require.NoError(t, err)
	require.Empty(t, unused)

	// object streams imply at least 1.5
	require.False(t, reopened.Version().Less(pdf.V15))
}

func TestGetAndTrailerMerge(t *testing.T) {
	doc, err := OpenBytes(freshBytes(t))
	require.NoError(t, err)

	v := doc.Get(pdf.NewReference(4, 0))
	require.Equal(t, pdf.String("orphan"), v)

	v = doc.Get(pdf.NewReference(99, 0))
	require.Equal(t, pdf.Null{}, v)

	doc.Chain().Add().Trailer["Marker"] = pdf.Integer(7)
	trailer := doc.Trailer()
	require.Contains(t, trailer, pdf.Name("Root"))
	require.Contains(t, trailer, pdf.Name("Marker"))
}
