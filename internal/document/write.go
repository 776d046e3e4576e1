package document

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/minio/sha256-simd"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/gettalong/hexapdf-sub011/internal/filter"
	"github.com/gettalong/hexapdf-sub011/internal/pdf"
	"github.com/gettalong/hexapdf-sub011/internal/revision"
	"github.com/gettalong/hexapdf-sub011/internal/xref"
)

// WriteOptions controls how the chain is serialized.
type WriteOptions struct {
	// XRefStream forces the cross-reference data to be written as a
	// stream. It is implied whenever the current revision holds
	// in-stream locations.
	XRefStream bool
}

// Save serializes the document to path.
func (d *Document) Save(path string, opts WriteOptions) error {
	buf := &bytes.Buffer{}
	if err := d.Write(buf, opts); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.Wrap(err, "save")
	}
	log.WithFields(log.Fields{"path": path, "bytes": buf.Len()}).Info("document saved")
	return nil
}

// Write serializes the document to w. A chain holding a single in-memory
// revision becomes a complete fresh file; a chain ending in a loaded,
// unmodified revision is copied verbatim; everything else is written as an
// incremental update appended to the original bytes.
func (d *Document) Write(w io.Writer, opts WriteOptions) error {
	buf := &bytes.Buffer{}
	cur := d.chain.Current()

	switch {
	case d.chain.Len() == 1 && !cur.Loaded():
		fmt.Fprintf(buf, "%%PDF-%s\n%%\xc2\xa5\xc2\xb1\xc3\xab\n", d.version)
		if err := d.writeRevision(buf, cur, -1, opts); err != nil {
			return err
		}

	case cur.Loaded():
		if d.store == nil {
			return errors.New("document has no byte store to copy")
		}
		buf.Write(d.store.Bytes())

	default:
		if d.store == nil {
			return errors.New("cannot append to a document without its original bytes; run compaction first")
		}
		prevRev := d.chain.Revision(d.chain.Len() - 2)
		if !prevRev.Loaded() {
			return errors.New("predecessor revision has no file offset; run compaction first")
		}
		buf.Write(d.store.Bytes())
		buf.WriteByte('\n')
		if err := d.writeRevision(buf, cur, prevRev.Offset, opts); err != nil {
			return err
		}
	}

	_, err := w.Write(buf.Bytes())
	return errors.Wrap(err, "write")
}

// writeRevision appends rev's new objects and cross-reference data to buf.
// prevOffset is the predecessor's cross-reference offset, or -1 for the
// first revision of a file.
func (d *Document) writeRevision(buf *bytes.Buffer, rev *revision.Revision, prevOffset int64, opts WriteOptions) error {
	entries := map[uint32]xref.Entry{
		0: {Number: 0, Type: xref.EntryFree, Field2: 0, Field3: 65535},
	}

	// object bodies; members packed into containers get compressed
	// entries instead of a body of their own
	for _, id := range rev.CachedIDs() {
		if id == rev.XRefStream {
			continue
		}
		if loc, ok := rev.Section.Lookup(id); ok && loc.Kind == xref.InStream {
			entries[id.Number] = xref.Entry{
				Number: id.Number,
				Type:   xref.EntryCompressed,
				Field2: int64(loc.Container.Number),
				Field3: int64(loc.Index),
			}
			continue
		}
		obj, _ := rev.Cached(id)
		offset := int64(buf.Len())
		if err := serializeIndirect(buf, obj); err != nil {
			return err
		}
		entries[id.Number] = xref.Entry{
			Number: id.Number,
			Type:   xref.EntryInUse,
			Field2: offset,
			Field3: int64(id.Generation),
		}
	}

	// in-stream bindings whose member objects are no longer cached
	rev.Section.Each(func(id pdf.ObjectID, loc xref.Location) bool {
		if loc.Kind == xref.InStream {
			if _, ok := entries[id.Number]; !ok {
				entries[id.Number] = xref.Entry{
					Number: id.Number,
					Type:   xref.EntryCompressed,
					Field2: int64(loc.Container.Number),
					Field3: int64(loc.Index),
				}
			}
		}
		return true
	})

	for _, n := range rev.Section.FreeNumbers() {
		entries[n] = xref.Entry{
			Number: n,
			Type:   xref.EntryFree,
			Field3: int64(rev.Section.FreeGeneration(n)),
		}
	}
	linkFreeList(entries)

	trailer := d.writtenTrailer(rev, prevOffset)
	d.refreshFileID(trailer, buf.Bytes())

	useStream := opts.XRefStream
	for _, e := range entries {
		if e.Type == xref.EntryCompressed {
			useStream = true
			break
		}
	}

	var startxref int64
	if useStream {
		off, err := writeXRefStreamObject(buf, entries, trailer)
		if err != nil {
			return err
		}
		startxref = off
	} else {
		startxref = int64(buf.Len())
		if err := writeXRefTable(buf, entries, trailer); err != nil {
			return err
		}
	}

	fmt.Fprintf(buf, "startxref\n%d\n%%%%EOF\n", startxref)
	return nil
}

// writtenTrailer builds the trailer to write: the merged view with
// stream-specific and stale keys stripped and the predecessor pointer set.
func (d *Document) writtenTrailer(rev *revision.Revision, prevOffset int64) pdf.Dictionary {
	trailer := pdf.Dictionary{}
	for k, v := range d.Trailer() {
		switch k {
		case "Prev", "XRefStm", "Type", "W", "Index", "Filter", "DecodeParms", "Length":
		default:
			trailer[k] = v
		}
	}
	for k, v := range rev.Trailer {
		switch k {
		case "Prev", "XRefStm", "Type", "W", "Index", "Filter", "DecodeParms", "Length":
		default:
			trailer[k] = v
		}
	}
	if prevOffset >= 0 {
		trailer["Prev"] = pdf.Integer(prevOffset)
	}
	return trailer
}

// refreshFileID replaces the second half of the file identifier with a
// digest of the bytes written so far; the first half stays stable for the
// document's lifetime.
func (d *Document) refreshFileID(trailer pdf.Dictionary, written []byte) {
	ids, ok := trailer.GetArray("ID")
	if !ok || len(ids) != 2 {
		return
	}
	sum := sha256.Sum256(written)
	trailer["ID"] = pdf.Array{ids[0], pdf.String(sum[:16])}
}

// linkFreeList threads the free entries into the linked list the format
// requires: each free entry points at the next freed number, the last one
// back to object 0.
func linkFreeList(entries map[uint32]xref.Entry) {
	var frees []uint32
	for n, e := range entries {
		if e.Type == xref.EntryFree {
			frees = append(frees, n)
		}
	}
	sort.Slice(frees, func(i, j int) bool { return frees[i] < frees[j] })
	for i, n := range frees {
		e := entries[n]
		if i+1 < len(frees) {
			e.Field2 = int64(frees[i+1])
		} else {
			e.Field2 = 0
		}
		entries[n] = e
	}
}

func sortedNumbers(entries map[uint32]xref.Entry) []uint32 {
	nums := make([]uint32, 0, len(entries))
	for n := range entries {
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	return nums
}

// groupConsecutive splits sorted object numbers into runs of consecutive
// numbers, the subsection unit of both cross-reference encodings.
func groupConsecutive(nums []uint32) [][]uint32 {
	var groups [][]uint32
	start := 0
	for i := 1; i <= len(nums); i++ {
		if i == len(nums) || nums[i] != nums[i-1]+1 {
			groups = append(groups, nums[start:i])
			start = i
		}
	}
	return groups
}

func writeXRefTable(buf *bytes.Buffer, entries map[uint32]xref.Entry, trailer pdf.Dictionary) error {
	nums := sortedNumbers(entries)
	trailer["Size"] = pdf.Integer(nums[len(nums)-1] + 1)

	buf.WriteString("xref\n")
	for _, group := range groupConsecutive(nums) {
		fmt.Fprintf(buf, "%d %d\n", group[0], len(group))
		for _, n := range group {
			e := entries[n]
			switch e.Type {
			case xref.EntryInUse:
				fmt.Fprintf(buf, "%010d %05d n\r\n", e.Field2, e.Field3)
			case xref.EntryFree:
				fmt.Fprintf(buf, "%010d %05d f\r\n", e.Field2, e.Field3)
			default:
				return errors.Errorf("compressed entry for object %d cannot appear in a classic table", n)
			}
		}
	}

	buf.WriteString("trailer\n")
	if err := serializeDict(buf, trailer); err != nil {
		return err
	}
	buf.WriteByte('\n')
	return nil
}

// writeXRefStreamObject appends the companion cross-reference stream
// object and returns its offset. The stream object indexes itself.
func writeXRefStreamObject(buf *bytes.Buffer, entries map[uint32]xref.Entry, trailer pdf.Dictionary) (int64, error) {
	nums := sortedNumbers(entries)
	selfNum := nums[len(nums)-1] + 1
	offset := int64(buf.Len())
	entries[selfNum] = xref.Entry{
		Number: selfNum,
		Type:   xref.EntryInUse,
		Field2: offset,
	}

	nums = sortedNumbers(entries)
	widths := [3]int{1, 1, 1}
	for _, e := range entries {
		if n := byteLen(e.Field2); n > widths[1] {
			widths[1] = n
		}
		if n := byteLen(e.Field3); n > widths[2] {
			widths[2] = n
		}
	}

	rows := &bytes.Buffer{}
	index := pdf.Array{}
	for _, group := range groupConsecutive(nums) {
		index = append(index, pdf.Integer(group[0]), pdf.Integer(len(group)))
		for _, n := range group {
			e := entries[n]
			writeBigEndian(rows, int64(e.Type), widths[0])
			writeBigEndian(rows, e.Field2, widths[1])
			writeBigEndian(rows, e.Field3, widths[2])
		}
	}

	data, err := filter.Encode(rows.Bytes())
	if err != nil {
		return 0, err
	}

	dict := pdf.Dictionary{
		"Type":   pdf.Name("XRef"),
		"Size":   pdf.Integer(selfNum + 1),
		"W":      pdf.Array{pdf.Integer(widths[0]), pdf.Integer(widths[1]), pdf.Integer(widths[2])},
		"Index":  index,
		"Filter": filter.FlateDecode,
	}
	for k, v := range trailer {
		dict[k] = v
	}
	dict["Size"] = pdf.Integer(selfNum + 1)

	obj := &pdf.IndirectObject{
		ID:    pdf.NewID(selfNum, 0),
		Value: pdf.Stream{Dictionary: dict, Raw: data},
	}
	if err := serializeIndirect(buf, obj); err != nil {
		return 0, err
	}
	return offset, nil
}

func byteLen(v int64) int {
	n := 1
	for v > 0xff {
		v >>= 8
		n++
	}
	return n
}

func writeBigEndian(buf *bytes.Buffer, v int64, width int) {
	for i := width - 1; i >= 0; i-- {
		buf.WriteByte(byte(v >> (8 * uint(i))))
	}
}
