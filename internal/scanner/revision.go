package scanner

import (
	"github.com/pkg/errors"

	"github.com/gettalong/hexapdf-sub011/internal/filter"
	"github.com/gettalong/hexapdf-sub011/internal/pdf"
	"github.com/gettalong/hexapdf-sub011/internal/revision"
	"github.com/gettalong/hexapdf-sub011/internal/xref"
)

// LoadRevision materializes the revision whose cross-reference data starts
// at offset. Both encodings are handled: the classic xref table followed by
// a trailer dictionary, and the cross-reference stream introduced with
// PDF 1.5.
func (s *Scanner) LoadRevision(offset int64) (*revision.Revision, error) {
	if offset < 0 || offset >= int64(len(s.data)) {
		return nil, errors.Errorf("cross-reference offset %d outside file of %d bytes", offset, len(s.data))
	}
	s.pos = int(offset)

	if s.hasKeyword("xref") {
		return s.loadXRefTable(offset)
	}
	return s.loadXRefStream(offset)
}

// loadXRefTable parses a classic cross-reference table with its trailer.
// The scanner is positioned directly after the xref keyword.
func (s *Scanner) loadXRefTable(offset int64) (*revision.Revision, error) {
	var entries []xref.Entry

	for {
		s.skipWhite()
		c, ok := s.peek()
		if !ok {
			return nil, errors.New("unterminated cross-reference table")
		}
		if c < '0' || c > '9' {
			break
		}

		start, err := s.readUint()
		if err != nil {
			return nil, err
		}
		count, err := s.readUint()
		if err != nil {
			return nil, err
		}

		for i := uint64(0); i < count; i++ {
			f1, err := s.readUint()
			if err != nil {
				return nil, errors.Wrapf(err, "entry %d of subsection at %d", i, start)
			}
			f2, err := s.readUint()
			if err != nil {
				return nil, errors.Wrapf(err, "entry %d of subsection at %d", i, start)
			}
			typ := s.readToken()

			e := xref.Entry{Number: uint32(start + i), Field2: int64(f1), Field3: int64(f2)}
			switch string(typ) {
			case "n":
				e.Type = xref.EntryInUse
			case "f":
				e.Type = xref.EntryFree
			default:
				return nil, errors.Errorf("invalid entry type %q for object %d", typ, e.Number)
			}
			entries = append(entries, e)
		}
	}

	if err := s.expectKeyword("trailer"); err != nil {
		return nil, err
	}
	trailerObj, err := s.ReadObject()
	if err != nil {
		return nil, errors.Wrap(err, "trailer")
	}
	trailer, ok := trailerObj.(pdf.Dictionary)
	if !ok {
		return nil, errors.Errorf("trailer is %T, not a dictionary", trailerObj)
	}

	return revision.NewLoaded(xref.FromEntries(entries), trailer, offset), nil
}

// loadXRefStream parses a cross-reference stream object. Its dictionary
// doubles as the revision's trailer.
func (s *Scanner) loadXRefStream(offset int64) (*revision.Revision, error) {
	obj, err := s.ParseObjectAt(offset)
	if err != nil {
		return nil, err
	}
	stream, ok := obj.Value.(pdf.Stream)
	if !ok {
		return nil, errors.Errorf("object %v at offset %d is not a stream", obj.ID, offset)
	}
	if typ, _ := stream.GetName("Type"); typ != "XRef" {
		return nil, errors.Errorf("object %v at offset %d is not a cross-reference stream", obj.ID, offset)
	}

	data, err := filter.Decode(stream.Raw, stream.Dictionary["Filter"], stream.Dictionary["DecodeParms"])
	if err != nil {
		return nil, errors.Wrapf(err, "cross-reference stream %v", obj.ID)
	}

	entries, err := decodeXRefStreamEntries(stream.Dictionary, data)
	if err != nil {
		return nil, errors.Wrapf(err, "cross-reference stream %v", obj.ID)
	}

	rev := revision.NewLoaded(xref.FromEntries(entries), stream.Dictionary, offset)
	rev.XRefStream = obj.ID
	rev.StoreCached(obj)
	return rev, nil
}

// decodeXRefStreamEntries unpacks the binary entry rows. /W gives the three
// field widths; /Index lists (first, count) object ranges and defaults to
// [0 Size]. A zero-width first field defaults the entry type to in-use.
func decodeXRefStreamEntries(dict pdf.Dictionary, data []byte) ([]xref.Entry, error) {
	wArr, ok := dict.GetArray("W")
	if !ok || len(wArr) != 3 {
		return nil, errors.New("missing or malformed /W array")
	}
	var w [3]int
	stride := 0
	for i, o := range wArr {
		n, ok := o.(pdf.Integer)
		if !ok || n < 0 {
			return nil, errors.Errorf("invalid /W element %v", o)
		}
		w[i] = int(n)
		stride += int(n)
	}
	if stride == 0 {
		return nil, errors.New("zero-width /W array")
	}

	var ranges []int64
	if idxArr, ok := dict.GetArray("Index"); ok {
		for _, o := range idxArr {
			n, ok := o.(pdf.Integer)
			if !ok {
				return nil, errors.Errorf("invalid /Index element %v", o)
			}
			ranges = append(ranges, int64(n))
		}
	} else {
		size, ok := dict.Int("Size")
		if !ok {
			return nil, errors.New("missing /Size")
		}
		ranges = []int64{0, size}
	}
	if len(ranges)%2 != 0 {
		return nil, errors.New("odd-length /Index array")
	}

	var entries []xref.Entry
	pos := 0
	for i := 0; i < len(ranges); i += 2 {
		first, count := ranges[i], ranges[i+1]
		for j := int64(0); j < count; j++ {
			if pos+stride > len(data) {
				return nil, errors.Errorf("entry data truncated at object %d", first+j)
			}
			row := data[pos : pos+stride]
			pos += stride

			typ := int64(1)
			p := 0
			if w[0] > 0 {
				typ = bigEndian(row[:w[0]])
				p = w[0]
			}
			f2 := bigEndian(row[p : p+w[1]])
			f3 := bigEndian(row[p+w[1] : p+w[1]+w[2]])

			e := xref.Entry{Number: uint32(first + j), Field2: f2, Field3: f3}
			switch typ {
			case 0:
				e.Type = xref.EntryFree
			case 1:
				e.Type = xref.EntryInUse
			case 2:
				e.Type = xref.EntryCompressed
			default:
				// unknown entry types count as free
				e.Type = xref.EntryFree
			}
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func bigEndian(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}
