package scanner

import (
	"bytes"
	"log"

	"github.com/pkg/errors"

	"github.com/gettalong/hexapdf-sub011/internal/pdf"
)

// ParseObjectAt parses the indirect object whose bytes begin at offset.
// For stream objects the raw, still-encoded stream bytes are attached.
func (s *Scanner) ParseObjectAt(offset int64) (*pdf.IndirectObject, error) {
	if offset < 0 || offset >= int64(len(s.data)) {
		return nil, errors.Errorf("object offset %d outside file of %d bytes", offset, len(s.data))
	}
	s.pos = int(offset)

	num, err := s.readUint()
	if err != nil {
		return nil, errors.Wrapf(err, "object at offset %d", offset)
	}
	gen, err := s.readUint()
	if err != nil {
		return nil, errors.Wrapf(err, "object %d at offset %d", num, offset)
	}
	if err := s.expectKeyword("obj"); err != nil {
		return nil, err
	}

	value, err := s.ReadObject()
	if err != nil {
		return nil, errors.Wrapf(err, "object %d %d", num, gen)
	}

	if s.hasKeyword("stream") {
		dict, ok := value.(pdf.Dictionary)
		if !ok {
			return nil, errors.Errorf("object %d %d: stream keyword after non-dictionary", num, gen)
		}
		raw, err := s.readStreamData(dict)
		if err != nil {
			return nil, errors.Wrapf(err, "object %d %d", num, gen)
		}
		value = pdf.Stream{Dictionary: dict, Raw: raw}
	}

	// endobj is tolerated but not required; plenty of writers get it wrong
	s.hasKeyword("endobj")

	return &pdf.IndirectObject{
		ID:    pdf.NewID(uint32(num), uint32(gen)),
		Value: value,
	}, nil
}

// readStreamData consumes the bytes between the stream keyword and
// endstream. When /Length is a usable integer it wins; otherwise the data
// runs up to the next endstream keyword, and a later /Length fixup by the
// resolver clamps it.
func (s *Scanner) readStreamData(dict pdf.Dictionary) ([]byte, error) {
	// exactly one EOL after the stream keyword
	if s.pos < len(s.data) && s.data[s.pos] == '\r' {
		s.pos++
	}
	if s.pos < len(s.data) && s.data[s.pos] == '\n' {
		s.pos++
	}

	if length, ok := dict.Int("Length"); ok && length >= 0 && s.pos+int(length) <= len(s.data) {
		raw := s.data[s.pos : s.pos+int(length)]
		s.pos += int(length)
		if !s.hasKeyword("endstream") {
			log.Printf("stream /Length %d does not end at endstream, rescanning", length)
			s.pos -= int(length)
		} else {
			return raw, nil
		}
	}

	end := bytes.Index(s.data[s.pos:], []byte("endstream"))
	if end < 0 {
		return nil, errors.New("unterminated stream")
	}
	raw := s.data[s.pos : s.pos+end]
	// drop the EOL preceding endstream, it is not part of the data
	raw = bytes.TrimRight(raw, "\r\n")
	s.pos += end
	s.hasKeyword("endstream")
	return raw, nil
}

// ParseMembers decodes the member table of a container object's already
// decoded payload: n (number, offset) pairs followed by the members
// themselves, offsets relative to first. Members always carry generation 0.
func (s *Scanner) ParseMembers(data []byte, n int, first int) ([]*pdf.IndirectObject, error) {
	head := New(data)
	type pair struct {
		number uint32
		offset int
	}
	pairs := make([]pair, 0, n)
	for i := 0; i < n; i++ {
		num, err := head.readUint()
		if err != nil {
			return nil, errors.Wrapf(err, "member pair %d", i)
		}
		off, err := head.readUint()
		if err != nil {
			return nil, errors.Wrapf(err, "member pair %d", i)
		}
		pairs = append(pairs, pair{number: uint32(num), offset: int(off)})
	}

	members := make([]*pdf.IndirectObject, 0, n)
	for i, p := range pairs {
		if first+p.offset > len(data) {
			return nil, errors.Errorf("member %d offset %d outside container payload", i, p.offset)
		}
		body := New(data)
		body.pos = first + p.offset
		value, err := body.ReadObject()
		if err != nil {
			return nil, errors.Wrapf(err, "member %d (object %d)", i, p.number)
		}
		members = append(members, &pdf.IndirectObject{
			ID:    pdf.NewID(p.number, 0),
			Value: value,
		})
	}
	return members, nil
}

// StartXRef returns the file's entry point: the offset stored after the
// last startxref keyword.
func (s *Scanner) StartXRef() (int64, error) {
	idx := bytes.LastIndex(s.data, []byte("startxref"))
	if idx < 0 {
		return 0, errors.New("startxref not found")
	}
	sub := New(s.data)
	sub.pos = idx + len("startxref")
	off, err := sub.readUint()
	if err != nil {
		return 0, errors.Wrap(err, "startxref")
	}
	return int64(off), nil
}

// HeaderVersion returns the version declared in the file header.
func (s *Scanner) HeaderVersion() (pdf.Version, error) {
	idx := bytes.Index(s.data, []byte("%PDF-"))
	if idx < 0 || idx > 1024 {
		return pdf.Version{}, errors.New("file header not found")
	}
	rest := s.data[idx+len("%PDF-"):]
	end := 0
	for end < len(rest) && end < 8 && !isWhite(rest[end]) {
		end++
	}
	return pdf.ParseVersion(string(rest[:end]))
}
