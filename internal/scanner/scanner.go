// Package scanner turns raw file bytes into primitive values: objects,
// trailers and cross-reference data. The revision chain and the resolver
// consume it as a black box.
package scanner

import (
	"bytes"
	"strconv"

	"github.com/pkg/errors"

	"github.com/gettalong/hexapdf-sub011/internal/pdf"
)

// Scanner reads PDF syntax from an in-memory byte slice.
type Scanner struct {
	data []byte
	pos  int
}

// New returns a scanner over data.
func New(data []byte) *Scanner {
	return &Scanner{data: data}
}

// Size returns the length of the underlying byte slice.
func (s *Scanner) Size() int64 {
	return int64(len(s.data))
}

func isWhite(c byte) bool {
	switch c {
	case 0, 9, 10, 12, 13, 32:
		return true
	}
	return false
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(c byte) bool {
	return !isWhite(c) && !isDelim(c)
}

// skipWhite advances past whitespace and comments.
func (s *Scanner) skipWhite() {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if isWhite(c) {
			s.pos++
			continue
		}
		if c == '%' {
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
			continue
		}
		return
	}
}

func (s *Scanner) peek() (byte, bool) {
	if s.pos >= len(s.data) {
		return 0, false
	}
	return s.data[s.pos], true
}

// readToken returns the next run of regular characters.
func (s *Scanner) readToken() []byte {
	s.skipWhite()
	start := s.pos
	for s.pos < len(s.data) && isRegular(s.data[s.pos]) {
		s.pos++
	}
	return s.data[start:s.pos]
}

// expectKeyword consumes the given keyword or fails.
func (s *Scanner) expectKeyword(kw string) error {
	at := s.pos
	tok := s.readToken()
	if string(tok) != kw {
		return errors.Errorf("expected %q at offset %d, got %q", kw, at, tok)
	}
	return nil
}

// hasKeyword reports whether kw is next, consuming it if so.
func (s *Scanner) hasKeyword(kw string) bool {
	save := s.pos
	tok := s.readToken()
	if string(tok) == kw {
		return true
	}
	s.pos = save
	return false
}

func (s *Scanner) readUint() (uint64, error) {
	at := s.pos
	tok := s.readToken()
	v, err := strconv.ParseUint(string(tok), 10, 64)
	if err != nil {
		return 0, errors.Errorf("expected unsigned integer at offset %d, got %q", at, tok)
	}
	return v, nil
}

// ReadObject parses the next object. Stream data is not consumed here;
// only ParseObjectAt attaches stream bytes, since streams occur solely as
// the body of indirect objects.
func (s *Scanner) ReadObject() (pdf.Object, error) {
	s.skipWhite()
	c, ok := s.peek()
	if !ok {
		return nil, errors.New("unexpected end of data")
	}

	switch {
	case c == '/':
		return s.readName()
	case c == '(':
		return s.readLiteralString()
	case c == '[':
		return s.readArray()
	case c == '<':
		if s.pos+1 < len(s.data) && s.data[s.pos+1] == '<' {
			return s.readDictionary()
		}
		return s.readHexString()
	case c >= '0' && c <= '9':
		return s.readNumberOrReference()
	case c == '+' || c == '-' || c == '.':
		return s.readNumber()
	case isRegular(c):
		return s.readKeywordObject()
	}
	return nil, errors.Errorf("unexpected byte %q at offset %d", c, s.pos)
}

func (s *Scanner) readKeywordObject() (pdf.Object, error) {
	at := s.pos
	switch tok := s.readToken(); string(tok) {
	case "true":
		return pdf.Boolean(true), nil
	case "false":
		return pdf.Boolean(false), nil
	case "null":
		return pdf.Null{}, nil
	default:
		return nil, errors.Errorf("unknown keyword %q at offset %d", tok, at)
	}
}

// readNumberOrReference reads an integer and, when it is followed by a
// generation number and the keyword R, turns the triple into a Reference.
func (s *Scanner) readNumberOrReference() (pdf.Object, error) {
	num, err := s.readNumber()
	if err != nil {
		return nil, err
	}
	n, ok := num.(pdf.Integer)
	if !ok || n < 0 {
		return num, nil
	}

	save := s.pos
	s.skipWhite()
	if c, ok := s.peek(); !ok || c < '0' || c > '9' {
		s.pos = save
		return num, nil
	}
	genTok := s.readToken()
	gen, err := strconv.ParseUint(string(genTok), 10, 32)
	if err != nil {
		s.pos = save
		return num, nil
	}
	if !s.hasKeyword("R") {
		s.pos = save
		return num, nil
	}
	return pdf.NewReference(uint32(n), uint32(gen)), nil
}

func (s *Scanner) readNumber() (pdf.Object, error) {
	at := s.pos
	tok := s.readToken()
	if len(tok) == 0 {
		return nil, errors.Errorf("expected number at offset %d", at)
	}
	if !bytes.ContainsAny(tok, ".eE") {
		if v, err := strconv.ParseInt(string(tok), 10, 64); err == nil {
			return pdf.Integer(v), nil
		}
	}
	v, err := strconv.ParseFloat(string(tok), 64)
	if err != nil {
		return nil, errors.Errorf("invalid number %q at offset %d", tok, at)
	}
	return pdf.Real(v), nil
}

func (s *Scanner) readName() (pdf.Object, error) {
	s.pos++ // '/'
	name := make([]byte, 0, 16)
	for s.pos < len(s.data) && isRegular(s.data[s.pos]) {
		c := s.data[s.pos]
		if c == '#' && s.pos+2 < len(s.data) {
			v, err := strconv.ParseUint(string(s.data[s.pos+1:s.pos+3]), 16, 8)
			if err == nil {
				name = append(name, byte(v))
				s.pos += 3
				continue
			}
		}
		name = append(name, c)
		s.pos++
	}
	return pdf.Name(name), nil
}

func (s *Scanner) readLiteralString() (pdf.Object, error) {
	s.pos++ // '('
	out := make([]byte, 0, 32)
	depth := 1
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return pdf.String(out), nil
			}
			out = append(out, c)
		case '\\':
			if s.pos >= len(s.data) {
				break
			}
			e := s.data[s.pos]
			s.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '(', ')', '\\':
				out = append(out, e)
			case '\r':
				if s.pos < len(s.data) && s.data[s.pos] == '\n' {
					s.pos++
				}
			case '\n':
				// line continuation, emits nothing
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && s.pos < len(s.data); i++ {
						d := s.data[s.pos]
						if d < '0' || d > '7' {
							break
						}
						v = v*8 + int(d-'0')
						s.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		default:
			out = append(out, c)
		}
	}
	return nil, errors.New("unterminated literal string")
}

func (s *Scanner) readHexString() (pdf.Object, error) {
	s.pos++ // '<'
	end := bytes.IndexByte(s.data[s.pos:], '>')
	if end < 0 {
		return nil, errors.New("unterminated hex string")
	}
	raw := s.data[s.pos : s.pos+end]
	s.pos += end + 1

	out := make([]byte, 0, len(raw)/2)
	var hi byte
	haveHi := false
	for _, c := range raw {
		var v byte
		switch {
		case c >= '0' && c <= '9':
			v = c - '0'
		case c >= 'a' && c <= 'f':
			v = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			v = c - 'A' + 10
		case isWhite(c):
			continue
		default:
			return nil, errors.Errorf("invalid hex digit %q", c)
		}
		if haveHi {
			out = append(out, hi<<4|v)
			haveHi = false
		} else {
			hi = v
			haveHi = true
		}
	}
	if haveHi {
		out = append(out, hi<<4)
	}
	return pdf.String(out), nil
}

func (s *Scanner) readArray() (pdf.Object, error) {
	s.pos++ // '['
	arr := pdf.Array{}
	for {
		s.skipWhite()
		c, ok := s.peek()
		if !ok {
			return nil, errors.New("unterminated array")
		}
		if c == ']' {
			s.pos++
			return arr, nil
		}
		obj, err := s.ReadObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

func (s *Scanner) readDictionary() (pdf.Object, error) {
	s.pos += 2 // '<<'
	dict := pdf.Dictionary{}
	for {
		s.skipWhite()
		c, ok := s.peek()
		if !ok {
			return nil, errors.New("unterminated dictionary")
		}
		if c == '>' {
			if s.pos+1 < len(s.data) && s.data[s.pos+1] == '>' {
				s.pos += 2
				return dict, nil
			}
			return nil, errors.Errorf("stray '>' at offset %d", s.pos)
		}
		if c != '/' {
			return nil, errors.Errorf("expected name key at offset %d, got %q", s.pos, c)
		}
		keyObj, err := s.readName()
		if err != nil {
			return nil, err
		}
		val, err := s.ReadObject()
		if err != nil {
			return nil, err
		}
		dict[keyObj.(pdf.Name)] = val
	}
}
