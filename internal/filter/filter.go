// Package filter implements the stream filter codecs needed to unpack
// container objects and cross-reference streams.
package filter

import (
	"bytes"
	"compress/lzw"
	"encoding/ascii85"
	"encoding/hex"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"

	"github.com/gettalong/hexapdf-sub011/internal/pdf"
)

// The filter names this package can decode.
const (
	FlateDecode     pdf.Name = "FlateDecode"
	LZWDecode       pdf.Name = "LZWDecode"
	ASCIIHexDecode  pdf.Name = "ASCIIHexDecode"
	ASCII85Decode   pdf.Name = "ASCII85Decode"
	RunLengthDecode pdf.Name = "RunLengthDecode"
)

// Decode applies the declared filter chain to data. filters is the /Filter
// entry (a Name, an Array of Names, or absent) and parms the matching
// /DecodeParms entry.
func Decode(data []byte, filters pdf.Object, parms pdf.Object) ([]byte, error) {
	names, parmList, err := normalize(filters, parms)
	if err != nil {
		return nil, err
	}

	for i, name := range names {
		data, err = decodeOne(data, name, parmList[i])
		if err != nil {
			return nil, errors.Wrapf(err, "filter %v", name)
		}
	}
	return data, nil
}

// Encode compresses data with FlateDecode. It is the only encoder the
// rewrite tasks need; generated container objects and cross-reference
// streams are always flate-compressed.
func Encode(data []byte) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := zlib.NewWriter(buf)
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(err, "flate encode")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "flate encode")
	}
	return buf.Bytes(), nil
}

func normalize(filters pdf.Object, parms pdf.Object) ([]pdf.Name, []pdf.Dictionary, error) {
	var names []pdf.Name
	switch f := filters.(type) {
	case nil:
	case pdf.Null:
	case pdf.Name:
		names = []pdf.Name{f}
	case pdf.Array:
		for _, o := range f {
			n, ok := o.(pdf.Name)
			if !ok {
				return nil, nil, errors.Errorf("invalid filter entry %T", o)
			}
			names = append(names, n)
		}
	default:
		return nil, nil, errors.Errorf("invalid /Filter type %T", filters)
	}

	parmList := make([]pdf.Dictionary, len(names))
	switch p := parms.(type) {
	case nil:
	case pdf.Null:
	case pdf.Dictionary:
		if len(parmList) > 0 {
			parmList[0] = p
		}
	case pdf.Array:
		for i, o := range p {
			if i >= len(parmList) {
				break
			}
			if d, ok := o.(pdf.Dictionary); ok {
				parmList[i] = d
			}
		}
	}

	return names, parmList, nil
}

func decodeOne(data []byte, name pdf.Name, parms pdf.Dictionary) ([]byte, error) {
	switch name {
	case FlateDecode:
		r, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		return unpredict(out, parms)

	case LZWDecode:
		// TODO: handle EarlyChange 1 streams; the stdlib reader only
		// implements the late code-size change (EarlyChange 0).
		if early, ok := parms.Int("EarlyChange"); ok && early != 0 {
			return nil, errors.New("LZW early code-size change not supported")
		}
		r := lzw.NewReader(bytes.NewReader(data), lzw.MSB, 8)
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		return unpredict(out, parms)

	case ASCIIHexDecode:
		return decodeASCIIHex(data)

	case ASCII85Decode:
		return decodeASCII85(data)

	case RunLengthDecode:
		return decodeRunLength(data)

	default:
		return nil, errors.Errorf("unsupported filter %v", name)
	}
}

func decodeASCIIHex(data []byte) ([]byte, error) {
	if i := bytes.IndexByte(data, '>'); i >= 0 {
		data = data[:i]
	}
	compact := make([]byte, 0, len(data))
	for _, b := range data {
		switch b {
		case 0, 9, 10, 12, 13, 32: // whitespace
		default:
			compact = append(compact, b)
		}
	}
	if len(compact)%2 == 1 {
		compact = append(compact, '0')
	}
	out := make([]byte, hex.DecodedLen(len(compact)))
	if _, err := hex.Decode(out, compact); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeASCII85(data []byte) ([]byte, error) {
	if i := bytes.Index(data, []byte("~>")); i >= 0 {
		data = data[:i]
	}
	out := make([]byte, 0, len(data))
	dec := ascii85.NewDecoder(bytes.NewReader(data))
	buf := make([]byte, 4096)
	for {
		n, err := dec.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func decodeRunLength(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); {
		length := int(data[i])
		i++
		switch {
		case length == 128: // EOD
			return out, nil
		case length < 128:
			if i+length+1 > len(data) {
				return nil, errors.New("run length data truncated")
			}
			out = append(out, data[i:i+length+1]...)
			i += length + 1
		default:
			if i >= len(data) {
				return nil, errors.New("run length data truncated")
			}
			for j := 0; j < 257-length; j++ {
				out = append(out, data[i])
			}
			i++
		}
	}
	return out, nil
}
