package filter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gettalong/hexapdf-sub011/internal/pdf"
)

func TestFlateRoundTrip(t *testing.T) {
	in := []byte("some stream payload that compresses, some stream payload that compresses")
	enc, err := Encode(in)
	require.NoError(t, err)
	require.NotEqual(t, in, enc)

	out, err := Decode(enc, FlateDecode, nil)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestDecodeFilterChain(t *testing.T) {
	in := []byte("chained payload")
	enc, err := Encode(in)
	require.NoError(t, err)

	// hex on top of flate, declared as an array applied left to right
	hexed := make([]byte, 0, len(enc)*2+1)
	const digits = "0123456789ABCDEF"
	for _, b := range enc {
		hexed = append(hexed, digits[b>>4], digits[b&0xf])
	}
	hexed = append(hexed, '>')

	out, err := Decode(hexed, pdf.Array{ASCIIHexDecode, FlateDecode}, nil)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestDecodeNoFilter(t *testing.T) {
	in := []byte("raw")
	out, err := Decode(in, nil, nil)
	require.NoError(t, err)
	require.Equal(t, in, out)

	out, err = Decode(in, pdf.Null{}, nil)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestDecodeASCIIHex(t *testing.T) {
	out, err := decodeASCIIHex([]byte("48 65 6C 6C 6F>garbage"))
	require.NoError(t, err)
	require.Equal(t, []byte("Hello"), out)

	// odd digit count pads with zero
	out, err = decodeASCIIHex([]byte("7>"))
	require.NoError(t, err)
	require.Equal(t, []byte{0x70}, out)
}

func TestDecodeRunLength(t *testing.T) {
	// literal run "ab", then 'x' repeated 4 times, then EOD
	in := []byte{1, 'a', 'b', 254, 'x', 128}
	out, err := decodeRunLength(in)
	require.NoError(t, err)
	require.Equal(t, []byte("abxxxx"), out)

	_, err = decodeRunLength([]byte{5, 'a'})
	require.Error(t, err)
}

func TestUnpredictUp(t *testing.T) {
	// two rows of four columns, PNG Up: second row stores deltas
	data := []byte{
		2, 10, 20, 30, 40,
		2, 1, 1, 1, 1,
	}
	parms := pdf.Dictionary{
		"Predictor": pdf.Integer(12),
		"Columns":   pdf.Integer(4),
	}
	out, err := unpredict(data, parms)
	require.NoError(t, err)
	require.Equal(t, []byte{10, 20, 30, 40, 11, 21, 31, 41}, out)
}

func TestUnpredictRejectsTIFF(t *testing.T) {
	_, err := unpredict([]byte{0}, pdf.Dictionary{"Predictor": pdf.Integer(2)})
	require.Error(t, err)
}

func TestUnpredictRowLengthMismatch(t *testing.T) {
	parms := pdf.Dictionary{
		"Predictor": pdf.Integer(12),
		"Columns":   pdf.Integer(4),
	}
	_, err := unpredict([]byte{2, 1, 2}, parms)
	require.Error(t, err)
}
