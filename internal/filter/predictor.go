package filter

import (
	"github.com/pkg/errors"

	"github.com/gettalong/hexapdf-sub011/internal/pdf"
)

// unpredict undoes the predictor declared in a filter's /DecodeParms.
// Cross-reference streams regularly use the PNG Up predictor (12).
func unpredict(data []byte, parms pdf.Dictionary) ([]byte, error) {
	pred, ok := parms.Int("Predictor")
	if !ok || pred <= 1 {
		return data, nil
	}
	if pred == 2 {
		return nil, errors.New("TIFF predictor not supported")
	}
	if pred < 10 || pred > 15 {
		return nil, errors.Errorf("unknown predictor %d", pred)
	}

	colors := int64(1)
	if v, ok := parms.Int("Colors"); ok {
		colors = v
	}
	bpc := int64(8)
	if v, ok := parms.Int("BitsPerComponent"); ok {
		bpc = v
	}
	columns := int64(1)
	if v, ok := parms.Int("Columns"); ok {
		columns = v
	}

	bpp := int((colors*bpc + 7) / 8)
	rowLen := int((colors*bpc*columns + 7) / 8)
	if rowLen <= 0 || (len(data))%(rowLen+1) != 0 {
		return nil, errors.Errorf("predictor row length %d does not divide data length %d", rowLen+1, len(data))
	}

	rows := len(data) / (rowLen + 1)
	out := make([]byte, 0, rows*rowLen)
	prev := make([]byte, rowLen)

	for r := 0; r < rows; r++ {
		tag := data[r*(rowLen+1)]
		row := make([]byte, rowLen)
		copy(row, data[r*(rowLen+1)+1:(r+1)*(rowLen+1)])

		switch tag {
		case 0: // None
		case 1: // Sub
			for i := bpp; i < rowLen; i++ {
				row[i] += row[i-bpp]
			}
		case 2: // Up
			for i := 0; i < rowLen; i++ {
				row[i] += prev[i]
			}
		case 3: // Average
			for i := 0; i < rowLen; i++ {
				left := 0
				if i >= bpp {
					left = int(row[i-bpp])
				}
				row[i] += byte((left + int(prev[i])) / 2)
			}
		case 4: // Paeth
			for i := 0; i < rowLen; i++ {
				var left, upLeft byte
				if i >= bpp {
					left = row[i-bpp]
					upLeft = prev[i-bpp]
				}
				row[i] += paeth(left, prev[i], upLeft)
			}
		default:
			return nil, errors.Errorf("unknown PNG predictor row tag %d", tag)
		}

		out = append(out, row...)
		prev = row
	}

	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
