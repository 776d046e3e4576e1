package document

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/gettalong/hexapdf-sub011/internal/pdf"
)

// serializeValue writes the serialized form of obj. Nested indirect-object
// handles and references both come out as "num gen R"; dictionaries are
// written with sorted keys so output is deterministic.
func serializeValue(buf *bytes.Buffer, obj pdf.Object) error {
	switch v := obj.(type) {
	case nil, pdf.Null:
		buf.WriteString("null")

	case pdf.Boolean:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}

	case pdf.Integer:
		buf.WriteString(strconv.FormatInt(int64(v), 10))

	case pdf.Real:
		buf.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 64))

	case pdf.String:
		serializeString(buf, v)

	case pdf.Name:
		serializeName(buf, v)

	case pdf.Reference:
		fmt.Fprintf(buf, "%d %d R", v.Number, v.Generation)

	case *pdf.IndirectObject:
		fmt.Fprintf(buf, "%d %d R", v.ID.Number, v.ID.Generation)

	case pdf.Array:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(' ')
			}
			if err := serializeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')

	case pdf.Dictionary:
		if err := serializeDict(buf, v); err != nil {
			return err
		}

	case pdf.Stream:
		// the written /Length always reflects the raw data, indirect
		// length objects are not carried forward
		v.Dictionary["Length"] = pdf.Integer(len(v.Raw))
		if err := serializeDict(buf, v.Dictionary); err != nil {
			return err
		}
		buf.WriteString("\nstream\n")
		buf.Write(v.Raw)
		buf.WriteString("\nendstream")

	default:
		return errors.Errorf("cannot serialize %T", obj)
	}
	return nil
}

func serializeDict(buf *bytes.Buffer, dict pdf.Dictionary) error {
	keys := make([]string, 0, len(dict))
	for k := range dict {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	buf.WriteString("<<")
	for _, k := range keys {
		serializeName(buf, pdf.Name(k))
		buf.WriteByte(' ')
		if err := serializeValue(buf, dict[pdf.Name(k)]); err != nil {
			return err
		}
	}
	buf.WriteString(">>")
	return nil
}

func serializeName(buf *bytes.Buffer, n pdf.Name) {
	buf.WriteByte('/')
	for i := 0; i < len(n); i++ {
		c := n[i]
		if c <= 32 || c >= 127 || c == '#' || c == '/' || c == '(' || c == ')' ||
			c == '<' || c == '>' || c == '[' || c == ']' || c == '{' || c == '}' || c == '%' {
			fmt.Fprintf(buf, "#%02X", c)
		} else {
			buf.WriteByte(c)
		}
	}
}

func serializeString(buf *bytes.Buffer, s pdf.String) {
	buf.WriteByte('(')
	for _, c := range s {
		switch c {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\r':
			buf.WriteString("\\r")
		case '\n':
			buf.WriteString("\\n")
		default:
			buf.WriteByte(c)
		}
	}
	buf.WriteByte(')')
}

// serializeIndirect writes the full "num gen obj ... endobj" form.
func serializeIndirect(buf *bytes.Buffer, obj *pdf.IndirectObject) error {
	fmt.Fprintf(buf, "%d %d obj\n", obj.ID.Number, obj.ID.Generation)
	if err := serializeValue(buf, obj.Value); err != nil {
		return errors.Wrapf(err, "object %v", obj.ID)
	}
	buf.WriteString("\nendobj\n")
	return nil
}
