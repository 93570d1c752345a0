package value

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Debug renders v with its variant name, e.g. Integer(5) or String("a").
// Arrays render as a bracketed list of element debug forms.
func Debug(v Value) string {
	switch t := v.(type) {
	case String:
		return "String(" + strconv.Quote(string(t)) + ")"
	case Integer:
		return "Integer(" + t.String() + ")"
	case Number:
		return "Number(" + t.String() + ")"
	case Boolean:
		return "Boolean(" + t.String() + ")"
	case Bytes:
		return "Bytes(" + byteList(t) + ")"
	case Array:
		return debugArray(t)
	default:
		return "Nil"
	}
}

func byteList(b []byte) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, c := range b {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Itoa(int(c)))
	}
	sb.WriteByte(']')
	return sb.String()
}

func debugArray(a []Value) string {
	parts := make([]string, len(a))
	for i, v := range a {
		parts[i] = Debug(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Equal reports structural equality. Number follows IEEE semantics, so NaN
// is never equal to itself.
func Equal(a, b Value) bool {
	if TypeOf(a) != TypeOf(b) {
		return false
	}
	switch x := a.(type) {
	case Bytes:
		return bytes.Equal(x, b.(Bytes))
	case Array:
		y := b.(Array)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case nil, Nil:
		return true
	default:
		return a == b
	}
}

// MarshalJSON renders bytes as a 0x-prefixed hex string.
func (v Bytes) MarshalJSON() ([]byte, error) {
	return json.Marshal("0x" + hex.EncodeToString(v))
}

// MarshalJSON renders non-finite numbers as strings, which JSON cannot
// represent otherwise.
func (v Number) MarshalJSON() ([]byte, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return json.Marshal(v.String())
	}
	return json.Marshal(f)
}

// MarshalJSON renders Nil as null.
func (Nil) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// MarshalJSON renders each element; nil entries become null.
func (v Array) MarshalJSON() ([]byte, error) {
	out := make([]any, len(v))
	for i, e := range v {
		if e == nil {
			e = Nil{}
		}
		out[i] = e
	}
	return json.Marshal(out)
}
