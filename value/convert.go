package value

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/c360/bee/errors"
)

// Native lists the Go types with a fixed, lossless Value mapping.
// uint and uint64 are left out: not every value fits in Integer.
type Native interface {
	int | int8 | int16 | int32 | int64 |
		uint8 | uint16 | uint32 |
		float32 | float64 |
		string | bool | []byte | struct{}
}

// Valuer is implemented by types that convert themselves into a Value.
type Valuer interface {
	Value() Value
}

// Scanner is implemented by pointer types that fill themselves from a Value.
// As prefers Scanner over the built-in conversions.
type Scanner interface {
	Scan(Value) error
}

// Of converts a native value. It never fails.
func Of[T Native](x T) Value {
	switch t := any(x).(type) {
	case int:
		return Integer(t)
	case int8:
		return Integer(t)
	case int16:
		return Integer(t)
	case int32:
		return Integer(t)
	case int64:
		return Integer(t)
	case uint8:
		return Integer(t)
	case uint16:
		return Integer(t)
	case uint32:
		return Integer(t)
	case float32:
		return Number(t)
	case float64:
		return Number(t)
	case string:
		return String(t)
	case bool:
		return Boolean(t)
	case []byte:
		return Bytes(t)
	default:
		return Nil{}
	}
}

// OfSlice converts every element and wraps the result in an Array.
func OfSlice[T Native](xs []T) Value {
	out := make(Array, len(xs))
	for i, x := range xs {
		out[i] = Of(x)
	}
	return out
}

// As converts v to T. A mismatched variant or an out-of-range narrowing
// returns an invalid-type error naming the target and the value. The string
// target accepts every variant.
func As[T any](v Value) (T, error) {
	var out T
	if v == nil {
		v = Nil{}
	}
	if s, ok := any(&out).(Scanner); ok {
		err := s.Scan(v)
		return out, err
	}

	var err error
	switch p := any(&out).(type) {
	case *Value:
		*p = v
	case *string:
		*p = v.String()
	case *int:
		var n int64
		n, err = asInt(v, "int", math.MinInt, math.MaxInt)
		*p = int(n)
	case *int8:
		var n int64
		n, err = asInt(v, "int8", math.MinInt8, math.MaxInt8)
		*p = int8(n)
	case *int16:
		var n int64
		n, err = asInt(v, "int16", math.MinInt16, math.MaxInt16)
		*p = int16(n)
	case *int32:
		var n int64
		n, err = asInt(v, "int32", math.MinInt32, math.MaxInt32)
		*p = int32(n)
	case *int64:
		*p, err = asInt(v, "int64", math.MinInt64, math.MaxInt64)
	case *uint:
		var n int64
		n, err = asInt(v, "uint", 0, math.MaxInt64)
		*p = uint(n)
	case *uint8:
		var n int64
		n, err = asInt(v, "uint8", 0, math.MaxUint8)
		*p = uint8(n)
	case *uint16:
		var n int64
		n, err = asInt(v, "uint16", 0, math.MaxUint16)
		*p = uint16(n)
	case *uint32:
		var n int64
		n, err = asInt(v, "uint32", 0, math.MaxUint32)
		*p = uint32(n)
	case *uint64:
		var n int64
		n, err = asInt(v, "uint64", 0, math.MaxInt64)
		*p = uint64(n)
	case *float64:
		n, ok := v.(Number)
		if !ok {
			return out, mismatch("float64", v)
		}
		*p = float64(n)
	case *float32:
		n, ok := v.(Number)
		f := float64(n)
		if !ok || (math.Abs(f) > math.MaxFloat32 && !math.IsInf(f, 0)) {
			return out, mismatch("float32", v)
		}
		*p = float32(f)
	case *bool:
		b, ok := v.(Boolean)
		if !ok {
			return out, mismatch("bool", v)
		}
		*p = bool(b)
	case *[]byte:
		b, ok := v.(Bytes)
		if !ok {
			return out, mismatch("[]byte", v)
		}
		*p = []byte(b)
	case *struct{}, *Nil:
		if _, ok := v.(Nil); !ok {
			return out, mismatch(fmt.Sprintf("%T", out), v)
		}
	default:
		return out, errors.Newf(errors.InvalidNotSupport, "no conversion from Value to %T", out)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// AsSlice converts an Array element by element. The first failing element
// aborts the conversion and no partial result is returned.
func AsSlice[T any](v Value) ([]T, error) {
	arr, ok := v.(Array)
	if !ok {
		var zero T
		return nil, mismatch(fmt.Sprintf("[]%T", zero), v)
	}
	out := make([]T, 0, len(arr))
	for _, e := range arr {
		x, err := As[T](e)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

func asInt(v Value, target string, lo, hi int64) (int64, error) {
	n, ok := v.(Integer)
	if !ok || int64(n) < lo || int64(n) > hi {
		return 0, mismatch(target, v)
	}
	return int64(n), nil
}

func mismatch(target string, v Value) error {
	return errors.Newf(errors.InvalidType, "failed to parse %s for %s", target, Debug(v))
}

// FromAny converts a decoded document value (JSON, YAML, TOML) into a Value.
// Maps become Nil since tables are not values. Unknown types are rendered
// with fmt into a String, so the conversion is total.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Nil{}
	case Value:
		return t
	case Valuer:
		return t.Value()
	case string:
		return String(t)
	case bool:
		return Boolean(t)
	case int:
		return Integer(t)
	case int8:
		return Integer(t)
	case int16:
		return Integer(t)
	case int32:
		return Integer(t)
	case int64:
		return Integer(t)
	case uint:
		return fromUint(uint64(t))
	case uint8:
		return Integer(t)
	case uint16:
		return Integer(t)
	case uint32:
		return Integer(t)
	case uint64:
		return fromUint(t)
	case float32:
		return Number(t)
	case float64:
		return Number(t)
	case json.Number:
		if n, err := strconv.ParseInt(t.String(), 10, 64); err == nil {
			return Integer(n)
		}
		if f, err := strconv.ParseFloat(t.String(), 64); err == nil {
			return Number(f)
		}
		return String(t.String())
	case []byte:
		return Bytes(t)
	case time.Time:
		return String(t.Format(time.RFC3339Nano))
	case []any:
		out := make(Array, len(t))
		for i, e := range t {
			out[i] = FromAny(e)
		}
		return out
	case []map[string]any:
		out := make(Array, len(t))
		for i := range t {
			out[i] = Nil{}
		}
		return out
	case map[string]any, map[any]any:
		return Nil{}
	default:
		return String(fmt.Sprint(t))
	}
}

func fromUint(u uint64) Value {
	if u > math.MaxInt64 {
		return Number(float64(u))
	}
	return Integer(int64(u))
}
