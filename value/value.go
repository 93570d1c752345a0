// Package value implements the dynamic Value type that flows through bee:
// a closed union of seven shapes with checked conversion to and from Go
// types.
package value

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/c360/bee/errors"
)

// Value is one of String, Integer, Number, Boolean, Bytes, Array or Nil.
// The set is closed: the unexported marker method keeps other packages from
// adding variants, so a type switch over the seven cases is exhaustive.
type Value interface {
	fmt.Stringer
	Type() DataType
	isValue()
}

type (
	String  string
	Integer int64
	Number  float64
	Boolean bool
	Bytes   []byte
	Array   []Value
	Nil     struct{}
)

func (String) isValue()  {}
func (Integer) isValue() {}
func (Number) isValue()  {}
func (Boolean) isValue() {}
func (Bytes) isValue()   {}
func (Array) isValue()   {}
func (Nil) isValue()     {}

func (String) Type() DataType  { return TypeString }
func (Integer) Type() DataType { return TypeInteger }
func (Number) Type() DataType  { return TypeNumber }
func (Boolean) Type() DataType { return TypeBoolean }
func (Bytes) Type() DataType   { return TypeBytes }
func (Array) Type() DataType   { return TypeArray }
func (Nil) Type() DataType     { return TypeNil }

// String methods render the display form used by the string conversion.

func (v String) String() string  { return string(v) }
func (v Integer) String() string { return strconv.FormatInt(int64(v), 10) }
func (v Number) String() string  { return strconv.FormatFloat(float64(v), 'f', -1, 64) }
func (v Boolean) String() string { return strconv.FormatBool(bool(v)) }
func (v Bytes) String() string   { return byteList(v) }
func (v Array) String() string   { return debugArray(v) }
func (Nil) String() string       { return "Nil" }

// DataType is the discriminant of Value.
type DataType uint8

const (
	TypeString DataType = iota
	TypeInteger
	TypeNumber
	TypeBoolean
	TypeBytes
	TypeArray
	TypeNil
)

func (t DataType) String() string {
	switch t {
	case TypeString:
		return "String"
	case TypeInteger:
		return "Integer"
	case TypeNumber:
		return "Number"
	case TypeBoolean:
		return "Boolean"
	case TypeBytes:
		return "Bytes"
	case TypeArray:
		return "Array"
	case TypeNil:
		return "Nil"
	default:
		return "Unknown"
	}
}

// TypeOf returns the DataType of v. A nil interface counts as Nil.
func TypeOf(v Value) DataType {
	switch v.(type) {
	case String:
		return TypeString
	case Integer:
		return TypeInteger
	case Number:
		return TypeNumber
	case Boolean:
		return TypeBoolean
	case Bytes:
		return TypeBytes
	case Array:
		return TypeArray
	default:
		return TypeNil
	}
}

// ParseDataType resolves a type name. Matching is case-insensitive and
// accepts the width aliases (i64, u8, f32, ...) used by older configuration
// files.
func ParseDataType(name string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "string", "str":
		return TypeString, nil
	case "integer", "int", "i64", "i32", "i16", "i8", "u32", "u16", "u8":
		return TypeInteger, nil
	case "number", "float", "f64", "f32":
		return TypeNumber, nil
	case "boolean", "bool":
		return TypeBoolean, nil
	case "bytes", "vec<u8>":
		return TypeBytes, nil
	case "array", "vec<value>":
		return TypeArray, nil
	case "()", "null", "nil":
		return TypeNil, nil
	}
	return TypeNil, errors.Newf(errors.InvalidType, "unknown data type %q", name)
}
