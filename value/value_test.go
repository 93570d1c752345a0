package value

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/bee/errors"
)

func allVariants() []Value {
	return []Value{
		String("hello"),
		Integer(-42),
		Number(10.5),
		Boolean(true),
		Bytes{9, 18},
		Array{Integer(0), Integer(1)},
		Nil{},
	}
}

func TestTypeOf_AgreesWithType(t *testing.T) {
	for _, v := range allVariants() {
		assert.Equal(t, v.Type(), TypeOf(v), Debug(v))
	}
	assert.Equal(t, TypeNil, TypeOf(nil))
}

func TestDataType_String(t *testing.T) {
	names := map[DataType]string{
		TypeString:  "String",
		TypeInteger: "Integer",
		TypeNumber:  "Number",
		TypeBoolean: "Boolean",
		TypeBytes:   "Bytes",
		TypeArray:   "Array",
		TypeNil:     "Nil",
	}
	for dt, want := range names {
		assert.Equal(t, want, dt.String())
	}
}

func TestParseDataType(t *testing.T) {
	tests := []struct {
		in   string
		want DataType
	}{
		{"String", TypeString},
		{"i8", TypeInteger},
		{"U32", TypeInteger},
		{"integer", TypeInteger},
		{"f32", TypeNumber},
		{"NUMBER", TypeNumber},
		{"boolean", TypeBoolean},
		{"Vec<u8>", TypeBytes},
		{"array", TypeArray},
		{"()", TypeNil},
		{"nil", TypeNil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDataType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseDataType("decimal")
	assert.True(t, errors.IsOneOf(err, errors.InvalidType))
}

func TestRoundTrip(t *testing.T) {
	t.Run("int", func(t *testing.T) { roundTrip(t, int(-7)) })
	t.Run("int8", func(t *testing.T) { roundTrip(t, int8(-128)) })
	t.Run("int16", func(t *testing.T) { roundTrip(t, int16(32000)) })
	t.Run("int32", func(t *testing.T) { roundTrip(t, int32(math.MinInt32)) })
	t.Run("int64", func(t *testing.T) { roundTrip(t, int64(math.MaxInt64)) })
	t.Run("uint8", func(t *testing.T) { roundTrip(t, uint8(255)) })
	t.Run("uint16", func(t *testing.T) { roundTrip(t, uint16(65535)) })
	t.Run("uint32", func(t *testing.T) { roundTrip(t, uint32(math.MaxUint32)) })
	t.Run("float32", func(t *testing.T) { roundTrip(t, float32(1.25)) })
	t.Run("float64", func(t *testing.T) { roundTrip(t, 10.02) })
	t.Run("string", func(t *testing.T) { roundTrip(t, "bee") })
	t.Run("bool", func(t *testing.T) { roundTrip(t, false) })
	t.Run("bytes", func(t *testing.T) { roundTrip(t, []byte{1, 2, 3}) })
	t.Run("unit", func(t *testing.T) { roundTrip(t, struct{}{}) })
}

func roundTrip[T Native](t *testing.T, x T) {
	t.Helper()
	got, err := As[T](Of(x))
	require.NoError(t, err)
	assert.Equal(t, x, got)
}

func TestAs_NarrowingFailsInsteadOfWrapping(t *testing.T) {
	_, err := As[int8](Integer(300))
	require.Error(t, err)
	assert.True(t, errors.IsOneOf(err, errors.InvalidType))
	assert.Contains(t, err.Error(), "failed to parse int8 for Integer(300)")

	_, err = As[uint8](Integer(-1))
	assert.True(t, errors.IsOneOf(err, errors.InvalidType))

	_, err = As[float32](Number(math.MaxFloat64))
	assert.True(t, errors.IsOneOf(err, errors.InvalidType))
}

func TestAs_VariantMismatch(t *testing.T) {
	_, err := As[int64](String("5"))
	assert.True(t, errors.IsOneOf(err, errors.InvalidType))

	_, err = As[bool](Integer(1))
	assert.True(t, errors.IsOneOf(err, errors.InvalidType))

	_, err = As[float64](Integer(1))
	assert.True(t, errors.IsOneOf(err, errors.InvalidType))

	_, err = As[struct{}](Integer(1))
	assert.True(t, errors.IsOneOf(err, errors.InvalidType))

	_, err = As[map[string]int](Integer(1))
	assert.True(t, errors.IsOneOf(err, errors.InvalidNotSupport))
}

func TestAs_StringNeverFails(t *testing.T) {
	want := []string{"hello", "-42", "10.5", "true", "[9, 18]", "[Integer(0), Integer(1)]", "Nil"}
	for i, v := range allVariants() {
		s, err := As[string](v)
		require.NoError(t, err)
		assert.Equal(t, want[i], s)
	}

	s, err := As[string](Number(10.0))
	require.NoError(t, err)
	assert.Equal(t, "10", s)

	s, err = As[string](nil)
	require.NoError(t, err)
	assert.Equal(t, "Nil", s)
}

func TestAs_ValueIdentity(t *testing.T) {
	v, err := As[Value](Integer(3))
	require.NoError(t, err)
	assert.Equal(t, Integer(3), v)
}

type celsius float64

func (c *celsius) Scan(v Value) error {
	n, err := As[float64](v)
	if err != nil {
		return err
	}
	*c = celsius(n)
	return nil
}

func (c celsius) Value() Value { return Number(c) }

func TestScannerAndValuer(t *testing.T) {
	c, err := As[celsius](Number(21.5))
	require.NoError(t, err)
	assert.Equal(t, celsius(21.5), c)

	assert.Equal(t, Number(21.5), FromAny(c))

	_, err = As[celsius](String("warm"))
	assert.True(t, errors.IsOneOf(err, errors.InvalidType))
}

func TestOfSliceAndAsSlice(t *testing.T) {
	arr := OfSlice([]int32{1, 2, 3})
	assert.Equal(t, Array{Integer(1), Integer(2), Integer(3)}, arr)

	back, err := AsSlice[int32](arr)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3}, back)

	mixed := Array{Integer(1), String("two"), Integer(3)}
	got, err := AsSlice[int64](mixed)
	assert.Nil(t, got)
	assert.True(t, errors.IsOneOf(err, errors.InvalidType))

	_, err = AsSlice[int64](Integer(1))
	assert.True(t, errors.IsOneOf(err, errors.InvalidType))

	strs, err := AsSlice[string](mixed)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "two", "3"}, strs)
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Value
	}{
		{"10.0", Number(10)},
		{"10", Integer(10)},
		{"-3", Integer(-3)},
		{"true", Boolean(true)},
		{"false", Boolean(false)},
		{"'10'", String("10")},
		{`"quoted"`, String(`"quoted"`)},
		{`say "hi"`, String(`say "hi"`)},
		{`'it''s'`, String("its")},
		{`{"jsonrpc":"2.0","id":1}`, String(`{"jsonrpc":"2.0","id":1}`)},
		{"nil", Nil{}},
		{"Null", Nil{}},
		{"NULL", Nil{}},
		{"nULL", String("nULL")},
		{"10._", String("10._")},
		{"10.false", String("10.false")},
		{"untrue", String("untrue")},
		{"abc", String("abc")},
		{"", String("")},
		{"99999999999999999999", String("99999999999999999999")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Parse(tt.in)
			assert.True(t, Equal(tt.want, got), "want %s, got %s", Debug(tt.want), Debug(got))
		})
	}
}

func TestDebug(t *testing.T) {
	assert.Equal(t, `String("a")`, Debug(String("a")))
	assert.Equal(t, "Integer(5)", Debug(Integer(5)))
	assert.Equal(t, "Number(1.5)", Debug(Number(1.5)))
	assert.Equal(t, "Boolean(false)", Debug(Boolean(false)))
	assert.Equal(t, "Bytes([9, 18])", Debug(Bytes{9, 18}))
	assert.Equal(t, "[Integer(0), Nil]", Debug(Array{Integer(0), Nil{}}))
	assert.Equal(t, "Nil", Debug(nil))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Bytes{1}, Bytes{1}))
	assert.False(t, Equal(Bytes{1}, Bytes{2}))
	assert.True(t, Equal(Array{Integer(1), Array{String("x")}}, Array{Integer(1), Array{String("x")}}))
	assert.False(t, Equal(Array{Integer(1)}, Array{Integer(1), Integer(2)}))
	assert.False(t, Equal(Integer(1), Number(1)))
	assert.False(t, Equal(Number(math.NaN()), Number(math.NaN())))
	assert.True(t, Equal(Nil{}, nil))
}

func TestFromAny(t *testing.T) {
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Nil{}},
		{"string", "x", String("x")},
		{"int64", int64(5), Integer(5)},
		{"uint64 small", uint64(5), Integer(5)},
		{"uint64 big", uint64(math.MaxUint64), Number(float64(uint64(math.MaxUint64)))},
		{"float", 1.5, Number(1.5)},
		{"json int", json.Number("12"), Integer(12)},
		{"json float", json.Number("1.5e3"), Number(1500)},
		{"time", when, String("2024-01-02T03:04:05Z")},
		{"list", []any{int64(1), "a"}, Array{Integer(1), String("a")}},
		{"table", map[string]any{"a": 1}, Nil{}},
		{"unknown", struct{ A int }{1}, String("{1}")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, Equal(tt.want, FromAny(tt.in)), "got %s", Debug(FromAny(tt.in)))
		})
	}
}

func TestMarshalJSON(t *testing.T) {
	doc := map[string]Value{
		"s": String("x"),
		"i": Integer(3),
		"n": Number(1.5),
		"b": Boolean(true),
		"y": Bytes{0xde, 0xad},
		"a": Array{Integer(1), Nil{}},
		"z": Nil{},
		"f": Number(math.Inf(1)),
	}
	out, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":"x","i":3,"n":1.5,"b":true,"y":"0xdead","a":[1,null],"z":null,"f":"+Inf"}`, string(out))
}
