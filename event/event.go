package event

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/c360/bee/errors"
	"github.com/c360/bee/value"
)

// Event is one record flowing through the pipeline: a mapping from field
// name to Value. A stage that has sent an Event must not touch it again.
type Event map[string]value.Value

// New creates an empty event.
func New() Event {
	return make(Event)
}

// FromMap builds an event from decoded JSON/YAML data. Nested objects are
// flattened into dotted field names, so {"a":{"b":1}} becomes a.b=1.
func FromMap(m map[string]any) Event {
	e := make(Event, len(m))
	e.flatten("", m)
	return e
}

func (e Event) flatten(prefix string, m map[string]any) {
	for k, raw := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := raw.(map[string]any); ok && len(nested) > 0 {
			e.flatten(key, nested)
			continue
		}
		e[key] = value.FromAny(raw)
	}
}

// Get returns the field and whether it was present.
func (e Event) Get(field string) (value.Value, bool) {
	v, ok := e[field]
	return v, ok
}

// Set stores v under field. A nil v is stored as value.Nil.
func (e Event) Set(field string, v value.Value) Event {
	if v == nil {
		v = value.Nil{}
	}
	e[field] = v
	return e
}

// Delete removes field.
func (e Event) Delete(field string) {
	delete(e, field)
}

// Fields returns the field names in sorted order.
func (e Event) Fields() []string {
	out := make([]string, 0, len(e))
	for k := range e {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Clone returns a shallow copy. Values are immutable except Bytes and Array,
// which are copied.
func (e Event) Clone() Event {
	out := make(Event, len(e))
	for k, v := range e {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v value.Value) value.Value {
	switch t := v.(type) {
	case value.Bytes:
		return append(value.Bytes(nil), t...)
	case value.Array:
		arr := make(value.Array, len(t))
		for i, e := range t {
			arr[i] = cloneValue(e)
		}
		return arr
	}
	return v
}

// Equal reports whether both events hold the same fields with structurally
// equal values.
func (e Event) Equal(other Event) bool {
	if len(e) != len(other) {
		return false
	}
	for k, v := range e {
		o, ok := other[k]
		if !ok || !value.Equal(v, o) {
			return false
		}
	}
	return true
}

// Field reads field and coerces it to T.
func Field[T any](e Event, field string) (T, error) {
	v, ok := e[field]
	if !ok {
		var zero T
		return zero, errors.Newf(errors.InvalidIndex, "event has no field %q", field)
	}
	return value.As[T](v)
}

// MarshalJSON renders the event as a JSON object with sorted keys.
func (e Event) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range e.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		v := e[k]
		if v == nil {
			v = value.Nil{}
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, errors.WrapAs(errors.IOInvalidData, err, "Event", "MarshalJSON", "encode field "+k)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, flattening nested objects the same
// way FromMap does.
func (e *Event) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return errors.Wrap(err, "Event", "UnmarshalJSON", "decode object")
	}
	if m == nil {
		return errors.New(errors.IOInvalidData, "event must be a JSON object")
	}
	*e = FromMap(m)
	return nil
}
