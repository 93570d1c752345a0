// Package json decodes raw JSON objects into events.
package json

import (
	"github.com/c360/bee/component"
	"github.com/c360/bee/config"
	"github.com/c360/bee/errors"
	"github.com/c360/bee/event"
)

// DefaultMaxSize bounds one payload when max_size is not set.
const DefaultMaxSize = 1 << 20

// Decoder turns one JSON object into one event. Nested objects are
// flattened into dotted field names. It is stateless and safe for
// concurrent use.
type Decoder struct {
	maxSize int
}

// NewDecoder creates a JSON decoder
func NewDecoder(maxSize int) *Decoder {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Decoder{maxSize: maxSize}
}

// Decode implements component.Decoder. Every failure is invalid-data.
func (d *Decoder) Decode(raw []byte) (event.Event, error) {
	if len(raw) > d.maxSize {
		return nil, errors.Newf(errors.IOInvalidData, "payload of %d bytes exceeds max_size %d", len(raw), d.maxSize)
	}
	var e event.Event
	if err := e.UnmarshalJSON(raw); err != nil {
		return nil, errors.WrapAs(errors.IOInvalidData, err, "json-decoder", "Decode", "decode payload")
	}
	return e, nil
}

// CreateDecoder is the factory function for the JSON decoder
func CreateDecoder(cfg *config.Config, _ component.Dependencies) (any, error) {
	maxSize, err := config.GetOr(cfg, "max_size", DefaultMaxSize)
	if err != nil {
		return nil, errors.Wrap(err, "json-decoder", "create", "read max_size")
	}
	return NewDecoder(maxSize), nil
}

// Register registers the JSON decoder with the registry
func Register(registry *component.Registry) error {
	return registry.Register(component.Registration{
		Name:        "json",
		Kind:        component.KindDecoder,
		Description: "Decodes one JSON object per payload, flattening nested objects",
		Version:     "1.0.0",
		Factory:     CreateDecoder,
	})
}
