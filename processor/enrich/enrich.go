// Package enrich stamps events with an id, a receive time and static
// fields, and normalizes an existing time field to Unix milliseconds.
package enrich

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/c360/bee/component"
	"github.com/c360/bee/config"
	"github.com/c360/bee/errors"
	"github.com/c360/bee/event"
	"github.com/c360/bee/pkg/timestamp"
	"github.com/c360/bee/value"
)

var _ component.Processor = (*Processor)(nil)

// Time formats for the received-at field.
const (
	TimeMillis  = "millis"
	TimeRFC3339 = "rfc3339"
)

// Config holds configuration for the enrich processor
type Config struct {
	IDField       string // empty disables ids
	ReceivedField string // empty disables the receive time
	TimeFormat    string
	TimeField     string // field normalized to Unix milliseconds, if set
	Overwrite     bool   // replace id and received fields the event already has
	Static        map[string]value.Value
}

// DefaultConfig returns the enrich defaults
func DefaultConfig() Config {
	return Config{
		IDField:       "id",
		ReceivedField: "received_at",
		TimeFormat:    TimeMillis,
	}
}

// ParseConfig reads id_field, received_field, time_format, time_field,
// overwrite and the fields table.
func ParseConfig(cfg *config.Config) (Config, error) {
	out := DefaultConfig()
	var err error
	if out.IDField, err = config.GetOr(cfg, "id_field", out.IDField); err != nil {
		return out, err
	}
	if out.ReceivedField, err = config.GetOr(cfg, "received_field", out.ReceivedField); err != nil {
		return out, err
	}
	if out.TimeFormat, err = config.GetOr(cfg, "time_format", out.TimeFormat); err != nil {
		return out, err
	}
	if out.TimeFormat != TimeMillis && out.TimeFormat != TimeRFC3339 {
		return out, errors.Newf(errors.InvalidParam, "enrich time_format must be %s or %s, got %q",
			TimeMillis, TimeRFC3339, out.TimeFormat)
	}
	if out.TimeField, err = config.GetOr(cfg, "time_field", ""); err != nil {
		return out, err
	}
	if out.Overwrite, err = config.GetOr(cfg, "overwrite", false); err != nil {
		return out, err
	}

	fields, err := cfg.Sub("fields")
	switch {
	case errors.IsOneOf(err, errors.InvalidIndex):
	case err != nil:
		return out, errors.Wrap(err, "enrich", "ParseConfig", "read fields")
	default:
		out.Static = make(map[string]value.Value)
		for _, key := range fields.Keys() {
			v, err := fields.Lookup(key)
			if err != nil {
				return out, err
			}
			out.Static[key] = v
		}
	}
	return out, nil
}

// Processor adds fields to every event it sees.
type Processor struct {
	config Config
	logger *slog.Logger
}

// NewProcessor creates an enrich processor
func NewProcessor(cfg Config, deps component.Dependencies) *Processor {
	return &Processor{config: cfg, logger: deps.GetLoggerWithComponent("enrich")}
}

// Process implements component.Processor. An event whose time field cannot
// be parsed is dropped with an invalid-type error.
func (p *Processor) Process(_ context.Context, e event.Event) ([]event.Event, error) {
	if p.config.IDField != "" {
		p.set(e, p.config.IDField, value.String(uuid.New().String()))
	}
	if p.config.ReceivedField != "" {
		now := timestamp.Now()
		if p.config.TimeFormat == TimeRFC3339 {
			p.set(e, p.config.ReceivedField, value.String(timestamp.Format(now)))
		} else {
			p.set(e, p.config.ReceivedField, value.Integer(now))
		}
	}
	if p.config.TimeField != "" {
		if raw, ok := e.Get(p.config.TimeField); ok {
			ms, err := timestamp.Parse(raw)
			if err != nil {
				return nil, errors.Wrap(err, "enrich", "Process", "normalize "+p.config.TimeField)
			}
			e.Set(p.config.TimeField, value.Integer(ms))
		}
	}
	for field, v := range p.config.Static {
		if _, ok := e.Get(field); !ok {
			e.Set(field, v)
		}
	}
	return []event.Event{e}, nil
}

func (p *Processor) set(e event.Event, field string, v value.Value) {
	if _, ok := e.Get(field); ok && !p.config.Overwrite {
		return
	}
	e.Set(field, v)
}

// CreateProcessor is the factory function for the enrich processor
func CreateProcessor(cfg *config.Config, deps component.Dependencies) (any, error) {
	parsed, err := ParseConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "enrich", "CreateProcessor", "parse config")
	}
	return NewProcessor(parsed, deps), nil
}

// Register registers the enrich processor with the registry
func Register(registry *component.Registry) error {
	return registry.Register(component.Registration{
		Name:        "enrich",
		Kind:        component.KindProcessor,
		Description: "Adds an event id, receive time and static fields",
		Version:     "1.0.0",
		Factory:     CreateProcessor,
	})
}
