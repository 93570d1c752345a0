// Package throttle limits the event rate through the processing stage with
// a token bucket.
package throttle

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/c360/bee/component"
	"github.com/c360/bee/config"
	"github.com/c360/bee/errors"
	"github.com/c360/bee/event"
)

var _ component.Processor = (*Processor)(nil)

// Mode selects what happens to events over the limit.
type Mode string

const (
	// ModeWait holds events until a token is available
	ModeWait Mode = "wait"
	// ModeDrop discards events when no token is available
	ModeDrop Mode = "drop"
)

// Config holds configuration for the throttle processor
type Config struct {
	Rate  float64 // events per second
	Burst int
	Mode  Mode
}

// ParseConfig reads rate (required, > 0), burst (default 1) and mode
// (default wait).
func ParseConfig(cfg *config.Config) (Config, error) {
	var out Config
	var err error
	if out.Rate, err = config.GetFloat(cfg, "rate"); err != nil {
		return out, errors.Wrap(err, "throttle", "ParseConfig", "read rate")
	}
	if out.Rate <= 0 {
		return out, errors.Newf(errors.InvalidParam, "throttle rate must be positive, got %g", out.Rate)
	}
	if out.Burst, err = config.GetOr(cfg, "burst", 1); err != nil {
		return out, errors.Wrap(err, "throttle", "ParseConfig", "read burst")
	}
	if out.Burst < 1 {
		return out, errors.Newf(errors.InvalidParam, "throttle burst must be at least 1, got %d", out.Burst)
	}
	mode, err := config.GetOr(cfg, "mode", string(ModeWait))
	if err != nil {
		return out, errors.Wrap(err, "throttle", "ParseConfig", "read mode")
	}
	out.Mode = Mode(mode)
	if out.Mode != ModeWait && out.Mode != ModeDrop {
		return out, errors.Newf(errors.InvalidParam, "throttle mode must be wait or drop, got %q", mode)
	}
	return out, nil
}

// Processor passes events at no more than Rate per second. All workers of
// the processing stage share one limiter.
type Processor struct {
	config  Config
	limiter *rate.Limiter
	logger  *slog.Logger
	dropped atomic.Int64
}

// NewProcessor creates a throttle processor
func NewProcessor(cfg Config, deps component.Dependencies) *Processor {
	return &Processor{
		config:  cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
		logger:  deps.GetLoggerWithComponent("throttle"),
	}
}

// Process implements component.Processor. In wait mode it blocks until a
// token is free or ctx ends; cancellation is reported as interrupted.
func (p *Processor) Process(ctx context.Context, e event.Event) ([]event.Event, error) {
	if p.config.Mode == ModeDrop {
		if !p.limiter.Allow() {
			if n := p.dropped.Add(1); n%1000 == 1 {
				p.logger.Warn("Throttle dropping events", "dropped_total", n, "rate", p.config.Rate)
			}
			return nil, nil
		}
		return []event.Event{e}, nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, errors.Convert(ctx.Err())
		}
		return nil, errors.WrapAs(errors.InvalidParam, err, "throttle", "Process", "wait for token")
	}
	return []event.Event{e}, nil
}

// Dropped returns the number of events discarded in drop mode.
func (p *Processor) Dropped() int64 {
	return p.dropped.Load()
}

// CreateProcessor is the factory function for the throttle processor
func CreateProcessor(cfg *config.Config, deps component.Dependencies) (any, error) {
	parsed, err := ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	return NewProcessor(parsed, deps), nil
}

// Register registers the throttle processor with the registry
func Register(registry *component.Registry) error {
	return registry.Register(component.Registration{
		Name:        "throttle",
		Kind:        component.KindProcessor,
		Description: "Token bucket rate limit that waits or drops",
		Version:     "1.0.0",
		Factory:     CreateProcessor,
	})
}
