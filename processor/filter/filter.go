// Package filter provides a processor that keeps or drops events by field
// rules.
package filter

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/c360/bee/component"
	"github.com/c360/bee/config"
	"github.com/c360/bee/errors"
	"github.com/c360/bee/event"
)

var _ component.Processor = (*Processor)(nil)

// Mode combines rule results.
type Mode string

const (
	// ModeAll keeps an event when every rule matches
	ModeAll Mode = "all"
	// ModeAny keeps an event when at least one rule matches
	ModeAny Mode = "any"
)

// Config holds configuration for the filter processor
type Config struct {
	Rules  []Rule
	Mode   Mode
	Invert bool // drop matching events instead of keeping them
}

// ParseConfig reads rules (string or list of "<field> <op> <value>"), mode
// and invert.
func ParseConfig(r config.Resolver) (Config, error) {
	cfg := Config{Mode: ModeAll}

	texts, err := config.GetStrings(r, "rules")
	if errors.IsOneOf(err, errors.InvalidIndex) {
		texts, err = nil, nil
	}
	if err != nil {
		return cfg, errors.Wrap(err, "filter", "ParseConfig", "read rules")
	}
	for _, text := range texts {
		rule, err := ParseRule(text)
		if err != nil {
			return cfg, err
		}
		cfg.Rules = append(cfg.Rules, rule)
	}

	mode, err := config.GetOr(r, "mode", string(ModeAll))
	if err != nil {
		return cfg, errors.Wrap(err, "filter", "ParseConfig", "read mode")
	}
	switch Mode(strings.ToLower(mode)) {
	case ModeAll:
		cfg.Mode = ModeAll
	case ModeAny:
		cfg.Mode = ModeAny
	default:
		return cfg, errors.Newf(errors.InvalidParam, "filter mode must be all or any, got %q", mode)
	}

	if cfg.Invert, err = config.GetOr(r, "invert", false); err != nil {
		return cfg, errors.Wrap(err, "filter", "ParseConfig", "read invert")
	}
	return cfg, nil
}

// Processor passes events that satisfy its rules and drops the rest. With
// no rules every event passes.
type Processor struct {
	config  Config
	logger  *slog.Logger
	metrics *filterMetrics

	evaluated atomic.Int64
	matched   atomic.Int64
}

// NewProcessor creates a filter processor
func NewProcessor(cfg Config, deps component.Dependencies) (*Processor, error) {
	metrics, err := newFilterMetrics(deps.MetricsRegistry)
	if err != nil {
		return nil, errors.Wrap(err, "filter", "NewProcessor", "metrics registration")
	}
	return &Processor{
		config:  cfg,
		logger:  deps.GetLoggerWithComponent("filter"),
		metrics: metrics,
	}, nil
}

// Process implements component.Processor.
func (p *Processor) Process(_ context.Context, e event.Event) ([]event.Event, error) {
	start := time.Now()
	keep := p.matches(e) != p.config.Invert

	total := p.evaluated.Add(1)
	matched := p.matched.Load()
	if keep {
		matched = p.matched.Add(1)
	}
	p.metrics.recordEvaluation(keep, time.Since(start), matched, total)

	if !keep {
		p.logger.Debug("Event filtered out", "fields", len(e))
		return nil, nil
	}
	return []event.Event{e}, nil
}

func (p *Processor) matches(e event.Event) bool {
	if len(p.config.Rules) == 0 {
		return true
	}
	for _, rule := range p.config.Rules {
		ok := rule.Match(e)
		if p.config.Mode == ModeAny && ok {
			return true
		}
		if p.config.Mode == ModeAll && !ok {
			return false
		}
	}
	return p.config.Mode == ModeAll
}

// Stats returns evaluated and passed event counts.
func (p *Processor) Stats() (evaluated, passed int64) {
	return p.evaluated.Load(), p.matched.Load()
}

// CreateProcessor is the factory function for the filter processor
func CreateProcessor(cfg *config.Config, deps component.Dependencies) (any, error) {
	parsed, err := ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	return NewProcessor(parsed, deps)
}

// Register registers the filter processor with the registry
func Register(registry *component.Registry) error {
	return registry.Register(component.Registration{
		Name:        "filter",
		Kind:        component.KindProcessor,
		Description: "Keeps events whose fields satisfy all or any of a set of rules",
		Version:     "1.0.0",
		Factory:     CreateProcessor,
	})
}
