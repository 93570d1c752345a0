// Package dedupe drops events already seen within a time window.
//
// A websocket source that reconnects after a transient failure may have its
// subscription replay recent logs. Keyed on transaction hash and log index,
// dedupe passes each log once.
package dedupe

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/c360/bee/component"
	"github.com/c360/bee/config"
	"github.com/c360/bee/errors"
	"github.com/c360/bee/event"
	"github.com/c360/bee/pkg/cache"
)

var _ component.Processor = (*Processor)(nil)

// Config holds configuration for the dedupe processor
type Config struct {
	Fields  []string      // key fields; all must be present
	Window  time.Duration // how long a key is remembered
	MaxKeys int
}

// DefaultConfig keys on the ethlog transaction hash and log index.
func DefaultConfig() Config {
	return Config{
		Fields:  []string{"tx_hash", "log_index"},
		Window:  10 * time.Minute,
		MaxKeys: 100_000,
	}
}

// ParseConfig reads fields, window and max_keys.
func ParseConfig(cfg *config.Config) (Config, error) {
	out := DefaultConfig()
	if cfg.Has("fields") {
		fields, err := config.GetStrings(cfg, "fields")
		if err != nil {
			return out, errors.Wrap(err, "dedupe", "ParseConfig", "read fields")
		}
		out.Fields = fields
	}
	var err error
	if out.Window, err = config.GetDurationOr(cfg, "window", out.Window); err != nil {
		return out, errors.Wrap(err, "dedupe", "ParseConfig", "read window")
	}
	if out.MaxKeys, err = config.GetOr(cfg, "max_keys", out.MaxKeys); err != nil {
		return out, errors.Wrap(err, "dedupe", "ParseConfig", "read max_keys")
	}
	if len(out.Fields) == 0 {
		return out, errors.New(errors.InvalidParam, "dedupe needs at least one key field")
	}
	if out.Window <= 0 || out.MaxKeys <= 0 {
		return out, errors.New(errors.InvalidParam, "dedupe window and max_keys must be positive")
	}
	return out, nil
}

// Processor passes the first event for each key and drops repeats. Events
// missing a key field always pass.
type Processor struct {
	config Config
	seen   *cache.Cache[struct{}]
	logger *slog.Logger
}

// NewProcessor creates a dedupe processor
func NewProcessor(cfg Config, deps component.Dependencies) (*Processor, error) {
	seen, err := cache.New[struct{}](cfg.MaxKeys,
		cache.WithTTL[struct{}](cfg.Window),
		cache.WithMetrics[struct{}](deps.MetricsRegistry, "dedupe"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "dedupe", "NewProcessor", "create key cache")
	}
	return &Processor{config: cfg, seen: seen, logger: deps.GetLoggerWithComponent("dedupe")}, nil
}

// Process implements component.Processor.
func (p *Processor) Process(_ context.Context, e event.Event) ([]event.Event, error) {
	key, ok := p.key(e)
	if !ok {
		return []event.Event{e}, nil
	}
	added, err := p.seen.Add(key, struct{}{})
	if err != nil {
		return nil, err
	}
	if !added {
		p.logger.Debug("Duplicate event dropped", "key", key)
		return nil, nil
	}
	return []event.Event{e}, nil
}

func (p *Processor) key(e event.Event) (string, bool) {
	parts := make([]string, len(p.config.Fields))
	for i, field := range p.config.Fields {
		v, ok := e.Get(field)
		if !ok {
			return "", false
		}
		// Quoting keeps a separator inside a value from joining two keys.
		parts[i] = strconv.Quote(strings.ToLower(v.String()))
	}
	return strings.Join(parts, "|"), true
}

// Stats returns the key cache statistics.
func (p *Processor) Stats() cache.Snapshot {
	return p.seen.Stats()
}

// CreateProcessor is the factory function for the dedupe processor
func CreateProcessor(cfg *config.Config, deps component.Dependencies) (any, error) {
	parsed, err := ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	return NewProcessor(parsed, deps)
}

// Register registers the dedupe processor with the registry
func Register(registry *component.Registry) error {
	return registry.Register(component.Registration{
		Name:        "dedupe",
		Kind:        component.KindProcessor,
		Description: "Drops events whose key fields were seen within a window",
		Version:     "1.0.0",
		Factory:     CreateProcessor,
	})
}
