package buffer

import (
	"github.com/c360/bee/metric"
)

// Option configures a Channel.
type Option[T any] func(*channelOptions[T])

type channelOptions[T any] struct {
	overflowPolicy OverflowPolicy
	dropCallback   DropCallback[T]

	// metricsReg is optional; when set, depth and drops are exported under
	// metricsName.
	metricsReg  *metric.MetricsRegistry
	metricsName string
}

// WithOverflowPolicy sets the overflow behavior. Defaults to Block.
func WithOverflowPolicy[T any](policy OverflowPolicy) Option[T] {
	return func(opts *channelOptions[T]) {
		opts.overflowPolicy = policy
	}
}

// WithMetrics exports channel depth and drops with the given channel label.
// A nil registry or empty name is ignored.
func WithMetrics[T any](registry *metric.MetricsRegistry, name string) Option[T] {
	return func(opts *channelOptions[T]) {
		if registry != nil && name != "" {
			opts.metricsReg = registry
			opts.metricsName = name
		}
	}
}

// WithDropCallback sets a function called for each dropped item.
func WithDropCallback[T any](callback DropCallback[T]) Option[T] {
	return func(opts *channelOptions[T]) {
		opts.dropCallback = callback
	}
}

func applyOptions[T any](options ...Option[T]) *channelOptions[T] {
	opts := &channelOptions[T]{overflowPolicy: Block}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return opts
}
