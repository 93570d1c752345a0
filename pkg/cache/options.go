package cache

import (
	"time"

	"github.com/c360/bee/metric"
)

// Option adjusts a cache at construction.
type Option[V any] func(*settings[V])

type settings[V any] struct {
	registry *metric.MetricsRegistry
	owner    string
	onEvict  EvictCallback[V]
	ttl      time.Duration
	now      func() time.Time
}

// WithMetrics exports the counters to registry, labelled with owner. It is
// ignored when either is empty.
func WithMetrics[V any](registry *metric.MetricsRegistry, owner string) Option[V] {
	return func(s *settings[V]) {
		if registry == nil || owner == "" {
			return
		}
		s.registry, s.owner = registry, owner
	}
}

// WithEvictionCallback is called with the cache locked and must not call
// back into it.
func WithEvictionCallback[V any](fn EvictCallback[V]) Option[V] {
	return func(s *settings[V]) { s.onEvict = fn }
}

// WithTTL expires entries ttl after they were last set. Non-positive values
// keep entries until evicted.
func WithTTL[V any](ttl time.Duration) Option[V] {
	return func(s *settings[V]) { s.ttl = max(ttl, 0) }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(s *settings[V]) {
		if now != nil {
			s.now = now
		}
	}
}
