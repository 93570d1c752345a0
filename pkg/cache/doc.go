// Package cache provides a generic, thread-safe LRU cache with an optional
// time-to-live, built-in statistics and optional Prometheus metrics.
//
// # Quick Start
//
//	seen, err := cache.New[struct{}](10000,
//		cache.WithTTL[struct{}](10*time.Minute),
//		cache.WithMetrics[struct{}](registry, "dedupe"),
//	)
//	if added, _ := seen.Add(key, struct{}{}); !added {
//		// duplicate
//	}
//
// # Eviction
//
// When an insert pushes the cache past its maximum size the least recently
// used entry is evicted. With a TTL, entries older than the TTL are treated
// as absent and removed when next touched; there is no background sweeper,
// so a cache never owns a goroutine and needs no Close.
//
// # Statistics
//
// Counters are always kept and read through Stats. WithMetrics also exports
// them as an operations counter and an entries gauge labelled with the owner.
package cache
