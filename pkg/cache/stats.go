package cache

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/bee/metric"
)

type op uint8

const (
	opHit op = iota
	opMiss
	opSet
	opDelete
	opEvict
	numOps
)

var opNames = [numOps]string{"hit", "miss", "set", "delete", "evict"}

// Snapshot is a point-in-time copy of a cache's counters.
type Snapshot struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Sets      int64   `json:"sets"`
	Deletes   int64   `json:"deletes"`
	Evictions int64   `json:"evictions"`
	Size      int     `json:"size"`
	PeakSize  int     `json:"peak_size"`
	HitRatio  float64 `json:"hit_ratio"`
}

// counters are always kept; the Prometheus collectors only once exported.
type counters struct {
	ops  [numOps]atomic.Int64
	size atomic.Int64
	peak atomic.Int64

	opsVec    *prometheus.CounterVec
	sizeGauge prometheus.Gauge
}

func (c *counters) export(registry *metric.MetricsRegistry, owner string) error {
	labels := prometheus.Labels{"component": owner}
	opsVec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   metric.Namespace,
		Subsystem:   "cache",
		Name:        "operations_total",
		Help:        "Cache operations by kind",
		ConstLabels: labels,
	}, []string{"op"})
	sizeGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   metric.Namespace,
		Subsystem:   "cache",
		Name:        "entries",
		Help:        "Entries currently held",
		ConstLabels: labels,
	})
	if err := registry.RegisterCounterVec(owner, "cache_operations", opsVec); err != nil {
		return err
	}
	if err := registry.RegisterGauge(owner, "cache_entries", sizeGauge); err != nil {
		registry.Unregister(owner, "cache_operations")
		return err
	}
	c.opsVec, c.sizeGauge = opsVec, sizeGauge
	return nil
}

func (c *counters) record(o op) {
	c.ops[o].Add(1)
	if c.opsVec != nil {
		c.opsVec.WithLabelValues(opNames[o]).Inc()
	}
}

// resize is called with the cache locked, so peak needs no CAS.
func (c *counters) resize(n int) {
	c.size.Store(int64(n))
	if int64(n) > c.peak.Load() {
		c.peak.Store(int64(n))
	}
	if c.sizeGauge != nil {
		c.sizeGauge.Set(float64(n))
	}
}

func (c *counters) snapshot() Snapshot {
	s := Snapshot{
		Hits:      c.ops[opHit].Load(),
		Misses:    c.ops[opMiss].Load(),
		Sets:      c.ops[opSet].Load(),
		Deletes:   c.ops[opDelete].Load(),
		Evictions: c.ops[opEvict].Load(),
		Size:      int(c.size.Load()),
		PeakSize:  int(c.peak.Load()),
	}
	if lookups := s.Hits + s.Misses; lookups > 0 {
		s.HitRatio = float64(s.Hits) / float64(lookups)
	}
	return s
}
