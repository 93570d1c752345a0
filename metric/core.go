package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric bee exports.
const Namespace = "bee"

// Event outcome labels for EventsTotal.
const (
	StatusOK      = "ok"
	StatusDropped = "dropped"
	StatusFailed  = "failed"
)

// Metrics holds the pipeline-level metrics every run exports.
// All Record methods are safe on a nil receiver.
type Metrics struct {
	StageState     *prometheus.GaugeVec
	EventsTotal    *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	ChannelDepth   *prometheus.GaugeVec
	ChannelDrops   *prometheus.CounterVec
	ActiveWorkers  *prometheus.GaugeVec
	SourceRestarts *prometheus.CounterVec

	// NATS sink
	NATSConnected  prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics creates the pipeline metrics without registering them.
func NewMetrics() *Metrics {
	return &Metrics{
		StageState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "stage",
				Name:      "state",
				Help:      "Stage state (0=configured, 1=running, 2=draining, 3=failed, 4=stopped)",
			},
			[]string{"stage"},
		),
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "stage",
				Name:      "events_total",
				Help:      "Items handled per stage by outcome",
			},
			[]string{"stage", "status"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "stage",
				Name:      "duration_seconds",
				Help:      "Per-item processing time of a stage",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		ChannelDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "channel",
				Name:      "depth",
				Help:      "Items buffered between two stages",
			},
			[]string{"channel"},
		),
		ChannelDrops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "channel",
				Name:      "dropped_total",
				Help:      "Items discarded by a drop overflow policy",
			},
			[]string{"channel"},
		),
		ActiveWorkers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "scheduler",
				Name:      "active_workers",
				Help:      "Running workers per stage",
			},
			[]string{"stage"},
		),
		SourceRestarts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "source",
				Name:      "restarts_total",
				Help:      "Source restarts after transient failures",
			},
			[]string{"source"},
		),
		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),
		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),
	}
}

func (c *Metrics) mustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		c.StageState,
		c.EventsTotal,
		c.StageDuration,
		c.ChannelDepth,
		c.ChannelDrops,
		c.ActiveWorkers,
		c.SourceRestarts,
		c.NATSConnected,
		c.NATSReconnects,
	)
}

// RecordStageState sets the numeric state of a stage
func (c *Metrics) RecordStageState(stage string, state int) {
	if c == nil {
		return
	}
	c.StageState.WithLabelValues(stage).Set(float64(state))
}

// RecordEvent counts one item handled by stage with the given status
func (c *Metrics) RecordEvent(stage, status string) {
	if c == nil {
		return
	}
	c.EventsTotal.WithLabelValues(stage, status).Inc()
}

// RecordStageDuration observes the time one item spent in stage
func (c *Metrics) RecordStageDuration(stage string, d time.Duration) {
	if c == nil {
		return
	}
	c.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordChannelDepth sets the buffered item count of a channel
func (c *Metrics) RecordChannelDepth(channel string, depth int) {
	if c == nil {
		return
	}
	c.ChannelDepth.WithLabelValues(channel).Set(float64(depth))
}

// RecordChannelDrop counts one item discarded by an overflow policy
func (c *Metrics) RecordChannelDrop(channel string) {
	if c == nil {
		return
	}
	c.ChannelDrops.WithLabelValues(channel).Inc()
}

// RecordActiveWorkers sets the running worker count of a stage
func (c *Metrics) RecordActiveWorkers(stage string, n int) {
	if c == nil {
		return
	}
	c.ActiveWorkers.WithLabelValues(stage).Set(float64(n))
}

// RecordSourceRestart counts one source restart
func (c *Metrics) RecordSourceRestart(source string) {
	if c == nil {
		return
	}
	c.SourceRestarts.WithLabelValues(source).Inc()
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	if c == nil {
		return
	}
	v := 0.0
	if connected {
		v = 1.0
	}
	c.NATSConnected.Set(v)
}

// RecordNATSReconnect increments reconnection counter
func (c *Metrics) RecordNATSReconnect() {
	if c == nil {
		return
	}
	c.NATSReconnects.Inc()
}
