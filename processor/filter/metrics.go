package filter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/bee/metric"
)

// filterMetrics holds Prometheus metrics for filter evaluations.
type filterMetrics struct {
	messagesTotal      *prometheus.CounterVec // status: matched, rejected
	evaluationDuration prometheus.Histogram
	matchRate          prometheus.Gauge
}

// newFilterMetrics creates and registers filter metrics. A nil registry
// disables them.
func newFilterMetrics(registry *metric.MetricsRegistry) (*filterMetrics, error) {
	if registry == nil {
		return nil, nil
	}

	m := &filterMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "filter",
			Name:      "messages_total",
			Help:      "Total number of events evaluated by the filter",
		}, []string{"status"}),

		evaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metric.Namespace,
			Subsystem: "filter",
			Name:      "evaluation_duration_seconds",
			Help:      "Filter evaluation duration in seconds",
			Buckets:   []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),

		matchRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "filter",
			Name:      "match_rate",
			Help:      "Matched events divided by evaluated events",
		}),
	}

	if err := registry.RegisterCounterVec("filter", "messages_total", m.messagesTotal); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogram("filter", "evaluation_duration", m.evaluationDuration); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge("filter", "match_rate", m.matchRate); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *filterMetrics) recordEvaluation(matched bool, duration time.Duration, matchedTotal, total int64) {
	if m == nil {
		return
	}
	status := "rejected"
	if matched {
		status = "matched"
	}
	m.messagesTotal.WithLabelValues(status).Inc()
	m.evaluationDuration.Observe(duration.Seconds())
	if total > 0 {
		m.matchRate.Set(float64(matchedTotal) / float64(total))
	}
}
