package metric

import (
	stderrors "errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/c360/bee/errors"
)

// MetricsRegistrar is the registration surface handed to components that
// export their own metrics (channels, the scheduler, sinks).
type MetricsRegistrar interface {
	RegisterCounter(owner, name string, counter prometheus.Counter) error
	RegisterGauge(owner, name string, gauge prometheus.Gauge) error
	RegisterCounterVec(owner, name string, counterVec *prometheus.CounterVec) error
	RegisterGaugeVec(owner, name string, gaugeVec *prometheus.GaugeVec) error
	RegisterHistogram(owner, name string, histogram prometheus.Histogram) error
	RegisterHistogramVec(owner, name string, histogramVec *prometheus.HistogramVec) error
	Unregister(owner, name string) bool
}

// MetricsRegistry owns the Prometheus registry of one process: the core
// pipeline metrics, Go and process collectors, and whatever components add.
type MetricsRegistry struct {
	prometheusRegistry *prometheus.Registry
	Metrics            *Metrics
	registeredMetrics  map[string]prometheus.Collector
	mu                 sync.RWMutex
}

// NewMetricsRegistry creates a registry with the core pipeline metrics
// registered.
func NewMetricsRegistry() *MetricsRegistry {
	r := &MetricsRegistry{
		prometheusRegistry: prometheus.NewRegistry(),
		registeredMetrics:  make(map[string]prometheus.Collector),
		Metrics:            NewMetrics(),
	}
	r.Metrics.mustRegister(r.prometheusRegistry)
	r.prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// PrometheusRegistry returns the underlying Prometheus registry
func (r *MetricsRegistry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// CoreMetrics returns the core pipeline metrics. It is nil-safe: a nil
// registry yields nil metrics, whose Record methods do nothing.
func (r *MetricsRegistry) CoreMetrics() *Metrics {
	if r == nil {
		return nil
	}
	return r.Metrics
}

// RegisterCounter registers a counter under owner.name
func (r *MetricsRegistry) RegisterCounter(owner, name string, counter prometheus.Counter) error {
	return r.register("RegisterCounter", owner, name, counter)
}

// RegisterGauge registers a gauge under owner.name
func (r *MetricsRegistry) RegisterGauge(owner, name string, gauge prometheus.Gauge) error {
	return r.register("RegisterGauge", owner, name, gauge)
}

// RegisterCounterVec registers a counter vector under owner.name
func (r *MetricsRegistry) RegisterCounterVec(owner, name string, counterVec *prometheus.CounterVec) error {
	return r.register("RegisterCounterVec", owner, name, counterVec)
}

// RegisterGaugeVec registers a gauge vector under owner.name
func (r *MetricsRegistry) RegisterGaugeVec(owner, name string, gaugeVec *prometheus.GaugeVec) error {
	return r.register("RegisterGaugeVec", owner, name, gaugeVec)
}

// RegisterHistogram registers a histogram under owner.name
func (r *MetricsRegistry) RegisterHistogram(owner, name string, histogram prometheus.Histogram) error {
	return r.register("RegisterHistogram", owner, name, histogram)
}

// RegisterHistogramVec registers a histogram vector under owner.name
func (r *MetricsRegistry) RegisterHistogramVec(owner, name string, histogramVec *prometheus.HistogramVec) error {
	return r.register("RegisterHistogramVec", owner, name, histogramVec)
}

func (r *MetricsRegistry) register(method, owner, name string, c prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := owner + "." + name
	if _, exists := r.registeredMetrics[key]; exists {
		return errors.Newf(errors.InvalidParam, "MetricsRegistry.%s: metric %s already registered for %s", method, name, owner)
	}

	if err := r.prometheusRegistry.Register(c); err != nil {
		var alreadyRegErr prometheus.AlreadyRegisteredError
		if stderrors.As(err, &alreadyRegErr) {
			return errors.WrapAs(errors.InvalidParam, err, "MetricsRegistry", method, "register "+key)
		}
		return errors.WrapAs(errors.Internal, err, "MetricsRegistry", method, "register "+key)
	}

	r.registeredMetrics[key] = c
	return nil
}

// Unregister removes owner.name from the registry
func (r *MetricsRegistry) Unregister(owner, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := owner + "." + name
	c, exists := r.registeredMetrics[key]
	if !exists {
		return false
	}
	if !r.prometheusRegistry.Unregister(c) {
		return false
	}
	delete(r.registeredMetrics, key)
	return true
}
