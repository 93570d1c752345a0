// Package metric provides Prometheus metrics for the pipeline and an HTTP
// server that exposes them.
//
// A MetricsRegistry wraps a private prometheus.Registry. It registers the
// core pipeline metrics (Metrics), the Go and process collectors, and any
// collectors components add through the MetricsRegistrar methods. Keys are
// "owner.name"; registering the same key twice is an invalid-param error.
//
//	registry := metric.NewMetricsRegistry()
//	registry.CoreMetrics().RecordEvent("decoder", metric.StatusOK)
//
//	srv := metric.NewServer(":9090", "/metrics", registry)
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Stop(5 * time.Second)
//
// Components take a possibly nil *MetricsRegistry. CoreMetrics on a nil
// registry returns nil, and every Record method on a nil *Metrics is a
// no-op, so callers never branch on whether metrics are enabled.
package metric
