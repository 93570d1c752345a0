package buffer

import (
	"github.com/c360/bee/metric"
)

// channelMetrics reports one channel into the core pipeline metrics.
type channelMetrics struct {
	core *metric.Metrics
	name string
}

func newChannelMetrics(registry *metric.MetricsRegistry, name string) *channelMetrics {
	if registry == nil {
		return nil
	}
	return &channelMetrics{core: registry.CoreMetrics(), name: name}
}

func (m *channelMetrics) recordDepth(depth int) {
	if m == nil {
		return
	}
	m.core.RecordChannelDepth(m.name, depth)
}

func (m *channelMetrics) recordDrop() {
	if m == nil {
		return
	}
	m.core.RecordChannelDrop(m.name)
}
