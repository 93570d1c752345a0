package component

import (
	"log/slog"

	"github.com/c360/bee/metric"
)

// Dependencies are handed to every factory next to its configuration
// table. Both fields may be nil.
type Dependencies struct {
	MetricsRegistry *metric.MetricsRegistry
	Logger          *slog.Logger
}

// GetLogger falls back to slog.Default when no logger was provided.
func (d *Dependencies) GetLogger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// GetLoggerWithComponent tags the logger with the component name.
func (d *Dependencies) GetLoggerWithComponent(name string) *slog.Logger {
	return d.GetLogger().With("component", name)
}
