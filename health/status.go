package health

import (
	"strings"
	"time"

	"github.com/c360/bee/component"
)

// Status describes one stage, or the pipeline when Stages is set.
type Status struct {
	Name      string    `json:"name"`
	Level     Level     `json:"level"`
	Message   string    `json:"message,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
	Stats     *Stats    `json:"stats,omitempty"`
	Stages    []Status  `json:"stages,omitempty"`
}

// Stats carries the counters a stage reports alongside its level.
type Stats struct {
	Uptime   time.Duration `json:"uptime"`
	Failures int           `json:"failures"`
}

// OK reports whether the status is Healthy.
func (s Status) OK() bool { return s.Level == Healthy }

var stateLevels = map[component.State]Level{
	component.StateRunning:    Healthy,
	component.StateStopped:    Healthy,
	component.StateConfigured: Degraded,
	component.StateDraining:   Degraded,
}

var stateMessages = map[component.State]string{
	component.StateRunning:    "running",
	component.StateStopped:    "stopped",
	component.StateConfigured: "not started",
	component.StateDraining:   "draining",
}

// FromStage reports a stage in the given state. Any state without a mapping
// counts as failed; the message is then the sanitized lastErr.
func FromStage(name string, state component.State, lastErr error, stats *Stats) Status {
	s := Status{Name: name, CheckedAt: time.Now(), Stats: stats}
	level, ok := stateLevels[state]
	if !ok {
		s.Level = Unhealthy
		s.Message = "failed"
		if lastErr != nil {
			s.Message = Sanitize(lastErr.Error())
		}
		return s
	}
	s.Level = level
	s.Message = stateMessages[state]
	return s
}

// Combine reports name at the worst level among stages. The message lists
// the stages at that level; it is empty when everything is healthy.
func Combine(name string, stages []Status) Status {
	s := Status{
		Name:      name,
		CheckedAt: time.Now(),
		Stages:    append([]Status(nil), stages...),
	}
	for _, st := range stages {
		s.Level = Worst(s.Level, st.Level)
	}
	if s.Level == Healthy {
		return s
	}
	var culprits []string
	for _, st := range stages {
		if st.Level == s.Level {
			culprits = append(culprits, st.Name)
		}
	}
	s.Message = s.Level.String() + ": " + strings.Join(culprits, ", ")
	return s
}
