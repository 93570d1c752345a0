package pipeline

import (
	"time"

	"github.com/c360/bee/component"
	"github.com/c360/bee/health"
)

// Health reports every stage and the pipeline as a whole. A stage that
// failed stays unhealthy after it stopped and carries its last worker error.
func (p *Pipeline) Health() health.Status {
	failures := make(map[string]int)
	for _, s := range p.Stats() {
		failures[s.Stage] = s.Failed
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var uptime time.Duration
	if p.started {
		uptime = time.Since(p.startedAt)
	}
	stages := make([]health.Status, 0, len(component.Kinds))
	for _, kind := range component.Kinds {
		st := p.stages[kind]
		stats := &health.Stats{Uptime: uptime, Failures: failures[kind.String()]}
		state := st.state
		if st.failed {
			state = component.StateFailed
		}
		stages = append(stages, health.FromStage(kind.String(), state, st.lastErr, stats))
	}
	return health.Combine("pipeline", stages)
}
