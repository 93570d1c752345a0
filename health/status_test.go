package health

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/bee/component"
)

func TestFromStage(t *testing.T) {
	tests := []struct {
		name    string
		state   component.State
		err     error
		level   Level
		message string
	}{
		{"running", component.StateRunning, nil, Healthy, "running"},
		{"stopped", component.StateStopped, nil, Healthy, "stopped"},
		{"configured", component.StateConfigured, nil, Degraded, "not started"},
		{"draining", component.StateDraining, nil, Degraded, "draining"},
		{"failed without error", component.StateFailed, nil, Unhealthy, "failed"},
		{"failed with endpoint", component.StateFailed, errors.New("dial wss://node.example/ws?key=abc failed"), Unhealthy, "dial [URL] failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := &Stats{Uptime: time.Second, Failures: 2}
			s := FromStage("decoder", tt.state, tt.err, stats)
			assert.Equal(t, "decoder", s.Name)
			assert.Equal(t, tt.level, s.Level)
			assert.Equal(t, tt.message, s.Message)
			assert.Same(t, stats, s.Stats)
			assert.False(t, s.CheckedAt.IsZero())
		})
	}
}

func TestCombine(t *testing.T) {
	stage := func(name string, l Level) Status { return Status{Name: name, Level: l} }

	tests := []struct {
		name    string
		stages  []Status
		level   Level
		message string
	}{
		{"no stages", nil, Healthy, ""},
		{"all healthy", []Status{stage("source", Healthy), stage("sink", Healthy)}, Healthy, ""},
		{"one degraded", []Status{stage("source", Healthy), stage("decoder", Degraded)}, Degraded, "degraded: decoder"},
		{
			"unhealthy outranks degraded",
			[]Status{stage("source", Degraded), stage("processor", Unhealthy), stage("sink", Unhealthy)},
			Unhealthy, "unhealthy: processor, sink",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Combine("pipeline", tt.stages)
			assert.Equal(t, "pipeline", s.Name)
			assert.Equal(t, tt.level, s.Level)
			assert.Equal(t, tt.message, s.Message)
			assert.Len(t, s.Stages, len(tt.stages))
		})
	}
}

func TestCombine_CopiesStages(t *testing.T) {
	stages := []Status{{Name: "source"}}
	s := Combine("pipeline", stages)
	stages[0].Name = "changed"
	assert.Equal(t, "source", s.Stages[0].Name)
}

func TestStatus_JSON(t *testing.T) {
	s := Combine("pipeline", []Status{
		FromStage("sink", component.StateFailed, errors.New("boom"), &Stats{Failures: 1}),
	})

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"level":"unhealthy"`)
	assert.Contains(t, string(raw), `"failures":1`)

	var back Status
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, Unhealthy, back.Level)
	require.Len(t, back.Stages, 1)
	assert.Equal(t, "boom", back.Stages[0].Message)
	assert.False(t, back.OK())
}
