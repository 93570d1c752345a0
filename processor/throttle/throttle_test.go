package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/bee/component"
	"github.com/c360/bee/config"
	"github.com/c360/bee/errors"
	"github.com/c360/bee/event"
)

func TestProcess_DropMode(t *testing.T) {
	p := NewProcessor(Config{Rate: 0.001, Burst: 2, Mode: ModeDrop}, component.Dependencies{})

	passed := 0
	for i := 0; i < 5; i++ {
		out, err := p.Process(context.Background(), event.New())
		require.NoError(t, err)
		passed += len(out)
	}
	assert.Equal(t, 2, passed)
	assert.Equal(t, int64(3), p.Dropped())
}

func TestProcess_WaitModeSpacesEvents(t *testing.T) {
	p := NewProcessor(Config{Rate: 50, Burst: 1, Mode: ModeWait}, component.Dependencies{})

	start := time.Now()
	for i := 0; i < 4; i++ {
		out, err := p.Process(context.Background(), event.New())
		require.NoError(t, err)
		require.Len(t, out, 1)
	}
	// three waits of 20ms after the first token
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestProcess_WaitModeCancelled(t *testing.T) {
	p := NewProcessor(Config{Rate: 0.001, Burst: 1, Mode: ModeWait}, component.Dependencies{})
	_, err := p.Process(context.Background(), event.New())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Process(ctx, event.New())
	assert.True(t, errors.IsOneOf(err, errors.IOInterrupted), "got %v", err)
}

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		table   config.Table
		want    Config
		wantErr bool
	}{
		{"integer rate", config.Table{"rate": int64(100)}, Config{Rate: 100, Burst: 1, Mode: ModeWait}, false},
		{"all keys", config.Table{"rate": 2.5, "burst": int64(10), "mode": "drop"}, Config{Rate: 2.5, Burst: 10, Mode: ModeDrop}, false},
		{"missing rate", config.Table{}, Config{}, true},
		{"zero rate", config.Table{"rate": 0.0}, Config{}, true},
		{"zero burst", config.Table{"rate": 1.0, "burst": int64(0)}, Config{}, true},
		{"bad mode", config.Table{"rate": 1.0, "mode": "queue"}, Config{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfig(config.New(tt.table))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegister(t *testing.T) {
	r := component.NewRegistry()
	require.NoError(t, Register(r))

	_, err := r.NewProcessor("throttle", config.New(nil), component.Dependencies{})
	assert.Error(t, err)

	p, err := r.NewProcessor("throttle", config.New(config.Table{"rate": 10.0}), component.Dependencies{})
	require.NoError(t, err)
	assert.IsType(t, &Processor{}, p)
}
