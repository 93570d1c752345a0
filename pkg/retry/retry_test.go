package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func quick(attempts int) Config {
	return Config{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

// failing returns fn failing the first n calls and a pointer to the call count.
func failing(n int) (func() error, *int) {
	calls := 0
	return func() error {
		calls++
		if calls <= n {
			return errFlaky
		}
		return nil
	}, &calls
}

func TestDo_Outcomes(t *testing.T) {
	tests := []struct {
		name      string
		attempts  int
		failures  int
		wantCalls int
		wantErr   string
	}{
		{"first call succeeds", 3, 0, 1, ""},
		{"succeeds on last attempt", 3, 2, 3, ""},
		{"attempts spent", 3, 10, 3, "retry failed after 3 attempts"},
		{"zero attempts means one call", 0, 10, 1, "retry failed after 1 attempts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, calls := failing(tt.failures)
			err := Do(context.Background(), quick(tt.attempts), fn)
			assert.Equal(t, tt.wantCalls, *calls)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.ErrorIs(t, err, errFlaky)
		})
	}
}

func TestDo_StopsOnRejectedErrors(t *testing.T) {
	fatal := errors.New("fatal")

	t.Run("non-retryable mark", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), quick(5), func() error {
			calls++
			return NonRetryable(fatal)
		})
		assert.True(t, IsNonRetryable(err))
		assert.ErrorIs(t, err, fatal)
		assert.Equal(t, 1, calls)
	})

	t.Run("predicate", func(t *testing.T) {
		cfg := quick(5)
		cfg.Retryable = func(err error) bool { return !errors.Is(err, fatal) }
		calls := 0
		err := Do(context.Background(), cfg, func() error {
			calls++
			if calls == 2 {
				return fatal
			}
			return errFlaky
		})
		assert.Equal(t, fatal, err)
		assert.Equal(t, 2, calls)
	})
}

func TestDo_CancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	cfg := Config{MaxAttempts: 5, InitialDelay: time.Second, MaxDelay: time.Second}
	fn, calls := failing(10)
	err := Do(ctx, cfg, fn)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, *calls)
}

func TestDo_OnRetry(t *testing.T) {
	cfg := quick(4)
	var attempts []int
	var delays []time.Duration
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		assert.ErrorIs(t, err, errFlaky)
		attempts = append(attempts, attempt)
		delays = append(delays, delay)
	}

	fn, _ := failing(10)
	_ = Do(context.Background(), cfg, fn)

	assert.Equal(t, []int{1, 2, 3}, attempts)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond}, delays)
}

func TestDo_RejectsBadConfig(t *testing.T) {
	for name, cfg := range map[string]Config{
		"negative delay":    {InitialDelay: -time.Second},
		"negative factor":   {Multiplier: -1},
		"max below initial": {InitialDelay: time.Second, MaxDelay: time.Millisecond},
	} {
		t.Run(name, func(t *testing.T) {
			err := Do(context.Background(), cfg, func() error {
				t.Fatal("fn must not run")
				return nil
			})
			assert.Error(t, err)
		})
	}
}

func TestConfig_Delay(t *testing.T) {
	cfg := Config{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 3}
	want := []time.Duration{100 * time.Millisecond, 300 * time.Millisecond, 900 * time.Millisecond, time.Second, time.Second}
	for i, d := range want {
		assert.Equal(t, d, cfg.Delay(i+1), "attempt %d", i+1)
	}
}

func TestConfig_JitterBounds(t *testing.T) {
	cfg := DefaultConfig()
	for i := 0; i < 100; i++ {
		d := cfg.jitter(100 * time.Millisecond)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.Less(t, d, 125*time.Millisecond)
	}
	cfg.AddJitter = false
	assert.Equal(t, time.Second, cfg.jitter(time.Second))
}
