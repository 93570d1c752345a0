package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	defaultInitialDelay = 100 * time.Millisecond
	defaultMaxDelay     = 5 * time.Second
	defaultMultiplier   = 2.0
	maxMultiplier       = 1000
)

// Config controls Do. Zero delays and multiplier fall back to the defaults.
type Config struct {
	// MaxAttempts counts the first call; below 1 means a single call.
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// AddJitter stretches each sleep by up to a quarter.
	AddJitter bool

	// Retryable decides whether an error may be retried. Nil retries every
	// error not marked NonRetryable.
	Retryable func(error) bool
	// OnRetry sees each failed attempt and the sleep that follows it.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig is three attempts starting at 100ms, doubling up to 5s,
// with jitter.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: defaultInitialDelay,
		MaxDelay:     defaultMaxDelay,
		Multiplier:   defaultMultiplier,
		AddJitter:    true,
	}
}

func (cfg Config) withDefaults() (Config, error) {
	switch {
	case cfg.InitialDelay < 0, cfg.MaxDelay < 0:
		return cfg, errors.New("retry: delays cannot be negative")
	case cfg.Multiplier < 0:
		return cfg, errors.New("retry: multiplier cannot be negative")
	}
	cfg.MaxAttempts = max(cfg.MaxAttempts, 1)
	cfg.Multiplier = min(cfg.Multiplier, maxMultiplier)
	if cfg.InitialDelay == 0 {
		cfg.InitialDelay = defaultInitialDelay
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	if cfg.Multiplier == 0 {
		cfg.Multiplier = defaultMultiplier
	}
	if cfg.MaxDelay < cfg.InitialDelay {
		return cfg, fmt.Errorf("retry: max delay %s below initial delay %s", cfg.MaxDelay, cfg.InitialDelay)
	}
	return cfg, nil
}

// Delay returns the un-jittered sleep after the given failed attempt
// (1-based), capped at MaxDelay.
func (cfg Config) Delay(attempt int) time.Duration {
	d := cfg.InitialDelay
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * cfg.Multiplier)
		if d >= cfg.MaxDelay {
			return cfg.MaxDelay
		}
	}
	return min(d, cfg.MaxDelay)
}

func (cfg Config) jitter(d time.Duration) time.Duration {
	if !cfg.AddJitter || d < 4 {
		return d
	}
	return d + rand.N(d/4)
}

func (cfg Config) stops(err error) bool {
	if IsNonRetryable(err) {
		return true
	}
	return cfg.Retryable != nil && !cfg.Retryable(err)
}

// Do calls fn until it returns nil, the error is not retryable, the attempts
// are spent or ctx ends. The last error is wrapped so errors.Is still sees
// it.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return err
	}

	for attempt := 1; ; attempt++ {
		err := fn()
		switch {
		case err == nil:
			return nil
		case cfg.stops(err):
			return err
		case ctx.Err() != nil:
			return fmt.Errorf("retry cancelled after attempt %d: %w", attempt, ctx.Err())
		case attempt >= cfg.MaxAttempts:
			return fmt.Errorf("retry failed after %d attempts: %w", attempt, err)
		}

		sleep := cfg.jitter(cfg.Delay(attempt))
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, sleep)
		}
		if err := wait(ctx, sleep); err != nil {
			return fmt.Errorf("retry cancelled while waiting for attempt %d: %w", attempt+1, err)
		}
	}
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
