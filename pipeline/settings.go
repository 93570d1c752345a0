package pipeline

import (
	"time"

	"github.com/c360/bee/component"
	"github.com/c360/bee/config"
	"github.com/c360/bee/errors"
	"github.com/c360/bee/pkg/buffer"
)

// Settings is the driver's own configuration, read once at start-up.
type Settings struct {
	BufferSize     int
	Overflow       buffer.OverflowPolicy
	Workers        map[component.Kind]int
	SourceType     string
	DecoderType    string
	ProcessorTypes []string
	SinkType       string
	SourceRetry    errors.RetryConfig
}

// Defaults for optional keys.
const (
	DefaultMaxThread          = 1
	DefaultSourceMaxAttempts  = 3
	DefaultSourceInitialDelay = 100 * time.Millisecond
	DefaultSourceMaxDelay     = 5 * time.Second
)

// LoadSettings reads the driver keys:
//
//	buffer_size                  required, > 0
//	source.type                  required
//	decoder.type                 required
//	sink.type                    required
//	processor.type               optional, string or list
//	<stage>.max_thread           optional, > 0, default 1
//	channel.overflow             optional: block, drop_newest, drop_oldest
//	source.retry.max_attempts    optional, total attempts, default 3
//	source.retry.initial_delay_ms
//	source.retry.max_delay_ms
//
// A missing required key is an invalid-index error naming the key; a
// mistyped one is invalid-type.
func LoadSettings(cfg config.Resolver) (Settings, error) {
	var s Settings
	var err error

	if s.BufferSize, err = config.Get[int](cfg, "buffer_size"); err != nil {
		return s, errors.Wrap(err, "Pipeline", "LoadSettings", "read buffer_size")
	}
	if s.BufferSize <= 0 {
		return s, errors.Newf(errors.InvalidParam, "buffer_size must be positive, got %d", s.BufferSize)
	}

	for _, key := range []struct {
		dst  *string
		name string
	}{
		{&s.SourceType, "source.type"},
		{&s.DecoderType, "decoder.type"},
		{&s.SinkType, "sink.type"},
	} {
		if *key.dst, err = requireName(cfg, key.name); err != nil {
			return s, err
		}
	}

	s.ProcessorTypes, err = config.GetStrings(cfg, "processor.type")
	if errors.IsOneOf(err, errors.InvalidIndex) {
		s.ProcessorTypes, err = nil, nil
	}
	if err != nil {
		return s, errors.Wrap(err, "Pipeline", "LoadSettings", "read processor.type")
	}

	s.Workers = make(map[component.Kind]int, len(component.Kinds))
	for _, kind := range component.Kinds {
		key := kind.String() + ".max_thread"
		n, err := config.GetOr(cfg, key, DefaultMaxThread)
		if err != nil {
			return s, errors.Wrap(err, "Pipeline", "LoadSettings", "read "+key)
		}
		if n <= 0 {
			return s, errors.Newf(errors.InvalidParam, "%s must be positive, got %d", key, n)
		}
		s.Workers[kind] = n
	}

	overflow, err := config.GetOr(cfg, "channel.overflow", "block")
	if err != nil {
		return s, errors.Wrap(err, "Pipeline", "LoadSettings", "read channel.overflow")
	}
	if s.Overflow, err = buffer.ParseOverflowPolicy(overflow); err != nil {
		return s, err
	}

	if s.SourceRetry, err = loadRetry(cfg); err != nil {
		return s, err
	}
	return s, nil
}

func requireName(cfg config.Resolver, key string) (string, error) {
	v, err := cfg.Lookup(key)
	if err != nil {
		return "", errors.Wrap(err, "Pipeline", "LoadSettings", "read "+key)
	}
	name := v.String()
	if err := component.ValidateComponentName(name); err != nil {
		return "", errors.WrapAs(errors.InvalidType, err, "Pipeline", "LoadSettings", "read "+key)
	}
	return name, nil
}

func loadRetry(cfg config.Resolver) (errors.RetryConfig, error) {
	rc := errors.DefaultRetryConfig()

	attempts, err := config.GetOr(cfg, "source.retry.max_attempts", DefaultSourceMaxAttempts)
	if err != nil {
		return rc, errors.Wrap(err, "Pipeline", "LoadSettings", "read source.retry.max_attempts")
	}
	if attempts < 1 {
		return rc, errors.Newf(errors.InvalidParam, "source.retry.max_attempts must be at least 1, got %d", attempts)
	}
	rc.MaxRetries = attempts - 1

	initial, err := config.GetOr(cfg, "source.retry.initial_delay_ms", int64(DefaultSourceInitialDelay/time.Millisecond))
	if err != nil {
		return rc, errors.Wrap(err, "Pipeline", "LoadSettings", "read source.retry.initial_delay_ms")
	}
	maxDelay, err := config.GetOr(cfg, "source.retry.max_delay_ms", int64(DefaultSourceMaxDelay/time.Millisecond))
	if err != nil {
		return rc, errors.Wrap(err, "Pipeline", "LoadSettings", "read source.retry.max_delay_ms")
	}
	if initial <= 0 || maxDelay < initial {
		return rc, errors.Newf(errors.InvalidParam, "source.retry delays must satisfy 0 < initial_delay_ms <= max_delay_ms, got %d and %d", initial, maxDelay)
	}
	rc.InitialDelay = time.Duration(initial) * time.Millisecond
	rc.MaxDelay = time.Duration(maxDelay) * time.Millisecond
	return rc, nil
}
