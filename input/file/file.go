// Package file provides a line-oriented file source for the pipeline.
package file

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/c360/bee/component"
	"github.com/c360/bee/config"
	"github.com/c360/bee/errors"
	"github.com/c360/bee/pkg/buffer"
)

var _ component.Source = (*Input)(nil)

// Config holds configuration for the file source
type Config struct {
	Path         string
	Follow       bool          // keep reading appended lines after EOF
	PollInterval time.Duration // fallback wake-up in follow mode
	MaxLineSize  int
}

// DefaultConfig returns the default file source configuration
func DefaultConfig() Config {
	return Config{
		PollInterval: time.Second,
		MaxLineSize:  1 << 20,
	}
}

// ParseConfig reads path (required), follow, poll_interval and
// max_line_size.
func ParseConfig(r config.Resolver) (Config, error) {
	cfg := DefaultConfig()
	var err error

	if cfg.Path, err = config.Get[string](r, "path"); err != nil {
		return cfg, errors.Wrap(err, "file-input", "ParseConfig", "read path")
	}
	if cfg.Path == "" {
		return cfg, errors.New(errors.InvalidPath, "file source path is empty")
	}
	if cfg.Follow, err = config.GetOr(r, "follow", false); err != nil {
		return cfg, errors.Wrap(err, "file-input", "ParseConfig", "read follow")
	}
	if cfg.PollInterval, err = config.GetDurationOr(r, "poll_interval", cfg.PollInterval); err != nil {
		return cfg, errors.Wrap(err, "file-input", "ParseConfig", "read poll_interval")
	}
	if cfg.MaxLineSize, err = config.GetOr(r, "max_line_size", cfg.MaxLineSize); err != nil {
		return cfg, errors.Wrap(err, "file-input", "ParseConfig", "read max_line_size")
	}
	if cfg.PollInterval <= 0 || cfg.MaxLineSize <= 0 {
		return cfg, errors.New(errors.InvalidParam, "poll_interval and max_line_size must be positive")
	}
	return cfg, nil
}

// Input emits every non-empty line of a file as one payload. Each Run call
// reads the file from the start, so the stage should run one worker.
type Input struct {
	config Config
	logger *slog.Logger
}

// NewInput creates a file source
func NewInput(cfg Config, deps component.Dependencies) *Input {
	return &Input{config: cfg, logger: deps.GetLoggerWithComponent("file-input")}
}

// Run reads lines until EOF, or until ctx ends in follow mode.
func (i *Input) Run(ctx context.Context, out *buffer.Sender[[]byte]) error {
	f, err := os.Open(i.config.Path)
	if err != nil {
		return errors.Wrap(err, "file-input", "Run", "open "+i.config.Path)
	}
	defer f.Close()

	var watcher *fsnotify.Watcher
	if i.config.Follow {
		if watcher, err = fsnotify.NewWatcher(); err != nil {
			return errors.WrapAs(errors.OSSystem, err, "file-input", "Run", "create watcher")
		}
		defer watcher.Close()
		if err := watcher.Add(i.config.Path); err != nil {
			return errors.Wrap(err, "file-input", "Run", "watch "+i.config.Path)
		}
	}

	reader := bufio.NewReader(f)
	var partial []byte
	for {
		chunk, readErr := reader.ReadBytes('\n')
		partial = append(partial, chunk...)
		if len(partial) > i.config.MaxLineSize {
			return errors.Newf(errors.IOInvalidData, "line longer than %d bytes in %s", i.config.MaxLineSize, i.config.Path)
		}

		complete := readErr == nil || (readErr == io.EOF && !i.config.Follow)
		if complete && len(partial) > 0 {
			if err := i.emit(ctx, out, partial); err != nil {
				return err
			}
			partial = nil
		}

		switch {
		case readErr == nil:
		case readErr != io.EOF:
			return errors.Wrap(readErr, "file-input", "Run", "read "+i.config.Path)
		case !i.config.Follow:
			return nil
		default:
			if done, err := i.waitForData(ctx, watcher); done || err != nil {
				return err
			}
		}
	}
}

func (i *Input) emit(ctx context.Context, out *buffer.Sender[[]byte], line []byte) error {
	line = bytes.TrimRight(line, "\r\n")
	if len(bytes.TrimSpace(line)) == 0 {
		return nil
	}
	if err := out.Send(ctx, line); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}

// waitForData blocks until the file changes, the poll interval passes or
// ctx ends. done is true when ctx ended.
func (i *Input) waitForData(ctx context.Context, watcher *fsnotify.Watcher) (done bool, err error) {
	timer := time.NewTimer(i.config.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return true, nil
		case <-timer.C:
			return false, nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return true, nil
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				i.logger.Warn("Followed file went away", "path", i.config.Path, "op", ev.Op.String())
				return true, errors.Newf(errors.IONotFound, "followed file %s was %s", i.config.Path, ev.Op)
			}
			if ev.Op&fsnotify.Write != 0 {
				return false, nil
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return true, nil
			}
			return true, errors.WrapAs(errors.OSSystem, werr, "file-input", "Run", "watch "+i.config.Path)
		}
	}
}

// CreateInput is the factory function for the file source
func CreateInput(cfg *config.Config, deps component.Dependencies) (any, error) {
	parsed, err := ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	return NewInput(parsed, deps), nil
}

// Register registers the file source with the registry
func Register(registry *component.Registry) error {
	return registry.Register(component.Registration{
		Name:        "file",
		Kind:        component.KindSource,
		Description: "Emits each non-empty line of a file, optionally following appends",
		Version:     "1.0.0",
		Factory:     CreateInput,
	})
}
