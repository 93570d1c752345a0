package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/bee/component"
	"github.com/c360/bee/config"
	"github.com/c360/bee/errors"
	"github.com/c360/bee/event"
)

var (
	_ component.Sink          = (*Output)(nil)
	_ component.Initializable = (*Output)(nil)
)

// Output formats
const (
	FormatJSONL = "jsonl"
	FormatJSON  = "json"
)

// Config holds configuration for the file sink
type Config struct {
	Directory     string
	FilePrefix    string
	Format        string
	Append        bool
	BufferSize    int
	FlushInterval time.Duration
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Directory == "" {
		return errors.New(errors.InvalidPath, "file output directory is required")
	}
	if c.Format != FormatJSONL && c.Format != FormatJSON {
		return errors.Newf(errors.InvalidParam, "file output format must be one of: json, jsonl (got %q)", c.Format)
	}
	if c.BufferSize < 0 {
		return errors.New(errors.InvalidParam, "file output buffer_size cannot be negative")
	}
	if c.FlushInterval <= 0 {
		return errors.New(errors.InvalidParam, "file output flush_interval must be positive")
	}
	return nil
}

// DefaultConfig returns default configuration for file output
func DefaultConfig() Config {
	return Config{
		Directory:     ".",
		FilePrefix:    "events",
		Format:        FormatJSONL,
		Append:        true,
		BufferSize:    100,
		FlushInterval: time.Second,
	}
}

// ParseConfig reads directory, file_prefix, format, append, buffer_size and
// flush_interval over the defaults.
func ParseConfig(cfg *config.Config) (Config, error) {
	c := DefaultConfig()
	var err error
	if c.Directory, err = config.GetOr(cfg, "directory", c.Directory); err != nil {
		return c, err
	}
	if c.FilePrefix, err = config.GetOr(cfg, "file_prefix", c.FilePrefix); err != nil {
		return c, err
	}
	if c.Format, err = config.GetOr(cfg, "format", c.Format); err != nil {
		return c, err
	}
	if c.Append, err = config.GetOr(cfg, "append", c.Append); err != nil {
		return c, err
	}
	if c.BufferSize, err = config.GetOr(cfg, "buffer_size", c.BufferSize); err != nil {
		return c, err
	}
	if c.FlushInterval, err = config.GetDurationOr(cfg, "flush_interval", c.FlushInterval); err != nil {
		return c, err
	}
	return c, c.Validate()
}

// Output buffers encoded events and writes them in batches. Batches are
// flushed when BufferSize events are pending, every FlushInterval, and on
// Close.
type Output struct {
	config Config
	logger *slog.Logger

	file   *os.File
	writer *bufio.Writer
	fileMu sync.Mutex

	buffer   [][]byte
	bufferMu sync.Mutex

	shutdown  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	messagesWritten atomic.Int64
	bytesWritten    atomic.Int64
	errors          atomic.Int64
}

// NewOutput creates a file sink. The file is opened by Initialize.
func NewOutput(cfg Config, deps component.Dependencies) *Output {
	return &Output{
		config:   cfg,
		logger:   deps.GetLoggerWithComponent("file_output"),
		buffer:   make([][]byte, 0, cfg.BufferSize),
		shutdown: make(chan struct{}),
	}
}

// Path returns the output file path.
func (f *Output) Path() string {
	return filepath.Join(f.config.Directory, fmt.Sprintf("%s.%s", f.config.FilePrefix, f.config.Format))
}

// Initialize creates the directory, opens the file and starts the flush loop.
func (f *Output) Initialize(_ context.Context) error {
	if err := os.MkdirAll(f.config.Directory, 0o755); err != nil {
		return errors.Wrap(err, "Output", "Initialize", "create output directory")
	}

	flags := os.O_CREATE | os.O_WRONLY
	if f.config.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(f.Path(), flags, 0o644)
	if err != nil {
		return errors.Wrap(err, "Output", "Initialize", "open output file")
	}

	f.fileMu.Lock()
	f.file = file
	f.writer = bufio.NewWriter(file)
	f.fileMu.Unlock()

	f.wg.Add(1)
	go f.flushLoop()

	f.logger.Info("File output started",
		"output_file", f.Path(),
		"format", f.config.Format,
		"append", f.config.Append,
		"buffer_size", f.config.BufferSize)
	return nil
}

// Write implements component.Sink.
func (f *Output) Write(ctx context.Context, e event.Event) error {
	data, err := f.encode(e)
	if err != nil {
		f.errors.Add(1)
		return err
	}

	f.bufferMu.Lock()
	f.buffer = append(f.buffer, data)
	shouldFlush := len(f.buffer) >= f.config.BufferSize
	f.bufferMu.Unlock()

	if shouldFlush {
		if ctx.Err() != nil {
			return nil
		}
		return f.flush()
	}
	return nil
}

func (f *Output) encode(e event.Event) ([]byte, error) {
	var data []byte
	var err error
	if f.config.Format == FormatJSON {
		data, err = json.MarshalIndent(e, "", "  ")
	} else {
		data, err = json.Marshal(e)
	}
	if err != nil {
		return nil, errors.WrapAs(errors.IOInvalidData, err, "Output", "Write", "encode event")
	}
	return append(data, '\n'), nil
}

func (f *Output) flushLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.shutdown:
			return
		case <-ticker.C:
			if err := f.flush(); err != nil {
				f.logger.Warn("Periodic flush failed", "error", err)
			}
		}
	}
}

// flush writes buffered events to the file.
func (f *Output) flush() error {
	f.bufferMu.Lock()
	if len(f.buffer) == 0 {
		f.bufferMu.Unlock()
		return nil
	}
	messages := f.buffer
	f.buffer = make([][]byte, 0, f.config.BufferSize)
	f.bufferMu.Unlock()

	f.fileMu.Lock()
	defer f.fileMu.Unlock()

	if f.writer == nil {
		f.errors.Add(int64(len(messages)))
		f.logger.Error("File handle is nil during flush", "messages_lost", len(messages))
		return errors.New(errors.IONotConnected, "file output is not open")
	}

	for _, msg := range messages {
		n, err := f.writer.Write(msg)
		if err != nil {
			f.errors.Add(1)
			return errors.Wrap(err, "Output", "flush", "write event")
		}
		f.messagesWritten.Add(1)
		f.bytesWritten.Add(int64(n))
	}
	if err := f.writer.Flush(); err != nil {
		return errors.Wrap(err, "Output", "flush", "flush file")
	}

	f.logger.Debug("Flush completed",
		"messages", len(messages),
		"total_written", f.messagesWritten.Load(),
		"total_errors", f.errors.Load())
	return nil
}

// Close stops the flush loop, writes what is pending and closes the file.
func (f *Output) Close() error {
	var err error
	f.closeOnce.Do(func() {
		close(f.shutdown)
		f.wg.Wait()
		err = f.flush()

		f.fileMu.Lock()
		defer f.fileMu.Unlock()
		if f.file != nil {
			if cerr := f.file.Close(); cerr != nil && err == nil {
				err = errors.Wrap(cerr, "Output", "Close", "close output file")
			}
			f.file, f.writer = nil, nil
		}
		f.logger.Info("File output closed",
			"messages_written", f.messagesWritten.Load(),
			"bytes_written", f.bytesWritten.Load())
	})
	return err
}

// Stats returns events written, bytes written and write errors.
func (f *Output) Stats() (messages, bytes, errs int64) {
	return f.messagesWritten.Load(), f.bytesWritten.Load(), f.errors.Load()
}

// CreateOutput is the factory function for the file sink
func CreateOutput(cfg *config.Config, deps component.Dependencies) (any, error) {
	parsed, err := ParseConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "Output", "CreateOutput", "parse config")
	}
	return NewOutput(parsed, deps), nil
}

// Register registers the file sink with the given registry
func Register(registry *component.Registry) error {
	return registry.Register(component.Registration{
		Name:        "file",
		Kind:        component.KindSink,
		Description: "Writes events to disk as JSON lines or indented JSON",
		Version:     "1.0.0",
		Factory:     CreateOutput,
	})
}
