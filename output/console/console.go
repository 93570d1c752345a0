// Package console provides a sink that prints events to standard output.
package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/c360/bee/component"
	"github.com/c360/bee/config"
	"github.com/c360/bee/errors"
	"github.com/c360/bee/event"
	"github.com/c360/bee/value"
)

var _ component.Sink = (*Sink)(nil)

// Output formats
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Sink writes one line per event. Lines from concurrent workers never
// interleave.
type Sink struct {
	mu      sync.Mutex
	out     io.Writer
	format  string
	written int64
}

// New creates a console sink writing to out in format.
func New(out io.Writer, format string) (*Sink, error) {
	if format != FormatJSON && format != FormatText {
		return nil, errors.Newf(errors.InvalidParam, "console format must be json or text, got %q", format)
	}
	return &Sink{out: out, format: format}, nil
}

// Write implements component.Sink.
func (s *Sink) Write(_ context.Context, e event.Event) error {
	var line []byte
	if s.format == FormatText {
		line = []byte(text(e))
	} else {
		data, err := json.Marshal(e)
		if err != nil {
			return errors.WrapAs(errors.IOInvalidData, err, "console", "Write", "encode event")
		}
		line = data
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.out.Write(line); err != nil {
		return errors.Wrap(err, "console", "Write", "write line")
	}
	s.written++
	return nil
}

// Written returns the number of events printed.
func (s *Sink) Written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// text renders "field=value" pairs in field order, quoting strings.
func text(e event.Event) string {
	var b strings.Builder
	for i, field := range e.Fields() {
		if i > 0 {
			b.WriteByte(' ')
		}
		v := e[field]
		if s, ok := v.(value.String); ok {
			fmt.Fprintf(&b, "%s=%q", field, string(s))
			continue
		}
		fmt.Fprintf(&b, "%s=%s", field, v)
	}
	return b.String()
}

// CreateSink is the factory function for the console sink
func CreateSink(cfg *config.Config, _ component.Dependencies) (any, error) {
	format, err := config.GetOr(cfg, "format", FormatJSON)
	if err != nil {
		return nil, err
	}
	stream, err := config.GetOr(cfg, "stream", "stdout")
	if err != nil {
		return nil, err
	}
	var out io.Writer
	switch stream {
	case "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		return nil, errors.Newf(errors.InvalidParam, "console stream must be stdout or stderr, got %q", stream)
	}
	return New(out, format)
}

// Register registers the console sink with the registry
func Register(registry *component.Registry) error {
	return registry.Register(component.Registration{
		Name:        "console",
		Kind:        component.KindSink,
		Description: "Prints each event as a JSON or key=value line",
		Version:     "1.0.0",
		Factory:     CreateSink,
	})
}
