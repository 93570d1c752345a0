package component

import (
	"context"
	"strings"

	"github.com/c360/bee/errors"
	"github.com/c360/bee/event"
	"github.com/c360/bee/pkg/buffer"
)

// Kind is the pipeline stage a collaborator plugs into.
type Kind int

const (
	KindSource Kind = iota
	KindDecoder
	KindProcessor
	KindSink
)

// Kinds lists the stages in data-flow order.
var Kinds = []Kind{KindSource, KindDecoder, KindProcessor, KindSink}

// String returns the configuration table name of the stage.
func (k Kind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindDecoder:
		return "decoder"
	case KindProcessor:
		return "processor"
	case KindSink:
		return "sink"
	default:
		return "unknown"
	}
}

// ParseKind reads a stage name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return 0, errors.Newf(errors.InvalidParam, "unknown stage %q", s)
}

// Source produces raw payloads. Run returns nil when its origin is
// exhausted or ctx ends; connection failures are I/O errors. Run may be
// called again after a transient failure.
type Source interface {
	Run(ctx context.Context, out *buffer.Sender[[]byte]) error
}

// Decoder turns one raw payload into an Event. A failure means exactly that
// payload is dropped.
type Decoder interface {
	Decode(raw []byte) (event.Event, error)
}

// Processor maps one Event to zero or more Events.
type Processor interface {
	Process(ctx context.Context, e event.Event) ([]event.Event, error)
}

// Sink consumes Events. Returning means the event has been handled.
type Sink interface {
	Write(ctx context.Context, e event.Event) error
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, out *buffer.Sender[[]byte]) error

func (f SourceFunc) Run(ctx context.Context, out *buffer.Sender[[]byte]) error { return f(ctx, out) }

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(raw []byte) (event.Event, error)

func (f DecoderFunc) Decode(raw []byte) (event.Event, error) { return f(raw) }

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, e event.Event) ([]event.Event, error)

func (f ProcessorFunc) Process(ctx context.Context, e event.Event) ([]event.Event, error) {
	return f(ctx, e)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e event.Event) error

func (f SinkFunc) Write(ctx context.Context, e event.Event) error { return f(ctx, e) }

// Chain applies processors in order. Each output of one processor is fed
// to the next; an error from any of them drops the input event.
type Chain []Processor

// Process implements Processor. An empty chain passes the event through.
func (c Chain) Process(ctx context.Context, e event.Event) ([]event.Event, error) {
	batch := []event.Event{e}
	for _, p := range c {
		next := make([]event.Event, 0, len(batch))
		for _, in := range batch {
			out, err := p.Process(ctx, in)
			if err != nil {
				return nil, err
			}
			next = append(next, out...)
		}
		if len(next) == 0 {
			return nil, nil
		}
		batch = next
	}
	return batch, nil
}
