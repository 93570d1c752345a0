package pipeline

import (
	"context"
	"time"

	"github.com/c360/bee/component"
	"github.com/c360/bee/errors"
	"github.com/c360/bee/event"
	"github.com/c360/bee/metric"
	"github.com/c360/bee/pkg/buffer"
	"github.com/c360/bee/pkg/retry"
)

type stage struct {
	kind      component.Kind
	state     component.State
	remaining int
	failed    bool
	lastErr   error
	history   []component.State
}

// StageState is a snapshot of one stage. History lists every state the
// stage entered, oldest first. Err is the last worker error of a stage that
// failed; it survives the move from Failed to Stopped.
type StageState struct {
	Kind    component.Kind
	State   component.State
	History []component.State
	Err     error
}

// States returns the state of every stage in pipeline order.
func (p *Pipeline) States() []StageState {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]StageState, 0, len(component.Kinds))
	for _, kind := range component.Kinds {
		st := p.stages[kind]
		out = append(out, StageState{
			Kind:    kind,
			State:   st.state,
			History: append([]component.State(nil), st.history...),
			Err:     st.lastErr,
		})
	}
	return out
}

// State returns the current state of one stage.
func (p *Pipeline) State(kind component.Kind) component.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stages[kind].state
}

func (p *Pipeline) transition(kind component.Kind, next component.State) {
	p.mu.Lock()
	st := p.stages[kind]
	prev := st.state
	if !prev.CanTransition(next) {
		p.mu.Unlock()
		return
	}
	st.state = next
	st.history = append(st.history, next)
	p.mu.Unlock()

	p.metrics.RecordStageState(kind.String(), int(next))
	p.logger.Debug("Stage state changed", "stage", kind.String(), "from", prev.String(), "to", next.String())
}

// workerDone runs after each worker returns. A worker error moves the stage
// to Failed at once. When the last worker of a stage exits the stage moves
// to Stopped, failed or not, the next stage starts draining and the stage's
// collaborators are closed.
func (p *Pipeline) workerDone(kind component.Kind, err error) {
	p.mu.Lock()
	st := p.stages[kind]
	st.remaining--
	if err != nil {
		st.failed = true
		st.lastErr = err
	}
	last := st.remaining == 0
	failed := st.failed
	p.mu.Unlock()

	if failed && err != nil {
		p.transition(kind, component.StateFailed)
	}
	if !last {
		return
	}
	p.transition(kind, component.StateStopped)
	if next := int(kind) + 1; next < len(component.Kinds) {
		p.transition(component.Kinds[next], component.StateDraining)
	}
	p.closeCollaborators(kind)
}

// collaborators lists the collaborators of the given stages, or of every
// stage when none are given. Chained processors are listed one by one.
func (p *Pipeline) collaborators(kinds ...component.Kind) []any {
	if len(kinds) == 0 {
		kinds = component.Kinds
	}
	var out []any
	for _, kind := range kinds {
		switch kind {
		case component.KindSource:
			out = append(out, p.source)
		case component.KindDecoder:
			out = append(out, p.decoder)
		case component.KindProcessor:
			if chain, ok := p.processor.(component.Chain); ok {
				for _, proc := range chain {
					out = append(out, proc)
				}
			} else {
				out = append(out, p.processor)
			}
		case component.KindSink:
			out = append(out, p.sink)
		}
	}
	return out
}

func (p *Pipeline) closeCollaborators(kind component.Kind) {
	p.closeEach(p.collaborators(kind), "stage", kind.String())
}

func (p *Pipeline) closeEach(collabs []any, attrs ...any) {
	for _, c := range collabs {
		if err := component.Close(c); err != nil {
			p.logger.Warn("Failed to close collaborator", append(attrs, "error", err)...)
		}
	}
}

func (p *Pipeline) runSource(ctx context.Context, out *buffer.Sender[[]byte]) error {
	defer out.Close()

	cfg := p.settings.SourceRetry.ToRetryConfig()
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		p.logger.Warn("Source failed, restarting",
			"source", p.settings.SourceType, "attempt", attempt, "delay", delay, "error", err)
		p.metrics.RecordSourceRestart(p.settings.SourceType)
	}

	err := retry.Do(ctx, cfg, func() error {
		return p.source.Run(ctx, out)
	})
	if err == nil || ctx.Err() != nil {
		return nil
	}
	return errors.Wrap(err, "Pipeline", "runSource", "run source "+p.settings.SourceType)
}

func (p *Pipeline) runDecoder(ctx context.Context, in *buffer.Channel[[]byte], out *buffer.Sender[event.Event]) error {
	defer out.Close()
	stageName := component.KindDecoder.String()

	for {
		raw, err := in.Recv(ctx)
		if err != nil {
			return endOfStream(err)
		}
		start := time.Now()
		ev, err := p.decoder.Decode(raw)
		p.metrics.RecordStageDuration(stageName, time.Since(start))
		if err != nil {
			p.metrics.RecordEvent(stageName, metric.StatusDropped)
			p.logger.Warn("Dropping undecodable message",
				"decoder", p.settings.DecoderType, "bytes", len(raw), "error", err)
			continue
		}
		if err := out.Send(ctx, ev); err != nil {
			return endOfStream(err)
		}
		p.metrics.RecordEvent(stageName, metric.StatusOK)
	}
}

func (p *Pipeline) runProcessor(ctx context.Context, in *buffer.Channel[event.Event], out *buffer.Sender[event.Event]) error {
	defer out.Close()
	stageName := component.KindProcessor.String()

	for {
		ev, err := in.Recv(ctx)
		if err != nil {
			return endOfStream(err)
		}
		start := time.Now()
		results, err := p.processor.Process(ctx, ev)
		p.metrics.RecordStageDuration(stageName, time.Since(start))
		if err != nil {
			p.metrics.RecordEvent(stageName, metric.StatusDropped)
			p.logger.Warn("Dropping event after processor error", "error", err)
			continue
		}
		if len(results) == 0 {
			p.metrics.RecordEvent(stageName, metric.StatusDropped)
			continue
		}
		for _, r := range results {
			if err := out.Send(ctx, r); err != nil {
				return endOfStream(err)
			}
		}
		p.metrics.RecordEvent(stageName, metric.StatusOK)
	}
}

func (p *Pipeline) runSink(ctx context.Context, in *buffer.Channel[event.Event]) error {
	stageName := component.KindSink.String()

	for {
		ev, err := in.Recv(ctx)
		if err != nil {
			return endOfStream(err)
		}
		start := time.Now()
		err = p.sink.Write(ctx, ev)
		p.metrics.RecordStageDuration(stageName, time.Since(start))
		if err == nil {
			p.metrics.RecordEvent(stageName, metric.StatusOK)
			continue
		}
		p.metrics.RecordEvent(stageName, metric.StatusFailed)
		if errors.IsFatal(err) {
			return errors.Wrap(err, "Pipeline", "runSink", "write to sink "+p.settings.SinkType)
		}
		p.logger.Warn("Sink write failed", "sink", p.settings.SinkType, "error", err)
	}
}

// endOfStream maps the errors that end a worker loop normally to nil.
func endOfStream(err error) error {
	if errors.IsChannel(err) || errors.IsOneOf(err, errors.IOInterrupted) {
		return nil
	}
	return err
}
