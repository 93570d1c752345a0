package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360/bee/component"
	"github.com/c360/bee/config"
	"github.com/c360/bee/errors"
	"github.com/c360/bee/event"
	"github.com/c360/bee/metric"
	"github.com/c360/bee/pkg/buffer"
	"github.com/c360/bee/pkg/worker"
)

var _ component.LifecycleComponent = (*Pipeline)(nil)

// Pipeline drives Source -> Decoder -> Processor -> Sink over bounded
// channels. Each stage runs up to <stage>.max_thread workers on one shared
// Scheduler. Collaborators are shared by the workers of their stage and
// must be safe for concurrent use when max_thread > 1.
type Pipeline struct {
	settings Settings
	deps     component.Dependencies
	logger   *slog.Logger
	metrics  *metric.Metrics
	runID    string

	source    component.Source
	decoder   component.Decoder
	processor component.Processor
	sink      component.Sink

	stages map[component.Kind]*stage

	startMu      sync.Mutex
	mu           sync.Mutex
	started      bool
	startedAt    time.Time
	stopping     bool
	sched        *worker.Scheduler
	cancelSource context.CancelFunc
	done         chan struct{}
	err          error
}

// New reads the driver settings from cfg and builds every collaborator
// through registry. Nothing is started.
func New(cfg *config.Config, registry *component.Registry, deps component.Dependencies) (*Pipeline, error) {
	settings, err := LoadSettings(cfg)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	deps.Logger = deps.GetLogger().With("run_id", runID)
	p := &Pipeline{
		settings: settings,
		deps:     deps,
		logger:   deps.GetLoggerWithComponent("pipeline"),
		metrics:  deps.MetricsRegistry.CoreMetrics(),
		runID:    runID,
		stages:   make(map[component.Kind]*stage, len(component.Kinds)),
		done:     make(chan struct{}),
	}
	for _, kind := range component.Kinds {
		p.stages[kind] = &stage{kind: kind, state: component.StateConfigured, history: []component.State{component.StateConfigured}}
		p.metrics.RecordStageState(kind.String(), int(component.StateConfigured))
	}

	if p.source, err = registry.NewSource(settings.SourceType, stageConfig(cfg, "source"), deps); err != nil {
		return nil, err
	}
	if p.decoder, err = registry.NewDecoder(settings.DecoderType, stageConfig(cfg, "decoder"), deps); err != nil {
		return nil, err
	}
	chain := make(component.Chain, 0, len(settings.ProcessorTypes))
	for _, name := range settings.ProcessorTypes {
		proc, err := registry.NewProcessor(name, stageConfig(cfg, "processor."+name), deps)
		if err != nil {
			return nil, err
		}
		chain = append(chain, proc)
	}
	p.processor = chain
	if p.sink, err = registry.NewSink(settings.SinkType, stageConfig(cfg, "sink"), deps); err != nil {
		return nil, err
	}
	return p, nil
}

// stageConfig scopes cfg to a nested table, or to an empty table when the
// key is absent or not a table.
func stageConfig(cfg *config.Config, key string) *config.Config {
	sub, err := cfg.Sub(key)
	if err != nil {
		return config.New(nil)
	}
	return sub
}

// RunID identifies this pipeline instance in logs.
func (p *Pipeline) RunID() string { return p.runID }

// Settings returns the driver settings read at construction.
func (p *Pipeline) Settings() Settings { return p.settings }

// Start initializes the collaborators, creates the channels and spawns every
// stage's workers. It does not block. ctx bounds the whole run: cancelling
// it aborts every stage without draining; use Stop for a graceful end.
func (p *Pipeline) Start(ctx context.Context) (err error) {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if started {
		return errors.New(errors.InvalidParam, "Pipeline.Start: already started")
	}

	// Until workers own them, collaborators initialized so far are closed
	// on any failure.
	collabs := p.collaborators()
	initialized, spawning := 0, false
	defer func() {
		if err != nil && !spawning {
			p.closeEach(collabs[:initialized], "phase", "start")
		}
	}()
	for _, c := range collabs {
		if err := component.Initialize(ctx, c); err != nil {
			return errors.Wrap(err, "Pipeline", "Start", "initialize collaborators")
		}
		initialized++
	}

	raw, err := newChannel[[]byte](p, "raw")
	if err != nil {
		return err
	}
	decoded, err := newChannel[event.Event](p, "decoded")
	if err != nil {
		return err
	}
	processed, err := newChannel[event.Event](p, "processed")
	if err != nil {
		return err
	}

	rawOut, err := raw.Senders(p.workers(component.KindSource))
	if err != nil {
		return err
	}
	decodedOut, err := decoded.Senders(p.workers(component.KindDecoder))
	if err != nil {
		return err
	}
	processedOut, err := processed.Senders(p.workers(component.KindProcessor))
	if err != nil {
		return err
	}

	sched := worker.NewScheduler(ctx,
		worker.WithMetricsRegistry(p.deps.MetricsRegistry),
		worker.WithLogger(p.logger),
	)
	p.mu.Lock()
	for _, kind := range component.Kinds {
		if err := sched.SetLimit(kind.String(), p.workers(kind)); err != nil {
			p.mu.Unlock()
			return err
		}
		p.stages[kind].remaining = p.workers(kind)
	}
	p.mu.Unlock()

	sourceCtx, cancelSource := context.WithCancel(sched.Context())
	p.mu.Lock()
	p.sched = sched
	p.cancelSource = cancelSource
	p.mu.Unlock()

	for _, kind := range component.Kinds {
		p.transition(kind, component.StateRunning)
	}
	spawning = true

	tasks := []struct {
		kind component.Kind
		task worker.Task
	}{
		{component.KindSource, func(_ context.Context, id int) error {
			return p.runSource(sourceCtx, rawOut[id])
		}},
		{component.KindDecoder, func(ctx context.Context, id int) error {
			return p.runDecoder(ctx, raw, decodedOut[id])
		}},
		{component.KindProcessor, func(ctx context.Context, id int) error {
			return p.runProcessor(ctx, decoded, processedOut[id])
		}},
		{component.KindSink, func(ctx context.Context, _ int) error {
			return p.runSink(ctx, processed)
		}},
	}
	for _, t := range tasks {
		kind, task := t.kind, t.task
		// Worker ids index the sender slices: exactly max_thread per stage.
		for i := 0; i < p.workers(kind); i++ {
			if err := sched.Go(kind.String(), func(ctx context.Context, id int) error {
				err := task(ctx, id)
				p.workerDone(kind, err)
				return err
			}); err != nil {
				cancelSource()
				sched.Shutdown()
				return errors.Wrap(err, "Pipeline", "Start", "spawn "+kind.String()+" workers")
			}
		}
	}

	p.mu.Lock()
	p.started = true
	p.startedAt = time.Now()
	p.mu.Unlock()
	go p.monitor()

	p.logger.Info("Pipeline started",
		"source", p.settings.SourceType,
		"decoder", p.settings.DecoderType,
		"processors", p.settings.ProcessorTypes,
		"sink", p.settings.SinkType,
		"buffer_size", p.settings.BufferSize,
		"overflow", p.settings.Overflow.String())
	return nil
}

func newChannel[T any](p *Pipeline, name string) (*buffer.Channel[T], error) {
	return buffer.New[T](p.settings.BufferSize,
		buffer.WithOverflowPolicy[T](p.settings.Overflow),
		buffer.WithMetrics[T](p.deps.MetricsRegistry, name),
	)
}

func (p *Pipeline) workers(kind component.Kind) int {
	if n := p.settings.Workers[kind]; n > 0 {
		return n
	}
	return DefaultMaxThread
}

func (p *Pipeline) monitor() {
	err := p.sched.Wait()
	p.cancelSource()

	p.mu.Lock()
	p.err = err
	p.mu.Unlock()

	for _, kind := range component.Kinds {
		if !p.State(kind).Terminal() {
			p.transition(kind, component.StateStopped)
		}
	}
	if err != nil {
		p.logger.Error("Pipeline failed", "error", err)
	} else {
		p.logger.Info("Pipeline stopped")
	}
	close(p.done)
}

// Stop ends the run gracefully: the source is cancelled, channel closes
// cascade stage by stage, and buffered events drain to the sink. When the
// drain takes longer than timeout every worker is cancelled and an I/O
// timed-out error is returned. Otherwise Stop returns the run's first
// fatal error, if any.
func (p *Pipeline) Stop(timeout time.Duration) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	first := !p.stopping
	p.stopping = true
	p.mu.Unlock()

	if first {
		p.logger.Info("Stopping pipeline", "timeout", timeout)
		p.transition(component.KindSource, component.StateDraining)
		p.cancelSource()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-p.done:
		return p.Err()
	case <-timer.C:
	}

	p.logger.Warn("Drain timed out, shutting down", "timeout", timeout)
	p.sched.Shutdown()
	return errors.Newf(errors.IOTimedOut, "pipeline drain exceeded %s", timeout)
}

// Wait blocks until every worker has exited and returns the first fatal
// error. It returns immediately with nil when the pipeline never started.
func (p *Pipeline) Wait() error {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return nil
	}
	<-p.done
	return p.Err()
}

// Stats returns per-stage worker counts, or nil before Start.
func (p *Pipeline) Stats() []worker.StageStats {
	p.mu.Lock()
	sched := p.sched
	p.mu.Unlock()
	if sched == nil {
		return nil
	}
	return sched.Stats()
}

// Done is closed once every worker has exited.
func (p *Pipeline) Done() <-chan struct{} { return p.done }

// Err returns the first fatal error of a finished run.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Run starts the pipeline and blocks until it finishes on its own or ctx
// ends, in which case it stops gracefully within stopTimeout.
func (p *Pipeline) Run(ctx context.Context, stopTimeout time.Duration) error {
	if err := p.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	select {
	case <-p.done:
		return p.Err()
	case <-ctx.Done():
		return p.Stop(stopTimeout)
	}
}
