package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	beeerrors "github.com/c360/bee/errors"
	"github.com/c360/bee/metric"
)

// DefaultLimit is the worker ceiling of a stage with no explicit limit.
const DefaultLimit = 1

// Task is the body of one worker. A non-nil return is fatal: it cancels the
// scheduler context and is reported by Wait.
type Task func(ctx context.Context, worker int) error

// Scheduler runs every worker of a process in one errgroup. Each stage has
// a fixed ceiling on concurrently running workers; the ceiling is a
// property of the stage, not of the scheduler, so one Scheduler is shared
// by reference by all stages.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	mu       sync.Mutex
	stages   map[string]*stageState
	shutdown bool

	metrics *metric.Metrics
	logger  *slog.Logger
}

type stageState struct {
	limit   int
	active  int
	spawned int
	failed  int
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithMetricsRegistry exports active worker counts through the core metrics
func WithMetricsRegistry(registry *metric.MetricsRegistry) Option {
	return func(s *Scheduler) {
		s.metrics = registry.CoreMetrics()
	}
}

// WithLogger sets the logger used for worker failures
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScheduler creates a scheduler whose workers run under ctx.
func NewScheduler(ctx context.Context, opts ...Option) *Scheduler {
	base, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(base)
	s := &Scheduler{
		ctx:    gctx,
		cancel: cancel,
		group:  group,
		stages: make(map[string]*stageState),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Context is cancelled by Shutdown or by the first failing worker.
func (s *Scheduler) Context() context.Context {
	return s.ctx
}

// SetLimit fixes the worker ceiling of stage. Lowering a ceiling below the
// number of running workers does not stop any of them.
func (s *Scheduler) SetLimit(stage string, n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: stage %s got %d", ErrInvalidLimit, stage, n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage(stage).limit = n
	return nil
}

// Limit returns the worker ceiling of stage.
func (s *Scheduler) Limit(stage string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage(stage).limit
}

func (s *Scheduler) stage(name string) *stageState {
	st, ok := s.stages[name]
	if !ok {
		st = &stageState{limit: DefaultLimit}
		s.stages[name] = st
	}
	return st
}

// Go starts one worker of stage. It fails with ErrStageFull when the stage
// is at its ceiling and with ErrSchedulerStopped after Shutdown.
func (s *Scheduler) Go(stage string, task Task) error {
	if task == nil {
		return ErrNilTask
	}

	s.mu.Lock()
	if s.shutdown || s.ctx.Err() != nil {
		s.mu.Unlock()
		return ErrSchedulerStopped
	}
	st := s.stage(stage)
	if st.active >= st.limit {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s runs %d of %d", ErrStageFull, stage, st.active, st.limit)
	}
	st.active++
	st.spawned++
	id := st.spawned - 1
	active := st.active
	s.mu.Unlock()

	s.metrics.RecordActiveWorkers(stage, active)
	s.group.Go(func() error {
		return s.run(stage, id, task)
	})
	return nil
}

// Spawn starts workers of stage up to its ceiling and returns how many it
// started.
func (s *Scheduler) Spawn(stage string, task Task) (int, error) {
	n := s.Limit(stage)
	for i := 0; i < n; i++ {
		if err := s.Go(stage, task); err != nil {
			if errors.Is(err, ErrStageFull) {
				return i, nil
			}
			return i, err
		}
	}
	return n, nil
}

func (s *Scheduler) run(stage string, id int, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = beeerrors.Newf(beeerrors.Internal, "worker %s/%d panicked: %v", stage, id, r)
		}

		s.mu.Lock()
		st := s.stage(stage)
		st.active--
		if err != nil {
			st.failed++
		}
		active := st.active
		s.mu.Unlock()
		s.metrics.RecordActiveWorkers(stage, active)

		if err != nil {
			s.logger.Error("Worker failed", "stage", stage, "worker", id, "error", err)
		}
	}()
	return task(s.ctx, id)
}

// Shutdown cancels the scheduler context. It is the single coordinated
// cancel for every worker and is idempotent.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()
	s.cancel()
}

// Wait blocks until every worker has returned and reports the first fatal
// error. Cancellation caused by Shutdown is not an error.
func (s *Scheduler) Wait() error {
	err := s.group.Wait()
	s.cancel()

	s.mu.Lock()
	requested := s.shutdown
	s.mu.Unlock()
	if err != nil && requested && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// WaitTimeout is Wait bounded by timeout. On timeout it cancels every
// worker and returns ErrShutdownTimeout; the workers may still be exiting.
func (s *Scheduler) WaitTimeout(timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- s.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		s.Shutdown()
		return ErrShutdownTimeout
	}
}

// StageStats is a snapshot of one stage
type StageStats struct {
	Stage   string `json:"stage"`
	Limit   int    `json:"limit"`
	Active  int    `json:"active"`
	Spawned int    `json:"spawned"`
	Failed  int    `json:"failed"`
}

// Stats returns a snapshot of every known stage, sorted by name
func (s *Scheduler) Stats() []StageStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StageStats, 0, len(s.stages))
	for name, st := range s.stages {
		out = append(out, StageStats{
			Stage:   name,
			Limit:   st.limit,
			Active:  st.active,
			Spawned: st.spawned,
			Failed:  st.failed,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stage < out[j].Stage })
	return out
}
