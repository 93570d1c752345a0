package component

import (
	"context"
	"io"
	"time"
)

// State is the lifecycle state of one pipeline stage.
type State int

const (
	// StateConfigured means the stage was built from configuration but has
	// no running workers.
	StateConfigured State = iota
	// StateRunning means the stage's workers are consuming input.
	StateRunning
	// StateDraining means the stage's input is closed and it is flushing
	// what remains.
	StateDraining
	// StateFailed means a worker of the stage returned a fatal error.
	StateFailed
	// StateStopped means every worker of the stage has returned.
	StateStopped
)

// String returns a string representation of the stage state
func (s State) String() string {
	switch s {
	case StateConfigured:
		return "configured"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateFailed:
		return "failed"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can happen. Failed is
// not terminal: a failed stage still moves to Stopped once its last worker
// has exited.
func (s State) Terminal() bool {
	return s == StateStopped
}

// CanTransition reports whether the state machine allows s -> next.
// Configured -> Running -> (Draining | Failed) -> Stopped; Draining may
// still fail, and a stage that never ran may stop directly.
func (s State) CanTransition(next State) bool {
	switch s {
	case StateConfigured:
		return next == StateRunning || next == StateStopped || next == StateFailed
	case StateRunning:
		return next == StateDraining || next == StateFailed || next == StateStopped
	case StateDraining:
		return next == StateStopped || next == StateFailed
	case StateFailed:
		return next == StateStopped
	}
	return false
}

// LifecycleComponent is anything started with a context and stopped with a
// deadline: the pipeline itself and the metrics server follow it.
type LifecycleComponent interface {
	Start(ctx context.Context) error
	Stop(timeout time.Duration) error
}

// Initializable collaborators are initialized before their stage starts,
// for example to open a connection. No I/O belongs in factories.
type Initializable interface {
	Initialize(ctx context.Context) error
}

// Initialize runs Initialize on c when it implements Initializable.
func Initialize(ctx context.Context, c any) error {
	if i, ok := c.(Initializable); ok {
		return i.Initialize(ctx)
	}
	return nil
}

// Close runs Close on c when it implements io.Closer.
func Close(c any) error {
	if closer, ok := c.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
