package worker

import "github.com/c360/bee/errors"

// Sentinel errors for scheduler operations
var (
	// ErrStageFull indicates a stage already runs its maximum number of workers
	ErrStageFull = errors.New(errors.InvalidParam, "stage worker ceiling reached")

	// ErrInvalidLimit indicates a non-positive worker ceiling
	ErrInvalidLimit = errors.New(errors.InvalidParam, "worker ceiling must be positive")

	// ErrSchedulerStopped indicates Spawn was called after Shutdown or after
	// a worker failed
	ErrSchedulerStopped = errors.New(errors.Internal, "scheduler stopped")

	// ErrNilTask indicates a nil task function was provided
	ErrNilTask = errors.New(errors.InvalidParam, "task function cannot be nil")

	// ErrShutdownTimeout indicates workers did not exit within the timeout
	ErrShutdownTimeout = errors.New(errors.IOTimedOut, "timeout waiting for workers to stop")
)
