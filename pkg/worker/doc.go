// Package worker provides the Scheduler that runs every pipeline worker.
//
// One Scheduler exists per process. It wraps an errgroup, so the first
// worker that returns an error cancels the shared context and Wait reports
// that error. Concurrency is bounded per stage rather than globally: each
// stage name carries a worker ceiling (SetLimit, default 1), and Go refuses
// to start a worker beyond it.
//
//	sched := worker.NewScheduler(ctx, worker.WithMetricsRegistry(registry))
//	_ = sched.SetLimit("decoder", 4)
//	n, err := sched.Spawn("decoder", func(ctx context.Context, id int) error {
//	    return decodeLoop(ctx, id)
//	})
//	...
//	sched.Shutdown()
//	err = sched.Wait()
//
// Workers see a context that ends on Shutdown or on the first failure.
// A panicking worker is recovered and reported as an internal error.
package worker
