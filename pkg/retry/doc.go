// Package retry re-runs a failing call with exponential backoff.
//
// The pipeline uses it to restart sources and the http sink to resend
// requests. Callers classify errors through Config.Retryable and observe
// restarts through Config.OnRetry:
//
//	cfg := retry.DefaultConfig()
//	cfg.Retryable = errors.IsTransient
//	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
//	    logger.Warn("Source failed, restarting", "attempt", attempt, "delay", delay, "error", err)
//	}
//	err := retry.Do(ctx, cfg, func() error { return source.Run(ctx, out) })
//
// NonRetryable ends the loop from inside fn regardless of Retryable.
package retry
