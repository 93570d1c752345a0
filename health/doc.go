// Package health reports the health of pipeline stages.
//
// Every stage maps to a Level through FromStage: running and stopped stages
// are Healthy, configured and draining ones Degraded, failed ones Unhealthy.
// Combine folds the stages into a pipeline status at the worst level found:
//
//	status := health.Combine("pipeline", stages)
//	if !status.OK() {
//	    w.WriteHeader(http.StatusServiceUnavailable)
//	}
//
// Failure messages pass through Sanitize before they are attached, since the
// status is served to probes.
package health
