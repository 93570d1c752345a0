package main

import (
	"encoding/json"
	"net/http"

	"github.com/c360/bee/health"
)

// healthHandler answers probes with the pipeline status as JSON. Anything
// but healthy is served with 503.
func healthHandler(report func() health.Status) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		status := report()
		w.Header().Set("Content-Type", "application/json")
		if !status.OK() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(status)
	})
}
