package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/bee/health"
)

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name     string
		status   health.Status
		wantCode int
	}{
		{"healthy", health.Status{Name: "pipeline", Level: health.Healthy}, http.StatusOK},
		{"degraded", health.Status{Name: "pipeline", Level: health.Degraded, Message: "degraded: source"}, http.StatusServiceUnavailable},
		{"unhealthy", health.Status{Name: "pipeline", Level: health.Unhealthy, Message: "unhealthy: sink"}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := healthHandler(func() health.Status { return tt.status })
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body health.Status
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.status.Level, body.Level)
			assert.Equal(t, tt.status.Message, body.Message)
			assert.Equal(t, "pipeline", body.Name)
		})
	}
}
