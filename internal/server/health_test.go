package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probe(t *testing.T, h *HealthChecker, path string) (int, map[string]any) {
	t.Helper()
	mux := http.NewServeMux()
	h.RegisterHealthEndpoints(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestLiveness(t *testing.T) {
	h := NewHealthChecker()
	h.SetReady(false)
	h.MarkShuttingDown()

	code, body := probe(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(h *HealthChecker)
		wantStatus int
		wantChecks map[string]any
	}{
		{
			name:       "ready",
			setup:      func(*HealthChecker) {},
			wantStatus: http.StatusOK,
			wantChecks: map[string]any{"ready": "ok", "shutdown": "ok"},
		},
		{
			name:       "not ready",
			setup:      func(h *HealthChecker) { h.SetReady(false) },
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]any{"ready": "not ready", "shutdown": "ok"},
		},
		{
			name:       "shutting down",
			setup:      func(h *HealthChecker) { h.MarkShuttingDown() },
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]any{"ready": "ok", "shutdown": "shutting down"},
		},
		{
			name: "failing dependency",
			setup: func(h *HealthChecker) {
				h.AddCheck("google_token", func(context.Context) error { return errors.New("no token stored") })
				h.AddCheck("redis", func(context.Context) error { return nil })
			},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]any{"ready": "ok", "shutdown": "ok", "google_token": "no token stored", "redis": "ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthChecker()
			tt.setup(h)

			code, body := probe(t, h, "/readyz")
			assert.Equal(t, tt.wantStatus, code)
			assert.Equal(t, tt.wantChecks, body["checks"])
		})
	}
}

func TestDetailedHealth(t *testing.T) {
	h := NewHealthChecker()
	code, body := probe(t, h, "/healthz/detailed")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["uptime"])

	h.MarkShuttingDown()
	code, body = probe(t, h, "/healthz/detailed")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "shutting down", body["status"])
}
