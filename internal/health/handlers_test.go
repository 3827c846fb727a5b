package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleHealth(t *testing.T) {
	manager, _ := newTestManager()
	manager.Register(&mockChecker{name: "template"})
	handler := NewHandler(manager)

	rr := httptest.NewRecorder()
	handler.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache, no-store, must-revalidate", rr.Header().Get("Cache-Control"))

	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, StatusOK, resp.Status)
	assert.NotEmpty(t, resp.Version)
	assert.NotEmpty(t, resp.Uptime)
	assert.Contains(t, resp.Checks, "template")
}

func TestHandleHealthStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		want Status
	}{
		{"down", errors.New("boom"), http.StatusServiceUnavailable, StatusDown},
		{"degraded", Degraded(errors.New("slow")), http.StatusOK, StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, _ := newTestManager()
			manager.Register(&mockChecker{name: "c", err: tt.err})

			rr := httptest.NewRecorder()
			NewHandler(manager).HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.code, rr.Code)
			var resp Response
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.Status)
		})
	}
}

func TestHandleReady(t *testing.T) {
	manager, _ := newTestManager()
	handler := NewHandler(manager)

	rr := httptest.NewRecorder()
	handler.HandleReady(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code, "not ready before the first check")

	manager.Register(&mockChecker{name: "ok"})
	manager.RunChecks(context.Background())

	rr = httptest.NewRecorder()
	handler.HandleReady(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `"ok"`, mustField(t, rr.Body.Bytes(), "status"))
}

func TestHandleLive(t *testing.T) {
	manager, _ := newTestManager()

	rr := httptest.NewRecorder()
	NewHandler(manager).HandleLive(rr, httptest.NewRequest(http.MethodGet, "/live", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `"alive"`, mustField(t, rr.Body.Bytes(), "status"))
}

func mustField(t *testing.T, body []byte, key string) string {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &m))
	return string(m[key])
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0 seconds"},
		{time.Second, "1 second"},
		{45 * time.Second, "45 seconds"},
		{time.Minute + 5*time.Second, "1 minute 5 seconds"},
		{2 * time.Hour, "2 hours"},
		{26*time.Hour + 3*time.Minute, "1 day 2 hours 3 minutes"},
		{49 * time.Hour, "2 days 1 hour"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatUptime(tt.d), tt.d.String())
	}
}
