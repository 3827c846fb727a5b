package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/webpanel/internal/config"
	apperrors "github.com/zsiec/webpanel/internal/errors"
	"github.com/zsiec/webpanel/pkg/version"
)

type stubChecker struct{ err error }

func (stubChecker) Name() string                      { return "stub" }
func (c stubChecker) Check(ctx context.Context) error { return c.err }

func testConfig() *config.ServerConfig {
	return &config.ServerConfig{
		ListenAddr:      "127.0.0.1",
		Port:            0,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: time.Second,
	}
}

func newTestServer(cfg *config.ServerConfig) (*Server, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return New(cfg, logger), hook
}

func serve(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	s.GetRouter().ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

func TestNew(t *testing.T) {
	cfg := testConfig()
	s, _ := newTestServer(cfg)

	assert.Equal(t, cfg, s.config)
	assert.NotNil(t, s.router)
	assert.NotNil(t, s.HealthManager())
	assert.NotNil(t, s.errorHandler)
	assert.IsType(t, &mux.Router{}, s.GetRouter())
}

func TestHealthRoutes(t *testing.T) {
	s, _ := newTestServer(testConfig())
	s.RegisterChecker(stubChecker{})

	assert.Equal(t, http.StatusOK, serve(t, s, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusOK, serve(t, s, http.MethodGet, "/ready").Code)
	assert.Equal(t, http.StatusOK, serve(t, s, http.MethodGet, "/live").Code)
}

func TestHealthDown(t *testing.T) {
	s, _ := newTestServer(testConfig())
	s.RegisterChecker(stubChecker{err: errors.New("template missing")})

	assert.Equal(t, http.StatusServiceUnavailable, serve(t, s, http.MethodGet, "/health").Code)
}

func TestHandleVersion(t *testing.T) {
	s, _ := newTestServer(testConfig())

	rr := serve(t, s, http.MethodGet, "/version")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var info version.Info
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
	assert.Equal(t, version.Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(testConfig())

	rr := serve(t, s, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, apperrors.ErrorTypeNotFound, body.Error.Type)

	rr = serve(t, s, http.MethodPost, "/version")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestDebugEndpoints(t *testing.T) {
	s, _ := newTestServer(testConfig())
	assert.Equal(t, http.StatusNotFound, serve(t, s, http.MethodGet, "/debug/info").Code)

	cfg := testConfig()
	cfg.DebugEndpoints = true
	cfg.MessageRate = 50
	s, _ = newTestServer(cfg)

	rr := serve(t, s, http.MethodGet, "/debug/info")
	assert.Equal(t, http.StatusOK, rr.Code)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
	assert.Equal(t, true, info["debug_enabled"])
	assert.Equal(t, float64(50), info["message_rate"])

	assert.Equal(t, http.StatusOK, serve(t, s, http.MethodGet, "/debug/pprof/").Code)
}

func TestRegisterRoutes(t *testing.T) {
	s, _ := newTestServer(testConfig())
	s.RegisterRoutes(func(r *mux.Router) {
		r.HandleFunc("/hello/{name}", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "hi "+mux.Vars(r)["name"])
		}).Methods(http.MethodGet)
	})

	rr := serve(t, s, http.MethodGet, "/hello/there")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "hi there", rr.Body.String())
}

func TestServeAndShutdown(t *testing.T) {
	s, _ := newTestServer(testConfig())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/live"
	assert.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}

	_, err = http.Get(url)
	assert.Error(t, err)
}

func TestShutdownBeforeServe(t *testing.T) {
	s, _ := newTestServer(testConfig())
	assert.NoError(t, s.Shutdown())
}

func TestStartListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testConfig()
	cfg.Port = ln.Addr().(*net.TCPAddr).Port
	s, _ := newTestServer(cfg)

	err = s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}
