// Package fixture is a stand-in dashboard for local development: one page
// of simulated metrics at /dashboard that any origin may frame.
package fixture

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/zsiec/webpanel/internal/config"
	"github.com/zsiec/webpanel/internal/logger"
)

// DashboardPath is the only route the fixture serves.
const DashboardPath = "/dashboard"

//go:embed dashboard.html
var dashboardPage []byte

// Handler returns the fixture's routes wrapped with permissive framing and
// CORS headers, which apply to every response including 404s.
func Handler(log *logrus.Logger) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc(DashboardPath, handleDashboard)
	router.NotFoundHandler = http.HandlerFunc(handleNotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(handleNotFound)

	return logger.RequestLoggerMiddleware(log)(allowEmbedding(router))
}

func allowEmbedding(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		h.Set("X-Frame-Options", "ALLOWALL")
		next.ServeHTTP(w, r)
	})
}

func handleDashboard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(dashboardPage)
}

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("Not Found"))
}

// Server runs the fixture on its own listener.
type Server struct {
	cfg    config.FixtureConfig
	logger *logrus.Logger
}

// New creates a fixture server.
func New(cfg config.FixtureConfig, log *logrus.Logger) *Server {
	return &Server{cfg: cfg, logger: log}
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           Handler(s.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.WithField("url", fmt.Sprintf("http://%s%s", ln.Addr(), DashboardPath)).
		Info("Test dashboard server running")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("fixture server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
