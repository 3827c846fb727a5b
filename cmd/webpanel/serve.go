package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zsiec/webpanel/internal/bridge"
	"github.com/zsiec/webpanel/internal/browserhost"
	"github.com/zsiec/webpanel/internal/config"
	"github.com/zsiec/webpanel/internal/extension"
	"github.com/zsiec/webpanel/internal/fixture"
	"github.com/zsiec/webpanel/internal/health"
	"github.com/zsiec/webpanel/internal/logger"
	"github.com/zsiec/webpanel/internal/server"
	"github.com/zsiec/webpanel/pkg/version"
)

type serveOptions struct {
	open        bool
	withFixture bool
}

func newServeCmd(configPath *string) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the browser host with the dashboard extension",
		Long: `Run the dashboard extension in a local browser host. The workbench page
shows the sidebar view and opens the dashboard panel on request.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.open, "open", false, "Open the workbench in the system browser")
	cmd.Flags().BoolVar(&opts.withFixture, "with-fixture", false, "Also run the test dashboard server")
	return cmd
}

func serve(ctx context.Context, a *app, opts serveOptions) error {
	ln, err := net.Listen("tcp", a.cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.Server.Addr(), err)
	}
	return serveOn(ctx, a, ln, opts)
}

// serveOn runs the browser host and the activated extension on ln until
// ctx is done.
func serveOn(ctx context.Context, a *app, ln net.Listener, opts serveOptions) error {
	log := a.log
	log.WithField("version", version.GetInfo().Short()).Info("Starting webpanel")

	if a.cfg.Extension.WatchSettings {
		if err := a.store.Watch(); err != nil {
			log.WithError(err).Warn("Settings will not reload automatically")
		}
	}
	origin := originFor(ln.Addr())

	bh := browserhost.New(browserhost.Options{
		Origin:       origin,
		Fs:           afero.NewReadOnlyFs(afero.NewOsFs()),
		MessageRate:  a.cfg.Server.MessageRate,
		MessageBurst: a.cfg.Server.MessageBurst,
		OpenCommand:  extension.CommandOpenDashboard,
	}, log)
	opener := browserhost.NewSystemOpener(logger.ForComponent(log, "opener"))

	srv := server.New(&a.cfg.Server, log)
	srv.RegisterChecker(health.NewTemplateChecker(a.renderer))
	srv.RegisterChecker(health.NewDashboardChecker(
		func() string { return a.resolver.Resolve().URL },
		&http.Client{Timeout: 5 * time.Second},
	))
	srv.RegisterRoutes(bh.RegisterRoutes)
	// The dashboard URL may have moved.
	a.store.OnChange(func() { srv.HealthManager().RunChecks(ctx) })

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		bh.Run(gctx)
		return nil
	})

	var activateErr error
	err := bh.Do(gctx, func() {
		ext, err := extension.Activate(gctx, extension.Deps{
			Window:   bh,
			Commands: bh,
			Roots:    a.roots,
			Renderer: a.renderer,
			Resolver: a.resolver,
			Bridge:   bridge.New(nil, opener, logger.ForComponent(log, "bridge")),
			Logger:   logger.ForComponent(log, "extension"),
		})
		if err != nil {
			activateErr = err
			return
		}
		bh.OnShutdown(ext.Deactivate)
	})
	if err == nil {
		err = activateErr
	}
	if err != nil {
		_ = ln.Close()
		cancel()
		_ = g.Wait()
		return fmt.Errorf("failed to activate extension: %w", err)
	}

	g.Go(func() error { return srv.Serve(gctx, ln) })

	if a.cfg.Metrics.Enabled {
		g.Go(func() error { return serveMetrics(gctx, a.cfg.Metrics, log) })
	}
	if opts.withFixture {
		g.Go(func() error { return fixture.New(a.cfg.Fixture, log).Start(gctx) })
	}

	log.WithField("url", origin).Info("Workbench ready")
	if opts.open {
		target, _ := url.Parse(origin)
		if err := opener.OpenExternal(gctx, target); err != nil {
			log.WithError(err).Warn("Failed to open browser")
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Shutdown complete")
	return nil
}

// originFor returns the browser-facing origin for a listener, using
// localhost when bound to every interface.
func originFor(addr net.Addr) string {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "http://" + addr.String()
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsUnspecified() {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func serveMetrics(ctx context.Context, cfg config.MetricsConfig, log *logrus.Logger) error {
	router := mux.NewRouter()
	router.Handle(cfg.Path, promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.WithField("addr", srv.Addr).Info("Starting metrics server")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
