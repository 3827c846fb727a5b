// Package browserhost implements the host services on a local HTTP server
// so the dashboard extension can run in an ordinary browser. Panels and
// sidebar views are browser frames; messages travel over a websocket per
// frame.
package browserhost

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"

	apperrors "github.com/zsiec/webpanel/internal/errors"
	"github.com/zsiec/webpanel/internal/host"
	"github.com/zsiec/webpanel/internal/logger"
)

// Options configures a Host.
type Options struct {
	// Origin is the scheme://host:port the browser reaches the host at.
	Origin string
	// Fs serves local resources. Defaults to the read-only OS filesystem.
	Fs afero.Fs
	// MessageRate and MessageBurst bound inbound messages per frame.
	// A rate of zero disables limiting.
	MessageRate  float64
	MessageBurst int
	// ViewIdleTimeout disposes a resolved view whose frame never connects.
	ViewIdleTimeout time.Duration
	// OpenCommand is the command behind the workbench's open button.
	OpenCommand string
}

// Host is a host.Window and host.Commands backed by browser frames. All
// host objects are owned by its event loop.
type Host struct {
	loop         *Loop
	ctx          context.Context
	opts         Options
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler

	originMu sync.RWMutex
	originV  string

	panels    map[string]*panel
	views     map[string]*view
	providers map[string]host.WebviewViewProvider
	commands  map[string]host.CommandFunc
	shutdown  []func()
}

// New creates a Host. Call Run to start its event loop.
func New(opts Options, log *logrus.Logger) *Host {
	if opts.Fs == nil {
		opts.Fs = afero.NewReadOnlyFs(afero.NewOsFs())
	}
	if opts.ViewIdleTimeout <= 0 {
		opts.ViewIdleTimeout = 30 * time.Second
	}
	l := logger.ForComponent(log, "browserhost")
	return &Host{
		loop:         NewLoop(l),
		ctx:          context.Background(),
		opts:         opts,
		logger:       l,
		errorHandler: apperrors.NewErrorHandler(log),
		originV:      opts.Origin,
		panels:       make(map[string]*panel),
		views:        make(map[string]*view),
		providers:    make(map[string]host.WebviewViewProvider),
		commands:     make(map[string]host.CommandFunc),
	}
}

// SetOrigin changes the origin reported to webviews, for when the listen
// port is only known after binding.
func (h *Host) SetOrigin(origin string) {
	h.originMu.Lock()
	h.originV = origin
	h.originMu.Unlock()
}

func (h *Host) origin() string {
	h.originMu.RLock()
	defer h.originMu.RUnlock()
	return h.originV
}

// Do runs fn on the event loop and waits for it.
func (h *Host) Do(ctx context.Context, fn func()) error {
	return h.loop.Do(ctx, fn)
}

// OnShutdown registers fn to run on the event loop when Run's context is
// done, before frames are disconnected. Handlers run newest first. Call it
// before Run or from the loop.
func (h *Host) OnShutdown(fn func()) {
	h.shutdown = append(h.shutdown, fn)
}

// Run processes host events until ctx is done. Commands and views run
// with ctx.
func (h *Host) Run(ctx context.Context) {
	h.ctx = ctx
	h.loop.Run(ctx, func() {
		for i := len(h.shutdown) - 1; i >= 0; i-- {
			h.shutdown[i]()
		}
		for _, p := range h.panels {
			p.webview.closeConns()
		}
		for _, v := range h.views {
			v.webview.closeConns()
		}
		h.logger.Info("Browser host stopped")
	})
}

func (h *Host) newLimiter() *rate.Limiter {
	if h.opts.MessageRate <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := h.opts.MessageBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(h.opts.MessageRate), burst)
}

// ActiveColumn reports no active editor: the browser host has none.
func (h *Host) ActiveColumn() (host.ViewColumn, bool) {
	return 0, false
}

// CreateWebviewPanel implements host.Window.
func (h *Host) CreateWebviewPanel(viewType, title string, column host.ViewColumn, opts host.WebviewOptions) (host.WebviewPanel, error) {
	if column == host.ColumnActive {
		column = host.ColumnOne
	}
	id := uuid.NewString()
	p := &panel{
		webview:  newWebview(h, KindPanel, id),
		viewType: viewType,
		title:    title,
		column:   column,
		visible:  true,
	}
	p.webview.opts = opts
	h.panels[id] = p

	h.logger.WithFields(map[string]interface{}{
		"panel_id":  id,
		"view_type": viewType,
	}).Info("Panel created")
	return p, nil
}

// RegisterWebviewViewProvider implements host.Window.
func (h *Host) RegisterWebviewViewProvider(viewType string, provider host.WebviewViewProvider) (host.Disposable, error) {
	if _, exists := h.providers[viewType]; exists {
		return nil, fmt.Errorf("provider already registered for %s", viewType)
	}
	h.providers[viewType] = provider
	return host.DisposableFunc(func() { delete(h.providers, viewType) }), nil
}

// RegisterCommand implements host.Commands.
func (h *Host) RegisterCommand(id string, fn host.CommandFunc) (host.Disposable, error) {
	if _, exists := h.commands[id]; exists {
		return nil, fmt.Errorf("command %s already registered", id)
	}
	h.commands[id] = fn
	return host.DisposableFunc(func() { delete(h.commands, id) }), nil
}

// ExecuteCommand implements host.Commands. It must run on the event loop.
func (h *Host) ExecuteCommand(ctx context.Context, id string, args ...any) error {
	fn, ok := h.commands[id]
	if !ok {
		return apperrors.NewNotFoundError("command " + id)
	}
	return fn(ctx, args...)
}

// resolveView materialises a sidebar view through its provider.
func (h *Host) resolveView(viewType string) (*view, error) {
	provider, ok := h.providers[viewType]
	if !ok {
		return nil, apperrors.NewNotFoundError("view " + viewType)
	}

	id := uuid.NewString()
	v := &view{webview: newWebview(h, KindView, id), viewType: viewType, visible: true}
	h.views[id] = v

	if err := provider.ResolveWebviewView(h.ctx, v); err != nil {
		v.dispose()
		return nil, err
	}

	time.AfterFunc(h.opts.ViewIdleTimeout, func() {
		h.loop.Post(func() {
			if !v.connected && !v.disposed {
				h.logger.WithField("view_id", id).Debug("View frame never connected")
				v.dispose()
			}
		})
	})
	return v, nil
}

func (h *Host) lookup(kind, id string) (*webview, bool) {
	switch kind {
	case KindPanel:
		if p, ok := h.panels[id]; ok {
			return p.webview, true
		}
	case KindView:
		if v, ok := h.views[id]; ok {
			return v.webview, true
		}
	}
	return nil, false
}

func (h *Host) panelInfos() []panelInfo {
	infos := make([]panelInfo, 0, len(h.panels))
	for _, p := range h.panels {
		infos = append(infos, p.info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

func (h *Host) viewTypes() []string {
	types := make([]string, 0, len(h.providers))
	for t := range h.providers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
