// Package panel manages the single full-tab dashboard panel.
package panel

import (
	"context"
	"net/url"
	"time"

	"github.com/zsiec/webpanel/internal/host"
	"github.com/zsiec/webpanel/internal/logger"
	"github.com/zsiec/webpanel/internal/metrics"
	"github.com/zsiec/webpanel/internal/settings"
)

const (
	ViewType = "web-panel.dashboardPanel"
	Title    = "Dashboard Panel"
)

// State describes the panel singleton.
type State int

const (
	StateAbsent State = iota
	StateVisible
	StateHidden
)

func (s State) String() string {
	switch s {
	case StateVisible:
		return "visible"
	case StateHidden:
		return "hidden"
	default:
		return "absent"
	}
}

// Renderer produces webview HTML, falling back to an error page on failure.
type Renderer interface {
	RenderOrPage(cfg settings.ExtensionConfig, webview host.Webview) (string, error)
}

// Bridge wires a webview's messages to the host.
type Bridge interface {
	Attach(ctx context.Context, webview host.Webview) host.Disposable
}

// ConfigResolver reads the current settings.
type ConfigResolver interface {
	Resolve() settings.ExtensionConfig
}

// Manager owns at most one dashboard panel. It is not safe for concurrent
// use; the host calls it from its event loop.
type Manager struct {
	window   host.Window
	roots    []*url.URL
	renderer Renderer
	resolver ConfigResolver
	bridge   Bridge
	logger   logger.Logger

	current *Panel
}

// NewManager creates a Manager. roots are the only directories panels may
// load local files from: the extension root and any the user selected.
func NewManager(window host.Window, roots []*url.URL, renderer Renderer, resolver ConfigResolver, bridge Bridge, log logger.Logger) *Manager {
	return &Manager{
		window:   window,
		roots:    roots,
		renderer: renderer,
		resolver: resolver,
		bridge:   bridge,
		logger:   logger.OrNull(log),
	}
}

// CreateOrShow reveals the existing panel or creates a new one.
func (m *Manager) CreateOrShow(ctx context.Context) error {
	column, hasActive := m.window.ActiveColumn()

	if m.current != nil {
		if !hasActive {
			column = host.ColumnActive
		}
		m.current.panel.Reveal(column)
		metrics.IncrementPanelEvent(metrics.PanelRevealed)
		m.logger.WithField("column", column).Debug("Revealed dashboard panel")
		return nil
	}

	if !hasActive {
		column = host.ColumnOne
	}

	opts := host.WebviewOptions{
		EnableScripts:           true,
		RetainContextWhenHidden: true,
		LocalResourceRoots:      m.roots,
	}

	hp, err := m.window.CreateWebviewPanel(ViewType, Title, column, opts)
	if err != nil {
		m.logger.WithError(err).Error("Failed to create dashboard panel")
		return err
	}

	m.current = newPanel(ctx, m, hp)
	metrics.IncrementPanelEvent(metrics.PanelCreated)
	m.logger.WithField("column", column).Info("Created dashboard panel")
	return nil
}

// Current returns the live panel, or nil.
func (m *Manager) Current() *Panel {
	return m.current
}

// State reports whether a panel exists and is visible.
func (m *Manager) State() State {
	switch {
	case m.current == nil:
		return StateAbsent
	case m.current.panel.Visible():
		return StateVisible
	default:
		return StateHidden
	}
}

// Dispose tears down the current panel, if any.
func (m *Manager) Dispose() {
	if m.current != nil {
		m.current.Dispose()
	}
}

// Panel is one dashboard tab and the listeners registered for it.
type Panel struct {
	manager  *Manager
	panel    host.WebviewPanel
	subs     host.Subscriptions
	cancel   context.CancelFunc
	disposed bool
}

func newPanel(ctx context.Context, m *Manager, hp host.WebviewPanel) *Panel {
	ctx, cancel := context.WithCancel(ctx)
	p := &Panel{manager: m, panel: hp, cancel: cancel}

	p.update()

	p.subs.Add(
		hp.OnDidDispose(p.Dispose),
		hp.OnDidChangeViewState(func(host.ViewStateEvent) {
			if p.panel.Visible() {
				p.update()
				metrics.IncrementPanelEvent(metrics.PanelRerendered)
			}
		}),
	)
	if m.bridge != nil {
		p.subs.Add(m.bridge.Attach(ctx, hp.Webview()))
	}
	return p
}

// HostPanel returns the underlying host panel.
func (p *Panel) HostPanel() host.WebviewPanel {
	return p.panel
}

func (p *Panel) update() {
	m := p.manager
	cfg := settings.Defaults()
	if m.resolver != nil {
		cfg = m.resolver.Resolve()
	}

	start := time.Now()
	html, err := m.renderer.RenderOrPage(cfg, p.panel.Webview())
	metrics.RecordRender("panel", time.Since(start).Seconds(), err)

	p.panel.SetTitle(Title)
	p.panel.Webview().SetHTML(html)
}

// Dispose closes the panel. It runs once; later calls do nothing.
func (p *Panel) Dispose() {
	if p.disposed {
		return
	}
	p.disposed = true

	if p.manager.current == p {
		p.manager.current = nil
	}
	p.cancel()
	p.panel.Dispose()
	p.subs.Dispose()

	metrics.IncrementPanelEvent(metrics.PanelDisposed)
	p.manager.logger.Info("Disposed dashboard panel")
}
