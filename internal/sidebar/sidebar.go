// Package sidebar fills the dashboard view in the host's side bar.
package sidebar

import (
	"context"
	"net/url"
	"time"

	"github.com/zsiec/webpanel/internal/host"
	"github.com/zsiec/webpanel/internal/logger"
	"github.com/zsiec/webpanel/internal/metrics"
	"github.com/zsiec/webpanel/internal/panel"
	"github.com/zsiec/webpanel/internal/settings"
)

const ViewType = "web-panel.dashboardView"

// Provider renders the dashboard into sidebar views. The host owns each
// view's lifetime; the provider only remembers the latest one.
type Provider struct {
	roots    []*url.URL
	renderer panel.Renderer
	resolver panel.ConfigResolver
	bridge   panel.Bridge
	logger   logger.Logger

	view host.WebviewView
}

// NewProvider creates a Provider. Views may load local files from roots
// only.
func NewProvider(roots []*url.URL, renderer panel.Renderer, resolver panel.ConfigResolver, bridge panel.Bridge, log logger.Logger) *Provider {
	return &Provider{
		roots:    roots,
		renderer: renderer,
		resolver: resolver,
		bridge:   bridge,
		logger:   logger.OrNull(log),
	}
}

// ResolveWebviewView implements host.WebviewViewProvider.
func (p *Provider) ResolveWebviewView(ctx context.Context, view host.WebviewView) error {
	p.view = view

	webview := view.Webview()
	webview.SetOptions(host.WebviewOptions{
		EnableScripts:      true,
		LocalResourceRoots: p.roots,
	})

	cfg := settings.Defaults()
	if p.resolver != nil {
		cfg = p.resolver.Resolve()
	}
	start := time.Now()
	html, err := p.renderer.RenderOrPage(cfg, webview)
	metrics.RecordRender("sidebar", time.Since(start).Seconds(), err)
	webview.SetHTML(html)

	var subs host.Subscriptions
	if p.bridge != nil {
		subs.Add(p.bridge.Attach(ctx, webview))
	}
	var onDispose host.Disposable
	onDispose = view.OnDidDispose(func() {
		if p.view == view {
			p.view = nil
		}
		subs.Dispose()
		onDispose.Dispose()
	})

	p.logger.WithField("view_type", view.ViewType()).Debug("Resolved dashboard view")
	return nil
}

// View returns the most recently resolved view that is still alive.
func (p *Provider) View() host.WebviewView {
	return p.view
}
