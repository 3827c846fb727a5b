// Package extension wires the dashboard into a host: the sidebar provider
// and the open-dashboard command.
package extension

import (
	"context"
	"fmt"
	"net/url"

	"github.com/zsiec/webpanel/internal/host"
	"github.com/zsiec/webpanel/internal/logger"
	"github.com/zsiec/webpanel/internal/panel"
	"github.com/zsiec/webpanel/internal/sidebar"
)

// CommandOpenDashboard opens or reveals the dashboard panel.
const CommandOpenDashboard = "web-panel.openDashboard"

// Deps are the services Activate needs from the host and the process.
type Deps struct {
	Window   host.Window
	Commands host.Commands
	// Roots bound the local files webviews may load: the extension root
	// and directories the user selected.
	Roots    []*url.URL
	Renderer panel.Renderer
	Resolver panel.ConfigResolver
	Bridge   panel.Bridge
	Logger   logger.Logger
}

// Extension is an activated instance.
type Extension struct {
	Panels  *panel.Manager
	Sidebar *sidebar.Provider

	subs   host.Subscriptions
	logger logger.Logger
}

// Activate registers the sidebar view provider and the open-dashboard
// command. On error everything registered so far is released.
func Activate(ctx context.Context, deps Deps) (*Extension, error) {
	if deps.Window == nil || deps.Commands == nil || deps.Renderer == nil {
		return nil, fmt.Errorf("activate: window, commands and renderer are required")
	}

	log := logger.OrNull(deps.Logger)
	ext := &Extension{
		Panels:  panel.NewManager(deps.Window, deps.Roots, deps.Renderer, deps.Resolver, deps.Bridge, log.WithField("component", "panel")),
		Sidebar: sidebar.NewProvider(deps.Roots, deps.Renderer, deps.Resolver, deps.Bridge, log.WithField("component", "sidebar")),
		logger:  log,
	}

	reg, err := deps.Window.RegisterWebviewViewProvider(sidebar.ViewType, ext.Sidebar)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", sidebar.ViewType, err)
	}
	ext.subs.Add(reg)

	cmd, err := deps.Commands.RegisterCommand(CommandOpenDashboard, func(ctx context.Context, _ ...any) error {
		return ext.Panels.CreateOrShow(ctx)
	})
	if err != nil {
		ext.subs.Dispose()
		return nil, fmt.Errorf("register %s: %w", CommandOpenDashboard, err)
	}
	ext.subs.Add(cmd)

	// The panel is not a registration but must go when the host shuts down.
	ext.subs.Add(host.DisposableFunc(ext.Panels.Dispose))

	log.Info("Web panel extension activated")
	return ext, nil
}

// Deactivate releases every registration, newest first.
func (e *Extension) Deactivate() {
	if e.subs.Disposed() {
		return
	}
	e.subs.Dispose()
	e.logger.Info("Web panel extension deactivated")
}
