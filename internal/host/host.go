// Package host defines the editor host services the extension consumes:
// webview panels, sidebar views, the command registry and the external URI
// opener. The extension only talks to these interfaces; browserhost provides
// a concrete implementation and hosttest an in-memory one.
package host

import (
	"context"
	"encoding/json"
	"net/url"
)

// ViewColumn identifies where a panel is shown.
type ViewColumn int

const (
	ColumnActive ViewColumn = -1
	ColumnOne    ViewColumn = 1
	ColumnTwo    ViewColumn = 2
	ColumnThree  ViewColumn = 3
)

// WebviewOptions controls what content a webview may run and load.
type WebviewOptions struct {
	EnableScripts           bool
	RetainContextWhenHidden bool
	// LocalResourceRoots bounds which local files the webview may load.
	// An empty list means no local files.
	LocalResourceRoots []*url.URL
}

// Webview is the rendering surface shared by panels and sidebar views.
type Webview interface {
	Options() WebviewOptions
	SetOptions(opts WebviewOptions)
	HTML() string
	SetHTML(html string)
	// CSPSource is the origin local resources are served from, for use in a
	// Content-Security-Policy.
	CSPSource() string
	// AsWebviewURI translates a local file URI into one the webview can load.
	AsWebviewURI(local *url.URL) (*url.URL, error)
	PostMessage(ctx context.Context, msg any) error
	OnDidReceiveMessage(fn func(raw json.RawMessage)) Disposable
}

// ViewStateEvent is delivered when a panel is shown, hidden or moved.
type ViewStateEvent struct {
	Visible bool
	Active  bool
	Column  ViewColumn
}

// WebviewPanel is a webview hosted in an editor tab.
type WebviewPanel interface {
	ViewType() string
	Title() string
	SetTitle(title string)
	Webview() Webview
	Visible() bool
	Column() ViewColumn
	Reveal(column ViewColumn)
	OnDidDispose(fn func()) Disposable
	OnDidChangeViewState(fn func(ViewStateEvent)) Disposable
	Dispose()
}

// WebviewView is a webview hosted in a sidebar slot. Its lifetime is owned
// by the host.
type WebviewView interface {
	ViewType() string
	Webview() Webview
	Visible() bool
	OnDidDispose(fn func()) Disposable
}

// WebviewViewProvider fills a sidebar view each time the host materialises it.
type WebviewViewProvider interface {
	ResolveWebviewView(ctx context.Context, view WebviewView) error
}

// Window creates panels and accepts view providers.
type Window interface {
	// ActiveColumn reports the column of the active text editor, if any.
	ActiveColumn() (ViewColumn, bool)
	CreateWebviewPanel(viewType, title string, column ViewColumn, opts WebviewOptions) (WebviewPanel, error)
	RegisterWebviewViewProvider(viewType string, provider WebviewViewProvider) (Disposable, error)
}

// CommandFunc is the body of a registered command.
type CommandFunc func(ctx context.Context, args ...any) error

// Commands is the host command registry.
type Commands interface {
	RegisterCommand(id string, fn CommandFunc) (Disposable, error)
	ExecuteCommand(ctx context.Context, id string, args ...any) error
}

// ExternalOpener opens a URI outside the host, normally in the system browser.
type ExternalOpener interface {
	OpenExternal(ctx context.Context, target *url.URL) error
}
