// Package hosttest provides an in-memory host for exercising extension code
// without a browser. Nothing here is safe for concurrent use; tests drive it
// from a single goroutine the same way a host event loop would.
package hosttest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/zsiec/webpanel/internal/host"
)

// CSPSource is the origin fake webviews report for local resources.
const CSPSource = "https://webview.test"

type listeners[T any] struct {
	next int
	fns  map[int]T
}

func (l *listeners[T]) add(fn T) host.Disposable {
	if l.fns == nil {
		l.fns = make(map[int]T)
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return host.DisposableFunc(func() { delete(l.fns, id) })
}

func (l *listeners[T]) each(call func(T)) {
	for i := 0; i < l.next; i++ {
		if fn, ok := l.fns[i]; ok {
			call(fn)
		}
	}
}

func (l *listeners[T]) len() int {
	return len(l.fns)
}

// Webview records everything the extension does to it.
type Webview struct {
	opts     host.WebviewOptions
	html     string
	SetCount int
	Posted   []any
	PostErr  error
	received listeners[func(json.RawMessage)]
}

func (w *Webview) Options() host.WebviewOptions     { return w.opts }
func (w *Webview) SetOptions(o host.WebviewOptions) { w.opts = o }
func (w *Webview) HTML() string                     { return w.html }
func (w *Webview) CSPSource() string                { return CSPSource }

func (w *Webview) SetHTML(html string) {
	w.html = html
	w.SetCount++
}

// AsWebviewURI maps file URIs onto CSPSource.
func (w *Webview) AsWebviewURI(local *url.URL) (*url.URL, error) {
	p, err := host.LocalPath(local)
	if err != nil {
		return nil, err
	}
	u, _ := url.Parse(CSPSource)
	return u.JoinPath(p), nil
}

func (w *Webview) PostMessage(_ context.Context, msg any) error {
	if w.PostErr != nil {
		return w.PostErr
	}
	w.Posted = append(w.Posted, msg)
	return nil
}

func (w *Webview) OnDidReceiveMessage(fn func(json.RawMessage)) host.Disposable {
	return w.received.add(fn)
}

// Listeners reports how many message listeners are attached.
func (w *Webview) Listeners() int {
	return w.received.len()
}

// Receive delivers a message from page script to the listeners.
func (w *Webview) Receive(raw string) {
	w.received.each(func(fn func(json.RawMessage)) { fn(json.RawMessage(raw)) })
}

// Panel is a fake editor tab.
type Panel struct {
	viewType  string
	title     string
	column    host.ViewColumn
	visible   bool
	disposed  bool
	webview   *Webview
	Reveals   int
	disposeLs listeners[func()]
	stateLs   listeners[func(host.ViewStateEvent)]
}

func (p *Panel) ViewType() string        { return p.viewType }
func (p *Panel) Title() string           { return p.title }
func (p *Panel) SetTitle(t string)       { p.title = t }
func (p *Panel) Webview() host.Webview   { return p.webview }
func (p *Panel) Visible() bool           { return p.visible && !p.disposed }
func (p *Panel) Column() host.ViewColumn { return p.column }
func (p *Panel) Disposed() bool          { return p.disposed }

// Fake returns the concrete webview for assertions.
func (p *Panel) Fake() *Webview { return p.webview }

// Reveal shows the panel; a hidden panel becomes visible and fires a
// view-state event.
func (p *Panel) Reveal(column host.ViewColumn) {
	p.Reveals++
	if column != host.ColumnActive {
		p.column = column
	}
	if !p.visible {
		p.SetVisible(true)
	}
}

// SetVisible simulates the user switching tabs.
func (p *Panel) SetVisible(visible bool) {
	if p.disposed || p.visible == visible {
		return
	}
	p.visible = visible
	ev := host.ViewStateEvent{Visible: visible, Active: visible, Column: p.column}
	p.stateLs.each(func(fn func(host.ViewStateEvent)) { fn(ev) })
}

func (p *Panel) OnDidDispose(fn func()) host.Disposable { return p.disposeLs.add(fn) }

func (p *Panel) OnDidChangeViewState(fn func(host.ViewStateEvent)) host.Disposable {
	return p.stateLs.add(fn)
}

// Listeners reports dispose and view-state listener counts.
func (p *Panel) Listeners() (dispose, state int) {
	return p.disposeLs.len(), p.stateLs.len()
}

// Dispose closes the tab and fires dispose listeners once.
func (p *Panel) Dispose() {
	if p.disposed {
		return
	}
	p.disposed = true
	p.visible = false
	p.disposeLs.each(func(fn func()) { fn() })
}

// View is a fake sidebar view.
type View struct {
	viewType  string
	webview   *Webview
	visible   bool
	disposed  bool
	disposeLs listeners[func()]
}

// NewView returns a visible view with an empty webview.
func NewView(viewType string) *View {
	return &View{viewType: viewType, webview: &Webview{}, visible: true}
}

func (v *View) ViewType() string      { return v.viewType }
func (v *View) Webview() host.Webview { return v.webview }
func (v *View) Visible() bool         { return v.visible && !v.disposed }
func (v *View) Fake() *Webview        { return v.webview }

func (v *View) OnDidDispose(fn func()) host.Disposable { return v.disposeLs.add(fn) }

// Dispose simulates the host collapsing the sidebar.
func (v *View) Dispose() {
	if v.disposed {
		return
	}
	v.disposed = true
	v.disposeLs.each(func(fn func()) { fn() })
}

// Window is a fake host window.
type Window struct {
	Active    host.ViewColumn
	HasActive bool
	CreateErr error
	Panels    []*Panel
	Providers map[string]host.WebviewViewProvider
	Views     []*View
}

// NewWindow returns a window with no active editor.
func NewWindow() *Window {
	return &Window{Providers: make(map[string]host.WebviewViewProvider)}
}

func (w *Window) ActiveColumn() (host.ViewColumn, bool) {
	return w.Active, w.HasActive
}

func (w *Window) CreateWebviewPanel(viewType, title string, column host.ViewColumn, opts host.WebviewOptions) (host.WebviewPanel, error) {
	if w.CreateErr != nil {
		return nil, w.CreateErr
	}
	p := &Panel{
		viewType: viewType,
		title:    title,
		column:   column,
		visible:  true,
		webview:  &Webview{opts: opts},
	}
	w.Panels = append(w.Panels, p)
	return p, nil
}

func (w *Window) RegisterWebviewViewProvider(viewType string, provider host.WebviewViewProvider) (host.Disposable, error) {
	if _, exists := w.Providers[viewType]; exists {
		return nil, fmt.Errorf("provider already registered for %s", viewType)
	}
	w.Providers[viewType] = provider
	return host.DisposableFunc(func() { delete(w.Providers, viewType) }), nil
}

// OpenView materialises a sidebar view through its registered provider.
func (w *Window) OpenView(ctx context.Context, viewType string) (*View, error) {
	provider, ok := w.Providers[viewType]
	if !ok {
		return nil, fmt.Errorf("no provider for %s", viewType)
	}
	v := NewView(viewType)
	if err := provider.ResolveWebviewView(ctx, v); err != nil {
		return nil, err
	}
	w.Views = append(w.Views, v)
	return v, nil
}

// LivePanels counts panels that have not been disposed.
func (w *Window) LivePanels() int {
	n := 0
	for _, p := range w.Panels {
		if !p.disposed {
			n++
		}
	}
	return n
}

// Commands is a fake command registry.
type Commands struct {
	Registered map[string]host.CommandFunc
}

// NewCommands returns an empty registry.
func NewCommands() *Commands {
	return &Commands{Registered: make(map[string]host.CommandFunc)}
}

func (c *Commands) RegisterCommand(id string, fn host.CommandFunc) (host.Disposable, error) {
	if _, exists := c.Registered[id]; exists {
		return nil, fmt.Errorf("command %s already registered", id)
	}
	c.Registered[id] = fn
	return host.DisposableFunc(func() { delete(c.Registered, id) }), nil
}

func (c *Commands) ExecuteCommand(ctx context.Context, id string, args ...any) error {
	fn, ok := c.Registered[id]
	if !ok {
		return fmt.Errorf("command %s not found", id)
	}
	return fn(ctx, args...)
}

// Opener records external URIs instead of launching a browser.
type Opener struct {
	Opened []string
	Err    error
}

func (o *Opener) OpenExternal(_ context.Context, target *url.URL) error {
	if o.Err != nil {
		return o.Err
	}
	o.Opened = append(o.Opened, target.String())
	return nil
}
