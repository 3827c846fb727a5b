package browserhost

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"

	"github.com/zsiec/webpanel/internal/host"
)

// Webview kinds, used in routes and metrics.
const (
	KindPanel = "panel"
	KindView  = "view"
)

// ErrNotConnected is returned by PostMessage when no browser frame is
// attached to the webview.
var ErrNotConnected = errors.New("webview has no connected frame")

// outbound is sent from the host to a browser frame.
type outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// webview is the host side of one webview. Every field is owned by the
// event loop.
type webview struct {
	h    *Host
	kind string
	id   string

	opts     host.WebviewOptions
	html     string
	conns    map[*socket]struct{}
	received listeners[func(json.RawMessage)]
}

func newWebview(h *Host, kind, id string) *webview {
	return &webview{h: h, kind: kind, id: id, conns: make(map[*socket]struct{})}
}

func (w *webview) Options() host.WebviewOptions     { return w.opts }
func (w *webview) SetOptions(o host.WebviewOptions) { w.opts = o }
func (w *webview) HTML() string                     { return w.html }
func (w *webview) CSPSource() string                { return w.h.origin() }

// SetHTML replaces the content and tells connected frames to reload it.
func (w *webview) SetHTML(html string) {
	w.html = html
	w.broadcast(outbound{Type: "reload"})
}

// AsWebviewURI maps a local file onto this host's resource route. The
// resource handler re-checks the roots when the file is fetched.
func (w *webview) AsWebviewURI(local *url.URL) (*url.URL, error) {
	p, err := host.LocalPath(local)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(w.h.origin())
	if err != nil {
		return nil, err
	}
	u := base.JoinPath("resource", w.kind, w.id)
	u.RawQuery = url.Values{"path": {p}}.Encode()
	return u, nil
}

func (w *webview) PostMessage(_ context.Context, msg any) error {
	if len(w.conns) == 0 {
		return ErrNotConnected
	}
	w.broadcast(outbound{Type: "message", Data: msg})
	return nil
}

func (w *webview) OnDidReceiveMessage(fn func(json.RawMessage)) host.Disposable {
	return w.received.add(fn)
}

func (w *webview) receive(raw json.RawMessage) {
	w.received.each(func(fn func(json.RawMessage)) { fn(raw) })
}

func (w *webview) broadcast(msg outbound) {
	for c := range w.conns {
		c.enqueue(msg)
	}
}

func (w *webview) closeConns() {
	for c := range w.conns {
		c.close()
		delete(w.conns, c)
	}
}

// listeners keeps registration order so events fire oldest first.
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

func (l *listeners[T]) clear() {
	l.fns = nil
}
