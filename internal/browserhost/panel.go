package browserhost

import (
	"github.com/zsiec/webpanel/internal/host"
)

// panel is an editor tab rendered in its own browser frame.
type panel struct {
	webview  *webview
	viewType string
	title    string
	column   host.ViewColumn
	visible  bool
	disposed bool

	disposeLs listeners[func()]
	stateLs   listeners[func(host.ViewStateEvent)]
}

func (p *panel) ViewType() string        { return p.viewType }
func (p *panel) Title() string           { return p.title }
func (p *panel) SetTitle(t string)       { p.title = t }
func (p *panel) Webview() host.Webview   { return p.webview }
func (p *panel) Visible() bool           { return p.visible && !p.disposed }
func (p *panel) Column() host.ViewColumn { return p.column }

func (p *panel) Reveal(column host.ViewColumn) {
	if p.disposed {
		return
	}
	if column != host.ColumnActive {
		p.column = column
	}
	p.setVisible(true)
}

func (p *panel) OnDidDispose(fn func()) host.Disposable { return p.disposeLs.add(fn) }

func (p *panel) OnDidChangeViewState(fn func(host.ViewStateEvent)) host.Disposable {
	return p.stateLs.add(fn)
}

func (p *panel) setVisible(visible bool) {
	if p.disposed || p.visible == visible {
		return
	}
	p.visible = visible
	ev := host.ViewStateEvent{Visible: visible, Active: visible, Column: p.column}
	p.stateLs.each(func(fn func(host.ViewStateEvent)) { fn(ev) })
}

// Dispose closes the tab. Dispose listeners fire once.
func (p *panel) Dispose() {
	if p.disposed {
		return
	}
	p.disposed = true
	p.visible = false

	h := p.webview.h
	delete(h.panels, p.webview.id)
	p.webview.closeConns()
	p.disposeLs.each(func(fn func()) { fn() })
	p.disposeLs.clear()
	p.stateLs.clear()
	h.logger.WithField("panel_id", p.webview.id).Debug("Panel disposed")
}

// view is a sidebar slot. The host disposes it when its frame goes away.
type view struct {
	webview   *webview
	viewType  string
	visible   bool
	disposed  bool
	connected bool

	disposeLs listeners[func()]
}

func (v *view) ViewType() string      { return v.viewType }
func (v *view) Webview() host.Webview { return v.webview }
func (v *view) Visible() bool         { return v.visible && !v.disposed }

func (v *view) OnDidDispose(fn func()) host.Disposable { return v.disposeLs.add(fn) }

func (v *view) dispose() {
	if v.disposed {
		return
	}
	v.disposed = true
	v.visible = false

	h := v.webview.h
	delete(h.views, v.webview.id)
	v.webview.closeConns()
	v.disposeLs.each(func(fn func()) { fn() })
	v.disposeLs.clear()
	h.logger.WithField("view_id", v.webview.id).Debug("View disposed")
}

// panelInfo is the JSON shape of GET /panels.
type panelInfo struct {
	ID       string `json:"id"`
	ViewType string `json:"viewType"`
	Title    string `json:"title"`
	Column   int    `json:"column"`
	Visible  bool   `json:"visible"`
}

func (p *panel) info() panelInfo {
	return panelInfo{
		ID:       p.webview.id,
		ViewType: p.viewType,
		Title:    p.title,
		Column:   int(p.column),
		Visible:  p.Visible(),
	}
}
