package browserhost

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	apperrors "github.com/zsiec/webpanel/internal/errors"
	"github.com/zsiec/webpanel/internal/host"
	"github.com/zsiec/webpanel/internal/logger"
	"github.com/zsiec/webpanel/internal/metrics"
)

//go:embed assets/*.html
var assets embed.FS

var pages = template.Must(template.ParseFS(assets, "assets/*.html"))

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

type framePage struct {
	Title      string
	Kind       string
	ID         string
	ContentURL string
}

type workbenchPage struct {
	Views       []string
	OpenCommand string
}

// RegisterRoutes adds the browser host routes to router.
func (h *Host) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", h.handleWorkbench).Methods(http.MethodGet)
	router.HandleFunc("/commands/{id}", h.handleCommand).Methods(http.MethodPost)
	router.HandleFunc("/panels", h.handleListPanels).Methods(http.MethodGet)
	router.HandleFunc("/panels/{id}", h.handlePanelFrame).Methods(http.MethodGet)
	router.HandleFunc("/panels/{id}", h.handleClosePanel).Methods(http.MethodDelete)
	router.HandleFunc("/views/{viewType}", h.handleViewFrame).Methods(http.MethodGet)
	router.HandleFunc("/content/{kind}/{id}", h.handleContent).Methods(http.MethodGet)
	router.HandleFunc("/resource/{kind}/{id}", h.handleResource).Methods(http.MethodGet)
	router.HandleFunc("/ws/{kind}/{id}", h.handleSocket).Methods(http.MethodGet)

	h.logger.Info("Browser host routes registered")
}

// onLoop runs fn on the event loop for a request, writing an error
// response and reporting false if the loop could not run it.
func (h *Host) onLoop(w http.ResponseWriter, r *http.Request, fn func()) bool {
	if err := h.loop.Do(r.Context(), fn); err != nil {
		h.errorHandler.HandleError(w, r, apperrors.New(apperrors.ErrorTypeInternal, err.Error(), http.StatusServiceUnavailable))
		return false
	}
	return true
}

func (h *Host) handleWorkbench(w http.ResponseWriter, r *http.Request) {
	data := workbenchPage{OpenCommand: h.opts.OpenCommand}
	if !h.onLoop(w, r, func() { data.Views = h.viewTypes() }) {
		return
	}
	h.renderPage(w, "workbench.html", data)
}

func (h *Host) handleCommand(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var err error
	if !h.onLoop(w, r, func() { err = h.ExecuteCommand(h.ctx, id) }) {
		return
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Host) handleListPanels(w http.ResponseWriter, r *http.Request) {
	var infos []panelInfo
	if !h.onLoop(w, r, func() { infos = h.panelInfos() }) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(infos); err != nil {
		h.logger.WithError(err).Error("Failed to encode panel list")
	}
}

func (h *Host) handlePanelFrame(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var page *framePage
	if !h.onLoop(w, r, func() {
		if p, ok := h.panels[id]; ok {
			page = &framePage{Title: p.title, Kind: KindPanel, ID: id, ContentURL: contentURL(KindPanel, id)}
		}
	}) {
		return
	}
	if page == nil {
		h.errorHandler.HandleError(w, r, apperrors.NewNotFoundError("panel"))
		return
	}
	h.renderPage(w, "frame.html", page)
}

func (h *Host) handleClosePanel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	found := false
	if !h.onLoop(w, r, func() {
		if p, ok := h.panels[id]; ok {
			found = true
			p.Dispose()
		}
	}) {
		return
	}
	if !found {
		h.errorHandler.HandleError(w, r, apperrors.NewNotFoundError("panel"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Host) handleViewFrame(w http.ResponseWriter, r *http.Request) {
	viewType := mux.Vars(r)["viewType"]

	var (
		v   *view
		err error
	)
	if !h.onLoop(w, r, func() { v, err = h.resolveView(viewType) }) {
		return
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	id := v.webview.id
	h.renderPage(w, "frame.html", framePage{
		Title:      viewType,
		Kind:       KindView,
		ID:         id,
		ContentURL: contentURL(KindView, id),
	})
}

func (h *Host) handleContent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var (
		content string
		found   bool
	)
	if !h.onLoop(w, r, func() {
		var wv *webview
		if wv, found = h.lookup(vars["kind"], vars["id"]); found {
			content = wv.html
		}
	}) {
		return
	}
	if !found {
		h.errorHandler.HandleError(w, r, apperrors.NewNotFoundError("webview"))
		return
	}

	out, err := injectShim(content)
	if err != nil {
		h.errorHandler.HandleError(w, r, apperrors.WrapInternalError(err, "Failed to prepare webview content"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(out))
}

func (h *Host) handleResource(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	p := r.URL.Query().Get("path")
	if p == "" || !filepath.IsAbs(p) {
		h.errorHandler.HandleError(w, r, apperrors.NewValidationError("path must be absolute"))
		return
	}

	var (
		roots []*url.URL
		found bool
	)
	if !h.onLoop(w, r, func() {
		var wv *webview
		if wv, found = h.lookup(vars["kind"], vars["id"]); found {
			roots = wv.opts.LocalResourceRoots
		}
	}) {
		return
	}
	if !found {
		h.errorHandler.HandleError(w, r, apperrors.NewNotFoundError("webview"))
		return
	}
	target := host.FileURI(p)
	if !host.WithinAny(roots, target) {
		h.errorHandler.HandleError(w, r, apperrors.NewForbiddenError("path outside local resource roots"))
		return
	}
	if !host.WithinAnyReal(h.opts.Fs, roots, target) {
		// Missing files land here too; only a resolved path can be compared.
		if _, err := h.opts.Fs.Stat(p); err != nil {
			h.errorHandler.HandleError(w, r, apperrors.NewNotFoundError("resource"))
			return
		}
		h.errorHandler.HandleError(w, r, apperrors.NewForbiddenError("path resolves outside local resource roots"))
		return
	}

	f, err := h.opts.Fs.Open(p)
	if err != nil {
		h.errorHandler.HandleError(w, r, apperrors.NewNotFoundError("resource"))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		h.errorHandler.HandleError(w, r, apperrors.NewNotFoundError("resource"))
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (h *Host) handleSocket(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, id := vars["kind"], vars["id"]

	found := false
	if !h.onLoop(w, r, func() { _, found = h.lookup(kind, id) }) {
		return
	}
	if !found {
		h.errorHandler.HandleError(w, r, apperrors.NewNotFoundError("webview"))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade to WebSocket")
		return
	}
	// The server's read and write timeouts must not apply to a long-lived
	// socket.
	_ = conn.NetConn().SetDeadline(time.Time{})

	log := logger.WithWebview(h.logger, kind, id)
	s := newSocket(conn, kind, h.newLimiter(), log)

	attached := false
	if err := h.loop.Do(r.Context(), func() { attached = h.attach(kind, id, s) }); err != nil || !attached {
		_ = conn.Close()
		return
	}

	started := time.Now()
	metrics.WebviewConnected(kind)
	log.Info("Webview frame connected")

	go s.writePump()
	s.readPump(func(msg inbound) {
		h.loop.Post(func() { h.deliver(kind, id, msg) })
	})

	metrics.WebviewDisconnected(kind, time.Since(started).Seconds())
	h.loop.Post(func() { h.detach(kind, id, s) })
	log.Info("Webview frame disconnected")
}

// attach adds a frame to a webview. A panel gaining a frame becomes
// visible.
func (h *Host) attach(kind, id string, s *socket) bool {
	wv, ok := h.lookup(kind, id)
	if !ok {
		return false
	}
	wv.conns[s] = struct{}{}
	switch kind {
	case KindPanel:
		h.panels[id].setVisible(true)
	case KindView:
		h.views[id].connected = true
	}
	return true
}

// detach removes a frame. A panel left without frames is hidden; a view
// left without frames is gone.
func (h *Host) detach(kind, id string, s *socket) {
	wv, ok := h.lookup(kind, id)
	if !ok {
		return
	}
	delete(wv.conns, s)
	if len(wv.conns) > 0 {
		return
	}
	switch kind {
	case KindPanel:
		h.panels[id].setVisible(false)
	case KindView:
		h.views[id].dispose()
	}
}

func (h *Host) deliver(kind, id string, msg inbound) {
	wv, ok := h.lookup(kind, id)
	if !ok {
		return
	}
	switch msg.Type {
	case "message":
		if len(msg.Data) > 0 {
			wv.receive(msg.Data)
		}
	case "visibility":
		if kind == KindPanel {
			h.panels[id].setVisible(msg.Visible)
		} else {
			h.views[id].visible = msg.Visible
		}
	case "close":
		if kind == KindPanel {
			h.panels[id].Dispose()
		} else {
			h.views[id].dispose()
		}
	default:
		h.logger.WithField("type", msg.Type).Debug("Ignoring unknown frame message")
	}
}

func (h *Host) renderPage(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		h.logger.WithError(err).WithField("page", name).Error("Failed to render page")
	}
}

func contentURL(kind, id string) string {
	return "/content/" + kind + "/" + id
}
