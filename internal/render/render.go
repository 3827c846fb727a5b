// Package render turns the dashboard template and the resolved settings into
// the HTML assigned to a webview.
package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"io/fs"
	"path"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	apperrors "github.com/zsiec/webpanel/internal/errors"
	"github.com/zsiec/webpanel/internal/host"
	"github.com/zsiec/webpanel/internal/logger"
	"github.com/zsiec/webpanel/internal/settings"
)

// DefaultTemplate is the template path relative to the extension root.
const DefaultTemplate = "media/dashboard.html"

//go:embed media/dashboard.html media/error.html
var embedded embed.FS

var errorPage = template.Must(template.ParseFS(embedded, "media/error.html"))

// Renderer loads the dashboard template on every call so edits on disk show
// up on the next render.
type Renderer struct {
	fsys   fs.FS
	name   string
	logger logger.Logger
}

// New returns a Renderer reading name from fsys.
func New(fsys fs.FS, name string, log logger.Logger) *Renderer {
	return &Renderer{fsys: fsys, name: name, logger: logger.OrNull(log)}
}

// ForRoot reads templatePath below the extension root directory. An empty
// root selects the copy compiled into the binary.
func ForRoot(root, templatePath string, log logger.Logger) *Renderer {
	if root == "" {
		return New(embedded, DefaultTemplate, log)
	}
	if templatePath == "" {
		templatePath = DefaultTemplate
	}
	fsys := afero.NewIOFS(afero.NewReadOnlyFs(afero.NewBasePathFs(afero.NewOsFs(), root)))
	return New(fsys, path.Clean(templatePath), log)
}

// TemplateName reports the template path the renderer loads.
func (r *Renderer) TemplateName() string {
	return r.name
}

type viewModel struct {
	Config            template.JS
	CSP               string
	Nonce             string
	URL               string
	Sandbox           string
	NavigationEnabled bool
	AllowExternal     bool
	Fetch             bool
}

// Render produces the dashboard HTML for cfg. The webview supplies the CSP
// source for local resources.
func (r *Renderer) Render(cfg settings.ExtensionConfig, webview host.Webview) (string, error) {
	tmpl, err := r.load()
	if err != nil {
		return "", err
	}

	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", apperrors.WrapTemplateError(err, r.name)
	}

	cspSource := ""
	if webview != nil {
		cspSource = webview.CSPSource()
	}
	nonce := uuid.NewString()

	model := viewModel{
		Config:            template.JS(configJSON),
		CSP:               ContentSecurityPolicy(cfg.URL, cspSource, nonce),
		Nonce:             nonce,
		URL:               cfg.URL,
		Sandbox:           SandboxAttribute(cfg.SandboxLevel),
		NavigationEnabled: cfg.NavigationEnabled,
		AllowExternal:     cfg.AllowExternal,
		Fetch:             cfg.RenderMode == settings.RenderFetch,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, model); err != nil {
		return "", apperrors.WrapTemplateError(err, r.name)
	}

	r.logger.WithFields(map[string]interface{}{
		"template":    r.name,
		"render_mode": cfg.RenderMode,
		"sandbox":     cfg.SandboxLevel,
		"bytes":       buf.Len(),
	}).Debug("Rendered dashboard")

	return buf.String(), nil
}

// Check loads and parses the template without executing it.
func (r *Renderer) Check() error {
	_, err := r.load()
	return err
}

func (r *Renderer) load() (*template.Template, error) {
	raw, err := fs.ReadFile(r.fsys, r.name)
	if err != nil {
		return nil, apperrors.WrapTemplateError(err, r.name)
	}
	tmpl, err := template.New(path.Base(r.name)).Parse(string(raw))
	if err != nil {
		return nil, apperrors.WrapTemplateError(err, r.name)
	}
	return tmpl, nil
}

// Page renders a static error page. It never fails, so a webview always has
// something to show.
func Page(title, message string) string {
	var buf bytes.Buffer
	data := struct{ Title, Message string }{title, message}
	if err := errorPage.Execute(&buf, data); err != nil {
		return "<!DOCTYPE html><html><body>" + template.HTMLEscapeString(title) + "</body></html>"
	}
	return buf.String()
}

// RenderOrPage renders cfg and falls back to an error page on failure. The
// render error is returned alongside the fallback HTML.
func (r *Renderer) RenderOrPage(cfg settings.ExtensionConfig, webview host.Webview) (string, error) {
	html, err := r.Render(cfg, webview)
	if err != nil {
		r.logger.WithError(err).Error("Failed to render dashboard")
		return Page("Dashboard unavailable", err.Error()), err
	}
	return html, nil
}
