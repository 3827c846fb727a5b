package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/spf13/afero"

	apperrors "github.com/zsiec/webpanel/internal/errors"
	"github.com/zsiec/webpanel/internal/host"
	"github.com/zsiec/webpanel/internal/logger"
	"github.com/zsiec/webpanel/internal/metrics"
)

var externalSchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"mailto": true,
}

// Bridge dispatches webview messages. It is stateless; one instance serves
// every panel and view.
type Bridge struct {
	fs     afero.Fs
	opener host.ExternalOpener
	logger logger.Logger
}

// New creates a Bridge. fs is used to check that resolved files are readable.
func New(fs afero.Fs, opener host.ExternalOpener, log logger.Logger) *Bridge {
	if fs == nil {
		fs = afero.NewReadOnlyFs(afero.NewOsFs())
	}
	return &Bridge{fs: fs, opener: opener, logger: logger.OrNull(log)}
}

// Attach handles every message webview receives and posts replies back to
// it. Dispose the returned value to detach.
func (b *Bridge) Attach(ctx context.Context, webview host.Webview) host.Disposable {
	return webview.OnDidReceiveMessage(func(raw json.RawMessage) {
		res := b.Handle(ctx, webview, raw)
		if res.Reply == nil {
			return
		}
		if err := webview.PostMessage(ctx, res.Reply); err != nil {
			b.logger.WithError(err).WithField("type", res.Type).Warn("Failed to post reply to webview")
		}
	})
}

// Handle decodes raw and runs the matching handler.
func (b *Bridge) Handle(ctx context.Context, webview host.Webview, raw json.RawMessage) Result {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		metrics.IncrementBridgeMessage("invalid", metrics.ResultError)
		b.logger.WithError(err).Debug("Dropping malformed webview message")
		return Result{Err: apperrors.NewValidationError("malformed message")}
	}

	var res Result
	switch msg.Type {
	case TypeResolveFileURL:
		res = b.resolveFileURL(webview, msg.FileURL)
	case TypeOpenExternal:
		res = b.openExternal(ctx, msg.URL)
	default:
		b.logger.WithField("type", msg.Type).Debug("Ignoring unknown webview message")
		metrics.IncrementBridgeMessage("unknown", metrics.ResultIgnored)
		return Result{Type: msg.Type, Err: ErrUnknownMessage}
	}

	result := metrics.ResultOK
	if res.Err != nil {
		result = metrics.ResultError
	}
	metrics.IncrementBridgeMessage(msg.Type, result)
	return res
}

func (b *Bridge) resolveFileURL(webview host.Webview, fileURL string) Result {
	res := Result{
		Type:  TypeResolveFileURL,
		Reply: ResolvedFileURL{Type: TypeResolvedFileURL, FileURL: fileURL},
	}

	target, err := b.resolve(webview, fileURL)
	if err != nil {
		b.logger.WithError(err).WithField("file_url", fileURL).Warn("Failed to resolve file url")
		res.Err = apperrors.NewResolveError(fileURL, err)
		return res
	}

	res.Reply = ResolvedFileURL{Type: TypeResolvedFileURL, FileURL: fileURL, WebviewURL: target.String()}
	return res
}

func (b *Bridge) resolve(webview host.Webview, fileURL string) (*url.URL, error) {
	local, err := ParseFileURL(fileURL)
	if err != nil {
		return nil, err
	}

	if !host.WithinAny(webview.Options().LocalResourceRoots, local) {
		return nil, apperrors.NewForbiddenError("file is outside the webview's resource roots")
	}

	p, err := host.LocalPath(local)
	if err != nil {
		return nil, err
	}
	if !host.WithinAnyReal(b.fs, webview.Options().LocalResourceRoots, local) {
		return nil, apperrors.NewForbiddenError("file resolves outside the webview's resource roots")
	}
	info, err := b.fs.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", p)
	}
	f, err := b.fs.Open(p)
	if err != nil {
		return nil, err
	}
	f.Close()

	return webview.AsWebviewURI(local)
}

// ParseFileURL accepts "file:///abs/path" or a bare absolute path and
// returns a cleaned file URI.
func ParseFileURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty file url")
	}

	p := raw
	if strings.HasPrefix(raw, "file:") {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, err
		}
		if u.Host != "" && u.Host != "localhost" {
			return nil, fmt.Errorf("remote file url: %s", u.Host)
		}
		p = u.Path
	} else if strings.Contains(raw, "://") {
		return nil, fmt.Errorf("not a file url: %s", raw)
	}

	if !strings.HasPrefix(p, "/") {
		return nil, fmt.Errorf("file url has no absolute path: %s", raw)
	}
	return host.FileURI(path.Clean(p)), nil
}

func (b *Bridge) openExternal(ctx context.Context, raw string) Result {
	res := Result{Type: TypeOpenExternal}

	target, err := url.Parse(strings.TrimSpace(raw))
	switch {
	case err != nil:
	case !externalSchemes[strings.ToLower(target.Scheme)]:
		err = fmt.Errorf("scheme %q not allowed", target.Scheme)
	case b.opener == nil:
		err = fmt.Errorf("no external opener")
	default:
		err = b.opener.OpenExternal(ctx, target)
	}

	if err != nil {
		b.logger.WithError(err).WithField("url", raw).Warn("Failed to open external url")
		res.Err = apperrors.NewOpenExternalError(raw, err)
		return res
	}

	b.logger.WithField("url", target.Redacted()).Info("Opened external url")
	return res
}
