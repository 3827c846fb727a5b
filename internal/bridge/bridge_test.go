package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/zsiec/webpanel/internal/errors"
	"github.com/zsiec/webpanel/internal/host"
	"github.com/zsiec/webpanel/internal/host/hosttest"
)

func setup(t *testing.T, roots ...string) (*Bridge, *hosttest.Webview, *hosttest.Opener) {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a/b.png", []byte("png"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/ext/media/logo.svg", []byte("<svg/>"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/etc/passwd", []byte("root"), 0o644))
	require.NoError(t, fs.MkdirAll("/a/dir", 0o755))

	webview := &hosttest.Webview{}
	var rootURIs []*url.URL
	for _, r := range roots {
		rootURIs = append(rootURIs, host.FileURI(r))
	}
	webview.SetOptions(host.WebviewOptions{EnableScripts: true, LocalResourceRoots: rootURIs})

	opener := &hosttest.Opener{}
	return New(fs, opener, nil), webview, opener
}

func resolve(t *testing.T, b *Bridge, webview host.Webview, fileURL string) (ResolvedFileURL, error) {
	t.Helper()
	raw, err := json.Marshal(Message{Type: TypeResolveFileURL, FileURL: fileURL})
	require.NoError(t, err)

	res := b.Handle(context.Background(), webview, raw)
	assert.Equal(t, TypeResolveFileURL, res.Type)
	reply, ok := res.Reply.(ResolvedFileURL)
	require.True(t, ok, "resolveFileUrl always replies")
	assert.Equal(t, TypeResolvedFileURL, reply.Type)
	assert.Equal(t, fileURL, reply.FileURL)
	return reply, res.Err
}

func TestResolveFileURL(t *testing.T) {
	b, webview, _ := setup(t, "/a")

	reply, err := resolve(t, b, webview, "file:///a/b.png")
	require.NoError(t, err)
	assert.Equal(t, hosttest.CSPSource+"/a/b.png", reply.WebviewURL)
}

func TestResolveBarePath(t *testing.T) {
	b, webview, _ := setup(t, "/ext")

	reply, err := resolve(t, b, webview, "/ext/media/logo.svg")
	require.NoError(t, err)
	assert.NotEmpty(t, reply.WebviewURL)
}

func TestResolveFailuresReplyEmpty(t *testing.T) {
	tests := []struct {
		name    string
		fileURL string
	}{
		{"empty", ""},
		{"relative", "file:relative/b.png"},
		{"not a path", "b.png"},
		{"other scheme", "https://example.com/b.png"},
		{"remote host", "file://server/a/b.png"},
		{"missing file", "file:///a/missing.png"},
		{"directory", "file:///a/dir"},
		{"outside roots", "file:///etc/passwd"},
		{"traversal", "file:///a/../etc/passwd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, webview, _ := setup(t, "/a")

			reply, err := resolve(t, b, webview, tt.fileURL)
			require.Error(t, err)
			assert.Empty(t, reply.WebviewURL)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeResolve))
		})
	}
}

func TestResolveRejectsLinkOutOfRoot(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "ext")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "logo.png"), []byte("png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret"), []byte("key"), 0o644))
	if err := os.Symlink(filepath.Join(dir, "secret"), filepath.Join(root, "secret.png")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	webview := &hosttest.Webview{}
	webview.SetOptions(host.WebviewOptions{LocalResourceRoots: host.FileURIs(root)})
	b := New(afero.NewReadOnlyFs(afero.NewOsFs()), nil, nil)

	reply, err := resolve(t, b, webview, host.FileURI(filepath.Join(root, "secret.png")).String())
	require.Error(t, err)
	assert.Empty(t, reply.WebviewURL)

	reply, err = resolve(t, b, webview, host.FileURI(filepath.Join(root, "logo.png")).String())
	require.NoError(t, err)
	assert.NotEmpty(t, reply.WebviewURL)
}

func TestResolveWithoutRoots(t *testing.T) {
	b, webview, _ := setup(t)

	reply, err := resolve(t, b, webview, "file:///a/b.png")
	require.Error(t, err)
	assert.Empty(t, reply.WebviewURL)
}

func TestOpenExternal(t *testing.T) {
	b, webview, opener := setup(t)

	for _, target := range []string{"https://example.com/x", "http://localhost:3019", "mailto:ops@example.com"} {
		res := b.Handle(context.Background(), webview, json.RawMessage(`{"type":"openExternal","url":"`+target+`"}`))
		assert.NoError(t, res.Err, target)
		assert.Nil(t, res.Reply)
	}
	assert.Equal(t, []string{"https://example.com/x", "http://localhost:3019", "mailto:ops@example.com"}, opener.Opened)
}

func TestOpenExternalRejectsSchemes(t *testing.T) {
	b, webview, opener := setup(t)

	for _, target := range []string{"file:///etc/passwd", "javascript:alert(1)", "vscode://x", "", "::"} {
		res := b.Handle(context.Background(), webview, json.RawMessage(`{"type":"openExternal","url":"`+target+`"}`))
		require.Error(t, res.Err, target)
		assert.True(t, apperrors.IsType(res.Err, apperrors.ErrorTypeOpenExternal))
		assert.Nil(t, res.Reply)
	}
	assert.Empty(t, opener.Opened)
}

func TestOpenExternalOpenerFailure(t *testing.T) {
	b, webview, opener := setup(t)
	opener.Err = errors.New("no browser")

	res := b.Handle(context.Background(), webview, json.RawMessage(`{"type":"openExternal","url":"https://example.com"}`))
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, opener.Err)
}

func TestOpenExternalWithoutOpener(t *testing.T) {
	b := New(afero.NewMemMapFs(), nil, nil)

	res := b.Handle(context.Background(), &hosttest.Webview{}, json.RawMessage(`{"type":"openExternal","url":"https://example.com"}`))
	assert.Error(t, res.Err)
}

func TestUnknownAndMalformedMessages(t *testing.T) {
	b, webview, _ := setup(t)

	res := b.Handle(context.Background(), webview, json.RawMessage(`{"type":"refresh"}`))
	assert.ErrorIs(t, res.Err, ErrUnknownMessage)
	assert.Equal(t, "refresh", res.Type)
	assert.Nil(t, res.Reply)

	res = b.Handle(context.Background(), webview, json.RawMessage(`{not json`))
	assert.True(t, apperrors.IsType(res.Err, apperrors.ErrorTypeValidation))
	assert.Nil(t, res.Reply)
}

func TestAttachPostsReplies(t *testing.T) {
	b, webview, opener := setup(t, "/a")

	d := b.Attach(context.Background(), webview)
	assert.Equal(t, 1, webview.Listeners())

	webview.Receive(`{"type":"resolveFileUrl","fileUrl":"file:///a/b.png"}`)
	webview.Receive(`{"type":"resolveFileUrl","fileUrl":"garbage"}`)
	webview.Receive(`{"type":"openExternal","url":"https://example.com"}`)

	require.Len(t, webview.Posted, 2)
	assert.Equal(t, hosttest.CSPSource+"/a/b.png", webview.Posted[0].(ResolvedFileURL).WebviewURL)
	assert.Equal(t, "", webview.Posted[1].(ResolvedFileURL).WebviewURL)
	assert.Len(t, opener.Opened, 1)

	d.Dispose()
	assert.Equal(t, 0, webview.Listeners())
}

func TestAttachPostFailure(t *testing.T) {
	b, webview, _ := setup(t, "/a")
	webview.PostErr = errors.New("webview gone")

	b.Attach(context.Background(), webview)
	webview.Receive(`{"type":"resolveFileUrl","fileUrl":"file:///a/b.png"}`)
	assert.Empty(t, webview.Posted)
}

func TestParseFileURL(t *testing.T) {
	u, err := ParseFileURL("file:///a/./c/../b%20c.png")
	require.NoError(t, err)
	assert.Equal(t, "/a/b c.png", u.Path)

	u, err = ParseFileURL("file://localhost/tmp/x")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x", u.Path)
}
