package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDefaults(t *testing.T) {
	cfg := NewResolver(MapStore{}).Resolve()
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, RenderIframe, cfg.RenderMode)
	assert.True(t, cfg.NavigationEnabled)
	assert.False(t, cfg.AllowExternal)
	assert.Equal(t, SandboxMedium, cfg.SandboxLevel)

	assert.Equal(t, Defaults(), NewResolver(nil).Resolve())
}

func TestResolveReadsStore(t *testing.T) {
	store := MapStore{
		"web-panel.renderMode":               "fetch",
		"web-panel.navigation.enabled":       false,
		"web-panel.navigation.allowExternal": true,
		"web-panel.security.sandboxLevel":    "strict",
		"web-panel.url":                      "https://example.com/",
	}
	cfg := NewResolver(store).Resolve()

	assert.Equal(t, ExtensionConfig{
		RenderMode:        RenderFetch,
		NavigationEnabled: false,
		AllowExternal:     true,
		SandboxLevel:      SandboxStrict,
		URL:               "https://example.com/",
	}, cfg)
	assert.Empty(t, cfg.Validate())
}

func TestResolveReadsFreshEachCall(t *testing.T) {
	store := MapStore{}
	r := NewResolver(store)
	assert.Equal(t, RenderIframe, r.Resolve().RenderMode)

	store["web-panel.renderMode"] = "fetch"
	assert.Equal(t, RenderFetch, r.Resolve().RenderMode)
}

func TestResolveWrongTypeFallsBack(t *testing.T) {
	store := MapStore{
		"web-panel.renderMode":         42,
		"web-panel.navigation.enabled": "yes",
	}
	cfg := NewResolver(store).Resolve()
	assert.Equal(t, RenderIframe, cfg.RenderMode)
	assert.True(t, cfg.NavigationEnabled)
}

func TestResolvePassesUnknownEnumThrough(t *testing.T) {
	store := MapStore{
		"web-panel.renderMode":            "canvas",
		"web-panel.security.sandboxLevel": "paranoid",
	}
	cfg := NewResolver(store).Resolve()
	assert.Equal(t, RenderMode("canvas"), cfg.RenderMode)
	assert.Equal(t, SandboxLevel("paranoid"), cfg.SandboxLevel)

	problems := cfg.Validate()
	require.Len(t, problems, 2)
	assert.Contains(t, problems[0].Error(), "canvas")
	assert.Contains(t, problems[1].Error(), "paranoid")
}

func TestValidateURL(t *testing.T) {
	cfg := Defaults()
	cfg.URL = "file:///etc/passwd"
	problems := cfg.Validate()
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0].Error(), "web-panel.url")
}

func writeSettings(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestViperStoreFlatKeys(t *testing.T) {
	path := writeSettings(t, t.TempDir(), `{
		"web-panel.renderMode": "fetch",
		"web-panel.navigation.allowExternal": true
	}`)

	store, err := NewViperStore(path, nil)
	require.NoError(t, err)

	cfg := NewResolver(store).Resolve()
	assert.Equal(t, RenderFetch, cfg.RenderMode)
	assert.True(t, cfg.AllowExternal)
	assert.True(t, cfg.NavigationEnabled)
	assert.Equal(t, SandboxMedium, cfg.SandboxLevel)
}

func TestViperStoreNestedKeys(t *testing.T) {
	path := writeSettings(t, t.TempDir(), `{
		"web-panel": {
			"security": {"sandboxLevel": "relaxed"},
			"navigation": {"enabled": false}
		}
	}`)

	store, err := NewViperStore(path, nil)
	require.NoError(t, err)

	cfg := NewResolver(store).Resolve()
	assert.Equal(t, SandboxRelaxed, cfg.SandboxLevel)
	assert.False(t, cfg.NavigationEnabled)
}

func TestViperStoreMissingFile(t *testing.T) {
	store, err := NewViperStore(filepath.Join(t.TempDir(), "nope.json"), nil)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), NewResolver(store).Resolve())
}

func TestViperStoreEmptyPath(t *testing.T) {
	store, err := NewViperStore("", nil)
	require.NoError(t, err)
	require.NoError(t, store.Watch())
	_, ok := store.Get(Section + "." + KeyRenderMode)
	assert.False(t, ok)
}

func TestViperStoreMalformedFile(t *testing.T) {
	path := writeSettings(t, t.TempDir(), `{not json`)
	_, err := NewViperStore(path, nil)
	assert.Error(t, err)
}

func TestViperStoreSet(t *testing.T) {
	store, err := NewViperStore("", nil)
	require.NoError(t, err)

	store.Set("web-panel.renderMode", "fetch")
	assert.Equal(t, RenderFetch, NewResolver(store).Resolve().RenderMode)
}

func TestViperStoreWatch(t *testing.T) {
	dir := t.TempDir()
	path := writeSettings(t, dir, `{"web-panel.renderMode": "iframe"}`)

	store, err := NewViperStore(path, nil)
	require.NoError(t, err)

	changed := make(chan struct{}, 4)
	store.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	require.NoError(t, store.Watch())
	defer store.Close()

	writeSettings(t, dir, `{"web-panel.renderMode": "fetch"}`)

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("settings change was not observed")
	}
	assert.Eventually(t, func() bool {
		return NewResolver(store).Resolve().RenderMode == RenderFetch
	}, 2*time.Second, 20*time.Millisecond)
}
