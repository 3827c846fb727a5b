// Package settings resolves the dashboard's user settings into an
// ExtensionConfig snapshot. Settings are read fresh on every call so a
// re-render always sees the current values.
package settings

import (
	"fmt"
	"net/url"
)

// Section is the namespace every key lives under.
const Section = "web-panel"

// Setting keys, relative to Section.
const (
	KeyRenderMode        = "renderMode"
	KeyNavigationEnabled = "navigation.enabled"
	KeyAllowExternal     = "navigation.allowExternal"
	KeySandboxLevel      = "security.sandboxLevel"
	KeyURL               = "url"
)

// RenderMode selects how the dashboard is embedded.
type RenderMode string

const (
	RenderIframe RenderMode = "iframe"
	RenderFetch  RenderMode = "fetch"
)

// SandboxLevel selects the iframe sandbox strictness.
type SandboxLevel string

const (
	SandboxStrict  SandboxLevel = "strict"
	SandboxMedium  SandboxLevel = "medium"
	SandboxRelaxed SandboxLevel = "relaxed"
)

// DefaultURL points at the local fixture server.
const DefaultURL = "http://localhost:3019/dashboard"

// ExtensionConfig is a read-only snapshot of the settings for one render.
type ExtensionConfig struct {
	RenderMode        RenderMode   `json:"renderMode"`
	NavigationEnabled bool         `json:"navigationEnabled"`
	AllowExternal     bool         `json:"allowExternal"`
	SandboxLevel      SandboxLevel `json:"sandboxLevel"`
	URL               string       `json:"url"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() ExtensionConfig {
	return ExtensionConfig{
		RenderMode:        RenderIframe,
		NavigationEnabled: true,
		AllowExternal:     false,
		SandboxLevel:      SandboxMedium,
		URL:               DefaultURL,
	}
}

// Valid reports whether m is a known render mode.
func (m RenderMode) Valid() bool {
	return m == RenderIframe || m == RenderFetch
}

// Valid reports whether l is a known sandbox level.
func (l SandboxLevel) Valid() bool {
	switch l {
	case SandboxStrict, SandboxMedium, SandboxRelaxed:
		return true
	}
	return false
}

// Validate lists values outside their enums. Rendering never calls it;
// out-of-range values are passed through as-is.
func (c ExtensionConfig) Validate() []error {
	var problems []error
	if !c.RenderMode.Valid() {
		problems = append(problems, fmt.Errorf("%s.%s: unknown render mode %q", Section, KeyRenderMode, c.RenderMode))
	}
	if !c.SandboxLevel.Valid() {
		problems = append(problems, fmt.Errorf("%s.%s: unknown sandbox level %q", Section, KeySandboxLevel, c.SandboxLevel))
	}
	if u, err := url.Parse(c.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		problems = append(problems, fmt.Errorf("%s.%s: not an http(s) url %q", Section, KeyURL, c.URL))
	}
	return problems
}
