package render

import (
	"net/url"
	"strings"

	"github.com/zsiec/webpanel/internal/settings"
)

const (
	sandboxStrict  = "allow-scripts"
	sandboxMedium  = sandboxStrict + " allow-same-origin allow-forms"
	sandboxRelaxed = sandboxMedium + " allow-popups allow-popups-to-escape-sandbox allow-modals allow-downloads"
)

// SandboxAttribute maps a sandbox level to the iframe sandbox tokens.
// Unknown levels get the strict set.
func SandboxAttribute(level settings.SandboxLevel) string {
	switch level {
	case settings.SandboxMedium:
		return sandboxMedium
	case settings.SandboxRelaxed:
		return sandboxRelaxed
	default:
		return sandboxStrict
	}
}

// Origin returns scheme://host for an http(s) URL, or "'none'".
func Origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "'none'"
	}
	return u.Scheme + "://" + u.Host
}

// ContentSecurityPolicy builds the policy for one render. Frames and
// fetches may only reach the dashboard origin and scripts need the nonce.
func ContentSecurityPolicy(dashboardURL, cspSource, nonce string) string {
	origin := Origin(dashboardURL)
	local := strings.TrimSpace(cspSource)

	directives := []string{
		"default-src 'none'",
		"frame-src " + origin,
		"connect-src " + origin,
		join("img-src", local, origin, "https:", "data:"),
		join("style-src", local, "'unsafe-inline'"),
		join("font-src", local, origin),
		"script-src 'nonce-" + nonce + "'",
	}
	return strings.Join(directives, "; ")
}

func join(directive string, sources ...string) string {
	parts := []string{directive}
	for _, s := range sources {
		if s == "" || s == "'none'" {
			continue
		}
		parts = append(parts, s)
	}
	if len(parts) == 1 {
		parts = append(parts, "'none'")
	}
	return strings.Join(parts, " ")
}
