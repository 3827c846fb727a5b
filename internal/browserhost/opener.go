package browserhost

import (
	"context"
	"net/url"
	"os/exec"
	"runtime"

	"github.com/zsiec/webpanel/internal/logger"
)

// SystemOpener opens URIs with the operating system's default handler.
type SystemOpener struct {
	logger logger.Logger
	start  func(name string, args ...string) error
}

// NewSystemOpener returns an opener that launches the platform browser.
func NewSystemOpener(log logger.Logger) *SystemOpener {
	return &SystemOpener{logger: logger.OrNull(log), start: startDetached}
}

// OpenExternal implements host.ExternalOpener.
func (o *SystemOpener) OpenExternal(_ context.Context, target *url.URL) error {
	name, args := browserCommand(runtime.GOOS, target.String())
	if err := o.start(name, args...); err != nil {
		return err
	}
	o.logger.WithField("url", target.Redacted()).Info("Opened external URL")
	return nil
}

func browserCommand(goos, target string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{target}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}
	default:
		return "xdg-open", []string{target}
	}
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
