package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Fixture.Validate(); err != nil {
		return fmt.Errorf("fixture config: %w", err)
	}

	if err := c.Extension.Validate(); err != nil {
		return fmt.Errorf("extension config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}

	if c.Metrics.Enabled && c.Metrics.Port == c.Server.Port {
		return fmt.Errorf("metrics port %d conflicts with server port", c.Metrics.Port)
	}

	return nil
}

func validPort(p int) bool {
	return p >= 1 && p <= 65535
}

func (s *ServerConfig) Validate() error {
	if s.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}

	if !validPort(s.Port) {
		return fmt.Errorf("invalid port: %d", s.Port)
	}

	if s.ReadTimeout < 0 || s.WriteTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}

	if s.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}

	if s.MessageRate <= 0 {
		return fmt.Errorf("message_rate must be positive")
	}

	if s.MessageBurst < 1 {
		return fmt.Errorf("message_burst must be at least 1")
	}

	return nil
}

func (f *FixtureConfig) Validate() error {
	if f.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}

	if !validPort(f.Port) {
		return fmt.Errorf("invalid port: %d", f.Port)
	}

	return nil
}

func (e *ExtensionConfig) Validate() error {
	if e.Root != "" {
		if isFilesystemRoot(e.Root) {
			return fmt.Errorf("extension root cannot be the filesystem root")
		}
		info, err := os.Stat(e.Root)
		if err != nil {
			return fmt.Errorf("extension root not found: %s", e.Root)
		}
		if !info.IsDir() {
			return fmt.Errorf("extension root is not a directory: %s", e.Root)
		}
	}

	if e.TemplatePath == "" {
		return fmt.Errorf("template_path is required")
	}

	if filepath.IsAbs(e.TemplatePath) {
		return fmt.Errorf("template_path must be relative to the extension root: %s", e.TemplatePath)
	}

	cleaned := filepath.Clean(e.TemplatePath)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return fmt.Errorf("template_path escapes the extension root: %s", e.TemplatePath)
	}

	for _, root := range e.UserRoots {
		if !filepath.IsAbs(root) {
			return fmt.Errorf("user root must be absolute: %s", root)
		}
		if isFilesystemRoot(root) {
			return fmt.Errorf("user root cannot be the filesystem root")
		}
	}

	return nil
}

// isFilesystemRoot reports whether p names "/" or a volume root.
func isFilesystemRoot(p string) bool {
	abs, err := filepath.Abs(p)
	if err != nil {
		return false
	}
	return filepath.Dir(abs) == abs
}

func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"panic": true,
		"fatal": true,
		"error": true,
		"warn":  true,
		"info":  true,
		"debug": true,
		"trace": true,
	}

	if !validLevels[l.Level] {
		return fmt.Errorf("invalid log level: %s", l.Level)
	}

	if l.Format != "json" && l.Format != "text" {
		return fmt.Errorf("invalid log format: %s", l.Format)
	}

	if l.Output == "" {
		return fmt.Errorf("log output is required")
	}

	if l.MaxSize < 0 || l.MaxBackups < 0 || l.MaxAge < 0 {
		return fmt.Errorf("log rotation settings cannot be negative")
	}

	return nil
}

func (m *MetricsConfig) Validate() error {
	if !m.Enabled {
		return nil
	}

	if !validPort(m.Port) {
		return fmt.Errorf("invalid metrics port: %d", m.Port)
	}

	if !strings.HasPrefix(m.Path, "/") {
		return fmt.Errorf("metrics path must start with /: %s", m.Path)
	}

	return nil
}
