package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the process configuration for the local host and the fixture
// server. Dashboard settings (render mode, sandbox level, ...) live in the
// separate settings store read by package settings.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Fixture   FixtureConfig   `mapstructure:"fixture"`
	Extension ExtensionConfig `mapstructure:"extension"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	DebugEndpoints  bool          `mapstructure:"debug_endpoints"`

	// Per-connection limit on messages posted by webview script.
	MessageRate  float64 `mapstructure:"message_rate"` // messages per second
	MessageBurst int     `mapstructure:"message_burst"`
}

type FixtureConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	Port       int    `mapstructure:"port"`
}

type ExtensionConfig struct {
	// Root is the extension's own directory. Empty means the embedded
	// template is used and no local resources are exposed.
	Root         string `mapstructure:"root"`
	TemplatePath string `mapstructure:"template_path"` // relative to Root
	SettingsFile string `mapstructure:"settings_file"`
	// WatchSettings reloads SettingsFile when it changes on disk.
	WatchSettings bool `mapstructure:"watch_settings"`
	// UserRoots are directories the user explicitly allowed webviews to load
	// files from, in addition to Root.
	UserRoots []string `mapstructure:"user_roots"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`      // json or text
	Output     string `mapstructure:"output"`      // stdout, stderr, or file path
	MaxSize    int    `mapstructure:"max_size"`    // MB
	MaxBackups int    `mapstructure:"max_backups"` // rotated files kept
	MaxAge     int    `mapstructure:"max_age"`     // days
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Port    int    `mapstructure:"port"`
}

// Addr returns the host server listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.ListenAddr, s.Port)
}

// Addr returns the fixture server listen address.
func (f FixtureConfig) Addr() string {
	return fmt.Sprintf("%s:%d", f.ListenAddr, f.Port)
}

// Load reads configPath (YAML) over the defaults. An empty path loads the
// defaults plus WEBPANEL_* environment overrides only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// Environment variable override
	v.SetEnvPrefix("WEBPANEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Host server defaults
	v.SetDefault("server.listen_addr", "127.0.0.1")
	v.SetDefault("server.port", 3020)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("server.debug_endpoints", false)
	v.SetDefault("server.message_rate", 50)
	v.SetDefault("server.message_burst", 100)

	// Fixture defaults
	v.SetDefault("fixture.listen_addr", "127.0.0.1")
	v.SetDefault("fixture.port", 3019)

	// Extension defaults
	v.SetDefault("extension.root", "")
	v.SetDefault("extension.template_path", "media/dashboard.html")
	v.SetDefault("extension.settings_file", "")
	v.SetDefault("extension.watch_settings", true)
	v.SetDefault("extension.user_roots", []string{})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.max_size", 20)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 14)

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.port", 9091)
}
