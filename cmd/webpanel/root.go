package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zsiec/webpanel/internal/config"
	"github.com/zsiec/webpanel/internal/host"
	"github.com/zsiec/webpanel/internal/logger"
	"github.com/zsiec/webpanel/internal/render"
	"github.com/zsiec/webpanel/internal/settings"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "webpanel",
		Short:         "Embed a web dashboard in editor panels and sidebar views",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (YAML)")

	root.AddCommand(
		newServeCmd(&configPath),
		newFixtureCmd(&configPath),
		newRenderCmd(&configPath),
		newSettingsCmd(&configPath),
		newVersionCmd(),
	)
	return root
}

// app holds what every command builds from the configuration.
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	store    *settings.ViperStore
	resolver *settings.Resolver
	renderer *render.Renderer
	// roots are the extension root, when set, then the user roots.
	roots []*url.URL
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log.WithField("config_path", configPath).Debug("Configuration loaded")

	store, err := settings.NewViperStore(cfg.Extension.SettingsFile, logger.ForComponent(log, "settings"))
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		store:    store,
		resolver: settings.NewResolver(store),
		renderer: render.ForRoot(cfg.Extension.Root, cfg.Extension.TemplatePath, logger.ForComponent(log, "render")),
	}
	var extRoot string
	if cfg.Extension.Root != "" {
		if extRoot, err = filepath.Abs(cfg.Extension.Root); err != nil {
			return nil, fmt.Errorf("failed to resolve extension root: %w", err)
		}
	}
	a.roots = host.FileURIs(append([]string{extRoot}, cfg.Extension.UserRoots...)...)
	return a, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to stop settings watcher")
	}
}

// applyOverrides sets key=value pairs, keys relative to the web-panel
// section, on top of the settings file. Values that parse as JSON keep
// their JSON type; anything else is a string.
func (a *app) applyOverrides(pairs []string) error {
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid override %q, want key=value", pair)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		a.store.Set(settings.Section+"."+key, value)
	}
	return nil
}
