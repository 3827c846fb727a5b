package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zsiec/webpanel/internal/config"
	"github.com/zsiec/webpanel/internal/fixture"
	"github.com/zsiec/webpanel/internal/logger"
)

func newFixtureCmd(configPath *string) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "fixture",
		Short: "Run the test dashboard server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := logger.New(&cfg.Logging)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Fixture.Port = port
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return fixture.New(cfg.Fixture, log).Start(ctx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 3019, "Port to listen on")
	return cmd
}
