package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/zsiec/webpanel/internal/browserhost"
	"github.com/zsiec/webpanel/internal/host"
	"github.com/zsiec/webpanel/internal/panel"
)

func newRenderCmd(configPath *string) *cobra.Command {
	var out string
	var overrides []string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the dashboard page for the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.applyOverrides(overrides); err != nil {
				return err
			}

			// A detached host gives the page the CSP source it would be
			// served with.
			bh := browserhost.New(browserhost.Options{Origin: "http://" + a.cfg.Server.Addr()}, a.log)
			wp, err := bh.CreateWebviewPanel(panel.ViewType, panel.Title, host.ColumnOne, host.WebviewOptions{
				EnableScripts:      true,
				LocalResourceRoots: a.roots,
			})
			if err != nil {
				return err
			}

			html, err := a.renderer.Render(a.resolver.Resolve(), wp.Webview())
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			_, err = io.WriteString(w, html)
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Write to file instead of stdout")
	cmd.Flags().StringArrayVar(&overrides, "set", nil, "Override a setting, e.g. --set renderMode=fetch")
	return cmd
}
