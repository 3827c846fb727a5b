package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newSettingsCmd(configPath *string) *cobra.Command {
	var strict bool
	var overrides []string

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Print the resolved dashboard settings",
		Long: `Print the web-panel settings as the extension sees them, with defaults
applied, and report values that are out of range.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.applyOverrides(overrides); err != nil {
				return err
			}

			resolved := a.resolver.Resolve()
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(resolved); err != nil {
				return err
			}

			problems := resolved.Validate()
			for _, p := range problems {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", p)
			}
			if strict && len(problems) > 0 {
				return fmt.Errorf("%d invalid setting(s)", len(problems))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when a setting is out of range")
	cmd.Flags().StringArrayVar(&overrides, "set", nil, "Override a setting, e.g. --set renderMode=fetch")
	return cmd
}
