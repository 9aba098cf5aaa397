package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/citui"
	"github.com/jpalmerr/citui/config"
)

// validateCmd validates a config file without starting the dashboard.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a citui configuration file without starting the dashboard.

This command parses the file, expands environment variables, validates all
fields, and builds every source, so duplicate sources and bad matrix
templates are reported too. It's useful for CI/CD pipelines or dotfile
checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  citui validate -c citui.yaml
  citui validate --config ~/.config/citui/citui.toml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	opts, err := config.Options(cfg)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	dash, err := citui.New(opts...)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	sources := dash.Sources()
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Config is valid!\n")
	_, _ = fmt.Fprintf(out, "  Tick rate:     %s\n", dash.TickRate())
	_, _ = fmt.Fprintf(out, "  History size:  %d\n", dash.HistorySize())
	_, _ = fmt.Fprintf(out, "  Sources:       %d direct + %d from matrices = %d total\n",
		len(cfg.Sources), len(sources)-len(cfg.Sources), len(sources))
	for i, label := range citui.Labels(sources) {
		_, _ = fmt.Fprintf(out, "    %-40s %s\n", label, sources[i].Key())
	}
	if n, ok := dash.Notifications(); ok {
		_, _ = fmt.Fprintf(out, "  Notifications: every %s\n", n.Refresh)
	}

	return nil
}
