// Package main is the entry point for the citui CLI.
//
// citui can be run either as a library (SDK) or as a standalone binary
// with a YAML or TOML configuration file. This CLI provides the standalone
// binary approach.
//
// Usage:
//
//	citui run -c citui.yaml      # Start the dashboard
//	citui validate -c citui.yaml # Validate configuration
//	citui version                # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "citui",
	Short: "A terminal dashboard for CI status",
	Long: `citui is a terminal dashboard for continuous integration status.

It polls CircleCI, GitHub Actions, CCTray feeds and JSON endpoints one
source at a time, shows every source colour-coded by its latest run, and
keeps the most recently completed runs across all sources.

Quick start:
  1. Create a config file (citui.yaml)
  2. Run: citui run -c citui.yaml
  3. Navigate with j/k, open a source with enter, quit with q

Example config:
  tokens:
    circleci: ${CIRCLE_TOKEN}
  sources:
    - kind: circleci
      name: acme/api
      workflow: build
      branch: main`,
	SilenceUsage: true,
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this citui binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "citui %s\n", version)
		_, _ = fmt.Fprintf(out, "  commit: %s\n", commit)
		_, _ = fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
