package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/citui"
	"github.com/jpalmerr/citui/config"
)

// runCmd starts the dashboard.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the dashboard",
	Long: `Start the citui dashboard.

The dashboard will:
  - Load configuration from the specified YAML or TOML file
  - Poll one due source per tick
  - Show every source and the most recent runs in the terminal

The terminal belongs to the dashboard while it runs, so logs are written
to a file (default: $XDG_CACHE_HOME/citui/citui.log).

With --headless no terminal UI is shown and the dashboard runs until
interrupted (Ctrl+C) or it receives SIGTERM; combine it with --listen to
serve the status API.

Example:
  citui run -c citui.yaml
  citui run -c citui.toml --listen 127.0.0.1:8080
  citui run -c citui.yaml --headless --listen :8080 --log-file -`,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	runCmd.Flags().String("log-file", "", `log file path, "-" for stderr (default $XDG_CACHE_HOME/citui/citui.log)`)
	runCmd.Flags().BoolP("verbose", "v", false, "log every poll at debug level")
	runCmd.Flags().Bool("headless", false, "poll without the terminal UI")
	runCmd.Flags().String("listen", "", "serve the status API on this address, overriding the config")
	_ = runCmd.MarkFlagRequired("config")
}

func runDashboard(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	logFile, _ := cmd.Flags().GetString("log-file")
	verbose, _ := cmd.Flags().GetBool("verbose")
	headless, _ := cmd.Flags().GetBool("headless")
	listen, _ := cmd.Flags().GetString("listen")

	logger, closeLog, err := newLogger(logFile, verbose)
	if err != nil {
		return err
	}
	defer closeLog()

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Info("config loaded",
		"path", configFile,
		"sources", len(cfg.Sources),
		"matrices", len(cfg.Matrices),
	)

	opts, err := config.Options(cfg)
	if err != nil {
		return fmt.Errorf("failed to build sources: %w", err)
	}
	opts = append(opts, citui.WithLogger(logger))
	if listen != "" {
		opts = append(opts, citui.WithListenAddr(listen))
	}
	if headless {
		opts = append(opts, citui.WithHeadless())
	}

	dash, err := citui.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create dashboard: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := dash.Run(ctx); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// newLogger creates the JSON logger for CLI use. The returned function
// closes the log file, if one was opened.
func newLogger(path string, verbose bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	var (
		w       io.Writer = os.Stderr
		closeFn           = func() {}
	)
	if path != "-" {
		if path == "" {
			var err error
			if path, err = defaultLogPath(); err != nil {
				return nil, nil, err
			}
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	return logger, closeFn, nil
}

// defaultLogPath returns citui.log inside the user cache directory, which
// honours $XDG_CACHE_HOME.
func defaultLogPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate cache directory: %w", err)
	}
	return filepath.Join(dir, "citui", "citui.log"), nil
}
