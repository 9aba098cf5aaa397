package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/citui"
	"github.com/jpalmerr/citui/example/mockci"
)

const mockAddr = "127.0.0.1:9999"

func main() {
	// logs go to a file: the terminal belongs to the dashboard
	logFile, err := os.CreateTemp("", "citui-demo-*.log")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create log file:", err)
		os.Exit(1)
	}
	defer func() { _ = logFile.Close() }()
	logger := slog.New(slog.NewJSONHandler(logFile, nil))

	// start mock CI server (see mockci)
	mock := mockci.New(logger, "nightly", "docs")
	go func() {
		if err := http.ListenAndServe(mockAddr, mock.Handler()); err != nil {
			logger.Error("mock server error", "error", err)
		}
	}()
	time.Sleep(100 * time.Millisecond)

	// matrix: 2 repos × 2 branches × 1 workflow = 4 sources from one declaration
	sources, err := citui.NewSourceMatrix(citui.KindCircleCI,
		citui.WithRepos("acme/api", "acme/web"),
		citui.WithBranches("main", "release"),
		citui.WithWorkflows("build"),
		citui.WithSourceOptions(
			citui.WithURL("http://"+mockAddr),
			citui.WithRefresh(5*time.Second),
		),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create source matrix:", err)
		os.Exit(1)
	}

	// a CCTray project on a slower refresh
	nightly, _ := citui.NewSource(citui.KindCCTray, "nightly",
		citui.WithURL("http://"+mockAddr+"/cc.xml"),
		citui.WithRefresh(30*time.Second),
	)
	sources = append(sources, nightly)

	dash, err := citui.New(
		citui.WithSources(sources...),
		citui.WithTitle("citui demo"),
		citui.WithLogger(logger),
		citui.WithStatusCallback(func(r citui.StatusResult) {
			if r.Error == nil && r.Status == citui.StatusFailed {
				logger.Warn("source is red", "source", r.Label)
			}
		}),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create dashboard:", err)
		os.Exit(1)
	}

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := dash.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "citui error:", err)
		os.Exit(1)
	}
	fmt.Println("logs written to", logFile.Name())
}
