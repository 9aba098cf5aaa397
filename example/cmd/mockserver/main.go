// Standalone mock CI server for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/citui run -c example/citui.yaml
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jpalmerr/citui/example/mockci"
)

func main() {
	fmt.Println("Mock CI server starting on :9999")
	fmt.Println("Workflows complete a new run every 20-60s")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	mock := mockci.New(logger, "nightly", "docs")

	if err := http.ListenAndServe(":9999", mock.Handler()); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
