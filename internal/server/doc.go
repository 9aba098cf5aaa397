// Package server provides the optional read-only HTTP API of citui.
//
// This package is internal to citui and handles all HTTP concerns:
//
//   - REST API: JSON endpoint at "/api/status" for the current snapshot
//   - Server-Sent Events: per-source updates at "/api/sse"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// Users of the citui library should not need to interact with this package
// directly. The server is started by [citui.Dashboard.Run] when a listen
// address is configured.
package server
