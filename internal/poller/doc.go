// Package poller schedules and performs CI status fetches for citui.
//
// This package is internal to citui. It owns the per-source countdowns and
// guarantees that at most one provider request is issued per scheduling
// tick, no matter how many sources are due.
//
// The main components are:
//
//   - [Scheduler]: Tick-driven scheduler with per-source countdowns
//   - [Client]: HTTP client wrapper with timeouts, size limits, and a rate cap
//   - [Provider]: CI backends ([CircleCI], [GitHub], [CCTray], [JSONFeed]) behind a [Mux]
//   - [SourceInfo] and [Page]: What to poll and what came back
//
// Users of the citui library should not need to interact with this
// package directly. Configuration is done through the main citui package.
package poller
