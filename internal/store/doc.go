// Package store aggregates fetched CI runs into per-source status and a
// bounded history of recent runs.
//
// This package is internal to citui. The scheduler folds every fetched page
// into the store on its own goroutine; the terminal UI and the HTTP API read
// snapshots concurrently and subscribe to per-source updates.
//
// The main components are:
//
//   - [Store]: Interface defining fold, snapshot, and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [History]: Fixed-capacity, chronologically ordered recent runs
//   - [SourceStatus] and [Event]: Storage representations of a source and a run
//
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers miss updates rather than stall the scheduler).
package store
