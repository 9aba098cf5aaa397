// Package tui renders the citui dashboard with Bubble Tea.
//
// The UI shows every source in one or more columns, coloured by status, and
// a panel of the most recently completed runs across all sources. It reads
// snapshots of the status store and owns nothing but presentation state:
// two selection lists, the filter text and which panel has focus.
package tui
