package citui

import "time"

// Status is the label of a CI run or source, e.g. "success" or "failed".
//
// Status is a free-form string: providers report the predefined values below
// for the outcomes they recognise and pass anything else through lowercased,
// so a dashboard may show labels such as "on_hold" verbatim.
type Status string

const (
	// StatusSuccess indicates the run passed.
	StatusSuccess Status = "success"

	// StatusFailed indicates the run failed its checks.
	StatusFailed Status = "failed"

	// StatusError indicates the run could not complete, e.g. an
	// infrastructure failure or timeout on the provider side.
	StatusError Status = "error"

	// StatusCanceled indicates the run was cancelled.
	StatusCanceled Status = "canceled"

	// StatusRunning indicates the run has not finished yet.
	StatusRunning Status = "running"

	// StatusUnknown indicates no run data: the source has not been polled
	// yet, or its provider returned an empty result.
	StatusUnknown Status = "unknown"
)

// String returns the string representation of the status.
// This implements the fmt.Stringer interface.
func (s Status) String() string {
	return string(s)
}

// StatusMapper translates a provider's raw status string into a [Status].
//
// A mapper replaces the provider's built-in mapping for a source. It should
// be a pure function. See [StatusMap] for a table-driven mapper.
type StatusMapper func(raw string) Status

// Run is one completed CI run reported by a poll.
type Run struct {
	// ID is the provider's run identifier; may be empty.
	ID string

	// Status is the run's outcome.
	Status Status

	// CompletedAt is when the run finished; zero if unknown.
	CompletedAt time.Time

	// URL links to the run, if the provider reports one.
	URL string
}

// StatusResult holds the outcome of polling a single source.
//
// StatusResult is delivered to callbacks registered with
// [WithStatusCallback], once per serviced tick.
type StatusResult struct {
	// Source is the polled source.
	Source Source

	// Label is the source's disambiguated display label.
	Label string

	// Status is the source's status after the poll. For a failed poll it is
	// the previous status, which failures never overwrite.
	Status Status

	// Runs are the fetched runs, newest first. Empty when Error is set.
	Runs []Run

	// Latency is the time taken by the provider request.
	Latency time.Duration

	// CheckedAt is the timestamp when the poll completed.
	CheckedAt time.Time

	// Error contains the transport or decode error, if any.
	Error error
}
