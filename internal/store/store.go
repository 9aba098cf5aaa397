package store

import "time"

// NotificationsKey identifies notification updates on subscriber channels.
// It cannot collide with a source key because no provider kind is called
// "notifications".
const NotificationsKey = "notifications:github"

// StatusUnknown marks a source that has not reported any run yet, or whose
// provider returned a well-formed but empty result.
const StatusUnknown = "unknown"

// EmptyPolicy decides what an empty page does to a source's status.
type EmptyPolicy int

const (
	// EmptyUnknown sets the status to [StatusUnknown] on every empty page.
	EmptyUnknown EmptyPolicy = iota

	// EmptyRetain keeps the last real status of a source that has reported
	// at least once; sources that never reported become unknown.
	EmptyRetain
)

// SourceStatus is the current state of one monitored source.
//
// It is the storage representation used by the terminal UI, the JSON API,
// and the SSE stream, and is decoupled from the poller's types.
type SourceStatus struct {
	// Key is the unique identity of the source.
	Key string `json:"key"`

	// Label is the display name, disambiguated against the registry.
	Label string `json:"label"`

	// Detail is the fully qualified name (always includes workflow/branch).
	Detail string `json:"detail"`

	// Provider is the provider kind, e.g. "circleci".
	Provider string `json:"provider"`

	// URL is where the source can be browsed.
	URL string `json:"url"`

	// Status is the newest run's status label.
	Status string `json:"status"`

	// CheckedAt is the time of the last successful fetch.
	CheckedAt time.Time `json:"checked_at"`

	// Error is the last fetch failure, cleared by the next successful fetch.
	Error *string `json:"error"`

	// reported is true once a non-empty page has been folded.
	reported bool
}

// Run is one item of a fetched page.
type Run struct {
	ID          string
	Status      string
	CompletedAt time.Time
	URL         string
}

// Event is one completed run recorded for cross-source display.
type Event struct {
	Key         string    `json:"key"`
	Label       string    `json:"label"`
	RunID       string    `json:"run_id,omitempty"`
	Status      string    `json:"status"`
	CompletedAt time.Time `json:"completed_at"`
	URL         string    `json:"url,omitempty"`
}

// Notification is one unread GitHub notification.
type Notification struct {
	ID         string    `json:"id"`
	Repository string    `json:"repository"`
	Title      string    `json:"title"`
	Reason     string    `json:"reason,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
	URL        string    `json:"url,omitempty"`
}

// Snapshot is a point-in-time copy of the whole store.
type Snapshot struct {
	// Sources are in registration order.
	Sources []SourceStatus `json:"sources"`

	// Recent runs are oldest first.
	Recent []Event `json:"recent"`

	// Notifications are newest first, as last fetched.
	Notifications []Notification `json:"notifications"`
}

// Store defines the interface for aggregating and subscribing to status updates.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Register adds a source with an initial status. Registering an existing
	// key is a no-op.
	Register(status SourceStatus)

	// Fold merges a newest-first page of runs fetched at the given time.
	Fold(key string, runs []Run, at time.Time)

	// RecordError notes a failed fetch without changing the source status.
	RecordError(key string, err error, at time.Time)

	// SetNotifications replaces the unread notifications.
	SetNotifications(items []Notification, at time.Time)

	// Get returns the current status of one source.
	Get(key string) (SourceStatus, bool)

	// Snapshot returns a copy of all sources and recent runs.
	Snapshot() Snapshot

	// Subscribe returns a channel that receives per-source updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan SourceStatus

	// Unsubscribe removes a subscription and closes the channel.
	Unsubscribe(ch <-chan SourceStatus)
}
