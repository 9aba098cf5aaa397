package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Provider kinds understood by [Mux].
const (
	KindCircleCI = "circleci"
	KindGitHub   = "github"
	KindCCTray   = "cctray"
	KindJSON     = "json"

	// KindNotifications is the GitHub notifications inbox. It is scheduled
	// like a source but is not a CI source.
	KindNotifications = "notifications"
)

// defaultTimeout applies when a source does not carry its own timeout.
const defaultTimeout = 10 * time.Second

// StatusMapper translates a provider's raw status string into a status label.
//
// This is the poller-internal counterpart of the public citui.StatusMapper,
// returning a plain string to avoid circular dependencies.
type StatusMapper func(raw string) string

// Fields are dot-notation paths into a generic JSON response.
type Fields struct {
	// Items locates the array of runs. Empty means the document is the array.
	Items string

	// Status, Time, ID and URL are paths inside each run object.
	Status string
	Time   string
	ID     string
	URL    string
}

// SourceInfo contains everything needed to poll a single source.
//
// This is the poller-internal representation of a source, decoupled from the
// public citui.Source type to avoid circular dependencies.
type SourceInfo struct {
	// Key uniquely identifies the source.
	Key string

	// Kind selects the provider, e.g. [KindCircleCI].
	Kind string

	// Name is the repository slug ("org/repo") or display name.
	Name string

	// Branch and Workflow narrow the runs; both may be empty.
	Branch   string
	Workflow string

	// URL overrides the provider's API base, or is the feed URL for
	// cctray and json sources.
	URL string

	// Project selects a project inside a CCTray feed. Defaults to Name.
	Project string

	// Token is the provider credential, if any.
	Token string

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string

	// Timeout bounds one fetch. Zero uses a 10 second default.
	Timeout time.Duration

	// RefreshTicks is the number of ticks to wait after a successful poll.
	RefreshTicks int

	// Fields configures the json provider.
	Fields Fields

	// MapStatus overrides the provider's built-in status mapping.
	MapStatus StatusMapper
}

func (s SourceInfo) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return defaultTimeout
}

// mapStatus applies the source's mapper, falling back to the provider default.
func (s SourceInfo) mapStatus(raw string, fallback StatusMapper) string {
	if s.MapStatus != nil {
		return s.MapStatus(raw)
	}
	return fallback(raw)
}

// Item is one completed run reported by a provider.
type Item struct {
	ID          string
	Status      string
	CompletedAt time.Time
	URL         string
}

// Notification is one unread GitHub notification.
type Notification struct {
	ID         string
	Repository string
	Title      string
	Reason     string
	UpdatedAt  time.Time
	URL        string
}

// Page is one fetched batch of runs, newest first.
type Page struct {
	Items []Item

	// Notifications is filled by the notifications provider instead of Items.
	Notifications []Notification

	// Continuation is the provider's token for the next page, if any.
	// Only the first page is ever fetched.
	Continuation string
}

// Provider fetches the latest runs for a source.
type Provider interface {
	// Fetch issues exactly one request for the source's newest runs.
	Fetch(ctx context.Context, src SourceInfo) (Page, error)

	// BrowseURL returns a human-facing URL for the source.
	BrowseURL(src SourceInfo) string
}

// Mux dispatches to a [Provider] by source kind.
type Mux map[string]Provider

// Fetch forwards to the provider registered for src.Kind.
func (m Mux) Fetch(ctx context.Context, src SourceInfo) (Page, error) {
	p, ok := m[src.Kind]
	if !ok {
		return Page{}, &FetchError{Kind: ErrTransport, Source: src.Key, Err: fmt.Errorf("no provider for kind %q", src.Kind)}
	}
	return p.Fetch(ctx, src)
}

// BrowseURL forwards to the provider registered for src.Kind.
func (m Mux) BrowseURL(src SourceInfo) string {
	if p, ok := m[src.Kind]; ok {
		return p.BrowseURL(src)
	}
	return src.URL
}

// NewMux returns a Mux with every built-in provider sharing client.
func NewMux(client *Client) Mux {
	return Mux{
		KindCircleCI: NewCircleCI(client),
		KindGitHub:   NewGitHub(client),
		KindCCTray:   NewCCTray(client),
		KindJSON:     NewJSONFeed(client),

		KindNotifications: NewNotifications(client),
	}
}

// ErrorKind classifies a failed fetch.
type ErrorKind int

const (
	// ErrTransport covers connection failures, timeouts, and non-2xx replies.
	ErrTransport ErrorKind = iota

	// ErrDecode covers bodies that could not be parsed.
	ErrDecode
)

func (k ErrorKind) String() string {
	if k == ErrDecode {
		return "decode"
	}
	return "transport"
}

// FetchError is returned by providers for any failed fetch. The scheduler
// treats both kinds identically.
type FetchError struct {
	Kind   ErrorKind
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s error for %s: %v", e.Kind, e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsDecode reports whether err is a decode failure.
func IsDecode(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == ErrDecode
}

// get fetches url and returns the body of a 2xx response.
func get(ctx context.Context, client *Client, src SourceInfo, url string, headers map[string]string) ([]byte, error) {
	for k, v := range src.Headers {
		headers[k] = v
	}

	resp := client.Fetch(ctx, "", url, headers, src.timeout())
	if resp.Error != nil {
		return nil, &FetchError{Kind: ErrTransport, Source: src.Key, Err: resp.Error}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{Kind: ErrTransport, Source: src.Key, Err: fmt.Errorf("unexpected HTTP status %d", resp.StatusCode)}
	}
	return resp.Body, nil
}

// decodeJSON unmarshals body into v, wrapping failures as decode errors.
func decodeJSON(src SourceInfo, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return &FetchError{Kind: ErrDecode, Source: src.Key, Err: err}
	}
	return nil
}
