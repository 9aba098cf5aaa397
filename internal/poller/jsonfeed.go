package poller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// JSONFeed reads runs from an arbitrary JSON endpoint using dot paths.
//
// Example response for Fields{Items: "data.runs", Status: "state", Time: "finished_at"}:
//
//	{"data": {"runs": [{"state": "passed", "finished_at": "2024-03-01T12:00:00Z"}]}}
type JSONFeed struct {
	client *Client
}

// NewJSONFeed creates a generic JSON provider.
func NewJSONFeed(client *Client) *JSONFeed {
	return &JSONFeed{client: client}
}

// Fetch implements [Provider]. Runs are returned newest first regardless of
// the order in the document; runs without a parsable time keep their
// relative order after the timed ones.
func (j *JSONFeed) Fetch(ctx context.Context, src SourceInfo) (Page, error) {
	body, err := get(ctx, j.client, src, src.URL, map[string]string{"Accept": "application/json"})
	if err != nil {
		return Page{}, err
	}

	var doc any
	if err := decodeJSON(src, body, &doc); err != nil {
		return Page{}, err
	}

	node, ok := lookupPath(doc, splitPath(src.Fields.Items))
	if !ok {
		return Page{}, &FetchError{Kind: ErrDecode, Source: src.Key, Err: fmt.Errorf("items path %q not found", src.Fields.Items)}
	}
	if node == nil {
		return Page{}, nil
	}
	list, ok := node.([]any)
	if !ok {
		return Page{}, &FetchError{Kind: ErrDecode, Source: src.Key, Err: errors.New("items path does not point at an array")}
	}

	statusPath := splitPath(src.Fields.Status)
	if len(statusPath) == 0 {
		statusPath = []string{"status"}
	}

	items := make([]Item, 0, len(list))
	for _, elem := range list {
		items = append(items, Item{
			ID:          scalarAt(elem, splitPath(src.Fields.ID)),
			Status:      src.mapStatus(scalarAt(elem, statusPath), genericStatus),
			CompletedAt: parseJSONTime(scalarAt(elem, splitPath(src.Fields.Time))),
			URL:         scalarAt(elem, splitPath(src.Fields.URL)),
		})
	}

	sort.SliceStable(items, func(a, b int) bool {
		ta, tb := items[a].CompletedAt, items[b].CompletedAt
		if ta.IsZero() || tb.IsZero() {
			return !ta.IsZero() && tb.IsZero()
		}
		return ta.After(tb)
	})

	return Page{Items: items}, nil
}

// BrowseURL implements [Provider].
func (j *JSONFeed) BrowseURL(src SourceInfo) string {
	return src.URL
}

func splitPath(path string) []string {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// lookupPath walks a decoded JSON value using object keys.
func lookupPath(data any, parts []string) (any, bool) {
	current := data
	for _, part := range parts {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// scalarAt returns the value at path as a string, or "" when absent or not a
// scalar. An empty path yields "".
func scalarAt(data any, parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	v, ok := lookupPath(data, parts)
	if !ok {
		return ""
	}

	switch v := v.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// parseJSONTime accepts RFC 3339 strings and unix seconds.
func parseJSONTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Unix(int64(secs), 0).UTC()
	}
	return time.Time{}
}

// genericStatus maps common CI vocabulary onto the dashboard's labels.
func genericStatus(raw string) string {
	switch s := strings.ToLower(strings.TrimSpace(raw)); s {
	case "success", "succeeded", "passed", "pass", "ok", "green", "fixed":
		return "success"
	case "failed", "failure", "fail", "broken", "red", "still failing":
		return "failed"
	case "error", "errored", "timeout", "timed_out":
		return "error"
	case "canceled", "cancelled", "aborted":
		return "canceled"
	case "":
		return "unknown"
	default:
		return s
	}
}
