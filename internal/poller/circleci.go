package poller

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	circleCIAPIBase = "https://circleci.com/api/v2"
	circleCIWebBase = "https://circleci.com"
)

// CircleCI reads workflow runs from the CircleCI insights API.
type CircleCI struct {
	client *Client
}

// NewCircleCI creates a CircleCI provider.
func NewCircleCI(client *Client) *CircleCI {
	return &CircleCI{client: client}
}

type circleCIPage struct {
	NextPageToken *string        `json:"next_page_token"`
	Items         []circleCIItem `json:"items"`
}

type circleCIItem struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	StoppedAt time.Time `json:"stopped_at"`
}

// Fetch implements [Provider].
func (c *CircleCI) Fetch(ctx context.Context, src SourceInfo) (Page, error) {
	body, err := get(ctx, c.client, src, c.endpoint(src), c.headers(src))
	if err != nil {
		return Page{}, err
	}

	var raw circleCIPage
	if err := decodeJSON(src, body, &raw); err != nil {
		return Page{}, err
	}

	page := Page{Items: make([]Item, 0, len(raw.Items))}
	if raw.NextPageToken != nil {
		page.Continuation = *raw.NextPageToken
	}
	for _, it := range raw.Items {
		page.Items = append(page.Items, Item{
			ID:          it.ID,
			Status:      src.mapStatus(it.Status, circleCIStatus),
			CompletedAt: it.StoppedAt,
			URL:         circleCIWebBase + "/workflow-run/" + url.PathEscape(it.ID),
		})
	}
	return page, nil
}

// BrowseURL implements [Provider].
func (c *CircleCI) BrowseURL(src SourceInfo) string {
	org, repo, _ := strings.Cut(src.Name, "/")
	u := fmt.Sprintf("%s/gh/%s/workflows/%s", circleCIWebBase, url.PathEscape(org), url.PathEscape(repo))
	if src.Branch != "" {
		u += "/tree/" + url.PathEscape(src.Branch)
	}
	return u
}

func (c *CircleCI) endpoint(src SourceInfo) string {
	base := circleCIAPIBase
	if src.URL != "" {
		base = strings.TrimRight(src.URL, "/")
	}
	u := fmt.Sprintf("%s/insights/gh/%s/workflows/%s", base, src.Name, url.PathEscape(src.Workflow))
	if src.Branch != "" {
		u += "?branch=" + url.QueryEscape(src.Branch)
	}
	return u
}

func (c *CircleCI) headers(src SourceInfo) map[string]string {
	h := map[string]string{"Accept": "application/json"}
	if src.Token != "" {
		h["Circle-Token"] = src.Token
	}
	return h
}

// circleCIStatus normalizes CircleCI workflow statuses.
func circleCIStatus(raw string) string {
	switch s := strings.ToLower(raw); s {
	case "success", "failed", "error", "canceled", "running":
		return s
	case "failing":
		return "failed"
	case "unauthorized", "infrastructure_fail", "timedout", "not_run":
		return "error"
	case "":
		return "unknown"
	default:
		return s
	}
}
