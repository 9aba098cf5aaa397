package poller

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	gitHubAPIBase = "https://api.github.com"
	gitHubWebBase = "https://github.com"

	// gitHubPageSize is how many completed runs one request asks for.
	gitHubPageSize = 10
)

// GitHub reads completed workflow runs from the GitHub Actions API.
type GitHub struct {
	client *Client
}

// NewGitHub creates a GitHub Actions provider.
func NewGitHub(client *Client) *GitHub {
	return &GitHub{client: client}
}

type gitHubRuns struct {
	TotalCount   int         `json:"total_count"`
	WorkflowRuns []gitHubRun `json:"workflow_runs"`
}

type gitHubRun struct {
	ID         int64     `json:"id"`
	Status     string    `json:"status"`
	Conclusion *string   `json:"conclusion"`
	UpdatedAt  time.Time `json:"updated_at"`
	HTMLURL    string    `json:"html_url"`
}

// Fetch implements [Provider].
func (g *GitHub) Fetch(ctx context.Context, src SourceInfo) (Page, error) {
	body, err := get(ctx, g.client, src, g.endpoint(src), gitHubHeaders(src))
	if err != nil {
		return Page{}, err
	}

	var raw gitHubRuns
	if err := decodeJSON(src, body, &raw); err != nil {
		return Page{}, err
	}

	page := Page{Items: make([]Item, 0, len(raw.WorkflowRuns))}
	if raw.TotalCount > len(raw.WorkflowRuns) {
		page.Continuation = "2"
	}
	for _, run := range raw.WorkflowRuns {
		conclusion := run.Status
		if run.Conclusion != nil {
			conclusion = *run.Conclusion
		}
		page.Items = append(page.Items, Item{
			ID:          strconv.FormatInt(run.ID, 10),
			Status:      src.mapStatus(conclusion, gitHubConclusion),
			CompletedAt: run.UpdatedAt,
			URL:         run.HTMLURL,
		})
	}
	return page, nil
}

// BrowseURL implements [Provider].
func (g *GitHub) BrowseURL(src SourceInfo) string {
	u := fmt.Sprintf("%s/%s/actions", gitHubWebBase, src.Name)
	if src.Workflow != "" {
		u += "/workflows/" + url.PathEscape(src.Workflow)
	}
	if src.Branch != "" {
		u += "?query=" + url.QueryEscape("branch:"+src.Branch)
	}
	return u
}

func (g *GitHub) endpoint(src SourceInfo) string {
	base := gitHubAPIURL(src)

	path := fmt.Sprintf("%s/repos/%s/actions/runs", base, src.Name)
	if src.Workflow != "" {
		path = fmt.Sprintf("%s/repos/%s/actions/workflows/%s/runs", base, src.Name, url.PathEscape(src.Workflow))
	}

	q := url.Values{}
	q.Set("status", "completed")
	q.Set("per_page", strconv.Itoa(gitHubPageSize))
	if src.Branch != "" {
		q.Set("branch", src.Branch)
	}
	return path + "?" + q.Encode()
}

// gitHubAPIURL returns the API base, honouring an Enterprise override.
func gitHubAPIURL(src SourceInfo) string {
	if src.URL != "" {
		return strings.TrimRight(src.URL, "/")
	}
	return gitHubAPIBase
}

func gitHubHeaders(src SourceInfo) map[string]string {
	h := map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": "2022-11-28",
	}
	if src.Token != "" {
		h["Authorization"] = "Bearer " + src.Token
	}
	return h
}

// gitHubConclusion normalizes GitHub run conclusions.
func gitHubConclusion(raw string) string {
	switch s := strings.ToLower(raw); s {
	case "success":
		return "success"
	case "failure":
		return "failed"
	case "cancelled":
		return "canceled"
	case "timed_out", "startup_failure", "action_required":
		return "error"
	case "":
		return "unknown"
	default:
		return s
	}
}
