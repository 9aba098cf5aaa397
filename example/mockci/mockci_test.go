package mockci

import (
	"encoding/json"
	"encoding/xml"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T, projects ...string) (*Server, *httptest.Server) {
	t.Helper()
	s := New(slog.New(slog.NewTextHandler(io.Discard, nil)), projects...)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func TestInsights_SeedsHistoryNewestFirst(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/insights/gh/acme/api/workflows/build?branch=main")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var page struct {
		NextPageToken *string `json:"next_page_token"`
		Items         []run   `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decode error = %v", err)
	}

	if page.NextPageToken != nil {
		t.Errorf("next_page_token = %v, want null", *page.NextPageToken)
	}
	if len(page.Items) != 3 {
		t.Fatalf("got %d runs, want 3", len(page.Items))
	}
	if !page.Items[0].StoppedAt.After(page.Items[1].StoppedAt) {
		t.Error("runs should be newest first")
	}
}

func TestInsights_NotFound(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/insights/gh/acme/workflows/")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestAdvance_CompletesRunWhenDue(t *testing.T) {
	s, _ := newTestServer(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.mu.Lock()
	wf := s.advance("acme/api@main#build")
	s.mu.Unlock()
	if len(wf.runs) != 3 {
		t.Fatalf("seeded %d runs, want 3", len(wf.runs))
	}

	now = now.Add(61 * time.Second)
	s.mu.Lock()
	wf = s.advance("acme/api@main#build")
	s.mu.Unlock()
	if len(wf.runs) != 4 || !wf.runs[0].StoppedAt.Equal(now) {
		t.Errorf("expected a new run completed at %v, got %+v", now, wf.runs[0])
	}
}

func TestCCTray_ListsProjects(t *testing.T) {
	_, ts := newTestServer(t, "nightly", "release")

	resp, err := http.Get(ts.URL + "/cc.xml")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var feed ccProjects
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if len(feed.Projects) != 2 || feed.Projects[1].Name != "release" {
		t.Fatalf("projects = %+v", feed.Projects)
	}
	if feed.Projects[0].LastBuildStatus == "" || feed.Projects[0].LastBuildTime == "" {
		t.Errorf("incomplete project: %+v", feed.Projects[0])
	}
}

func TestNotifications_ListsFailingWorkflows(t *testing.T) {
	s, ts := newTestServer(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.mu.Lock()
	s.workflows["acme/api@main#build"] = &workflow{runs: []run{{ID: "run-2", Status: "failed", StoppedAt: at}}}
	s.workflows["acme/web@main#build"] = &workflow{runs: []run{{ID: "run-3", Status: "success", StoppedAt: at}}}
	s.workflows["cctray:nightly"] = &workflow{runs: []run{{ID: "run-4", Status: "failed", StoppedAt: at}}}
	s.mu.Unlock()

	resp, err := http.Get(ts.URL + "/notifications?per_page=50")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var items []notification
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("notifications = %+v, want only the failing insights workflow", items)
	}
	if items[0].Repository.FullName != "acme/api" || items[0].Subject.Title != "acme/api main#build: failed" {
		t.Errorf("notification = %+v", items[0])
	}
}
