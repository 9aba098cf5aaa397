// Package mockci is a fake CI server for demos and local testing.
//
// It serves the CircleCI insights endpoint used by citui, a cc.xml feed and
// a GitHub-style notifications inbox.
// Every workflow completes a new run every 20-60 seconds with a random
// outcome, so a dashboard pointed at it keeps changing.
package mockci

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// maxRuns is how many runs are kept and returned per workflow.
const maxRuns = 10

// outcomes are weighted towards green builds.
var outcomes = []string{
	"success", "success", "success", "success", "success", "success",
	"failed", "failed",
	"error",
	"canceled",
}

type run struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	StoppedAt time.Time `json:"stopped_at"`
}

// workflow tracks the runs of one repo, branch and workflow.
type workflow struct {
	runs         []run // newest first
	nextChangeAt time.Time
}

// Server is a fake CI server. The zero value is not usable; call [New].
type Server struct {
	mu        sync.Mutex
	workflows map[string]*workflow
	projects  []string
	rng       *rand.Rand
	now       func() time.Time
	seq       int
	logger    *slog.Logger
}

// New creates a Server whose cc.xml feed lists the given project names.
func New(logger *slog.Logger, projects ...string) *Server {
	return &Server{
		workflows: make(map[string]*workflow),
		projects:  projects,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
		logger:    logger,
	}
}

// Handler returns the HTTP handler serving both feeds.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/insights/gh/", s.handleInsights)
	mux.HandleFunc("/cc.xml", s.handleCCTray)
	mux.HandleFunc("/notifications", s.handleNotifications)
	return mux
}

// handleInsights serves /insights/gh/{org}/{repo}/workflows/{workflow}?branch=.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/insights/gh/")
	slug, name, ok := strings.Cut(rest, "/workflows/")
	if !ok || name == "" || strings.Count(slug, "/") != 1 {
		http.NotFound(w, r)
		return
	}
	key := slug + "@" + r.URL.Query().Get("branch") + "#" + name

	// simulate small latency variance
	time.Sleep(time.Duration(50+s.intn(150)) * time.Millisecond)

	s.mu.Lock()
	runs := append([]run(nil), s.advance(key).runs...)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]any{
		"next_page_token": nil,
		"items":           runs,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

type ccProjects struct {
	XMLName  xml.Name    `xml:"Projects"`
	Projects []ccProject `xml:"Project"`
}

type ccProject struct {
	Name            string `xml:"name,attr"`
	Activity        string `xml:"activity,attr"`
	LastBuildStatus string `xml:"lastBuildStatus,attr"`
	LastBuildLabel  string `xml:"lastBuildLabel,attr"`
	LastBuildTime   string `xml:"lastBuildTime,attr"`
	WebURL          string `xml:"webUrl,attr"`
}

// ccStatus maps run outcomes onto the cc.xml vocabulary.
var ccStatus = map[string]string{
	"success":  "Success",
	"failed":   "Failure",
	"error":    "Exception",
	"canceled": "Unknown",
}

func (s *Server) handleCCTray(w http.ResponseWriter, r *http.Request) {
	feed := ccProjects{}

	s.mu.Lock()
	for _, name := range s.projects {
		wf := s.advance("cctray:" + name)
		last := wf.runs[0]
		feed.Projects = append(feed.Projects, ccProject{
			Name:            name,
			Activity:        "Sleeping",
			LastBuildStatus: ccStatus[last.Status],
			LastBuildLabel:  last.ID,
			LastBuildTime:   last.StoppedAt.Format(time.RFC3339),
			WebURL:          fmt.Sprintf("http://%s/builds/%s/%s", r.Host, name, last.ID),
		})
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write([]byte(xml.Header))
	if err := xml.NewEncoder(w).Encode(feed); err != nil {
		s.logger.Error("failed to write feed", "error", err)
	}
}

type notification struct {
	ID        string    `json:"id"`
	Reason    string    `json:"reason"`
	UpdatedAt time.Time `json:"updated_at"`
	Subject   struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"subject"`
	Repository struct {
		FullName string `json:"full_name"`
		HTMLURL  string `json:"html_url"`
	} `json:"repository"`
}

// handleNotifications lists one "ci_activity" notification per insights
// workflow whose latest run did not succeed.
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	items := []notification{}

	s.mu.Lock()
	for key, wf := range s.workflows {
		slug, rest, ok := strings.Cut(key, "@")
		if !ok || len(wf.runs) == 0 || wf.runs[0].Status == "success" {
			continue
		}
		last := wf.runs[0]
		n := notification{
			ID:        last.ID,
			Reason:    "ci_activity",
			UpdatedAt: last.StoppedAt,
		}
		n.Subject.Title = fmt.Sprintf("%s %s: %s", slug, rest, last.Status)
		n.Repository.FullName = slug
		n.Repository.HTMLURL = "https://github.com/" + slug
		items = append(items, n)
	}
	s.mu.Unlock()

	sort.Slice(items, func(i, j int) bool { return items[i].UpdatedAt.After(items[j].UpdatedAt) })

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(items); err != nil {
		s.logger.Error("failed to write notifications", "error", err)
	}
}

// advance returns the workflow for key, completing a new run when one is
// due. Callers must hold s.mu.
func (s *Server) advance(key string) *workflow {
	now := s.now()
	wf, exists := s.workflows[key]
	if !exists {
		wf = &workflow{}
		s.workflows[key] = wf
		// seed a short history so the recent-runs panel has content
		for i := 3; i >= 1; i-- {
			s.complete(wf, now.Add(-time.Duration(i)*17*time.Minute))
		}
		wf.nextChangeAt = now.Add(s.delay())
		return wf
	}

	if now.After(wf.nextChangeAt) {
		s.complete(wf, now)
		wf.nextChangeAt = now.Add(s.delay())
		s.logger.Info("run completed", "workflow", key, "status", wf.runs[0].Status)
	}
	return wf
}

func (s *Server) complete(wf *workflow, at time.Time) {
	s.seq++
	r := run{
		ID:        fmt.Sprintf("run-%d", s.seq),
		Status:    outcomes[s.rng.Intn(len(outcomes))],
		CreatedAt: at.Add(-time.Duration(2+s.rng.Intn(8)) * time.Minute),
		StoppedAt: at,
	}
	wf.runs = append([]run{r}, wf.runs...)
	if len(wf.runs) > maxRuns {
		wf.runs = wf.runs[:maxRuns]
	}
}

// delay is the time until a workflow completes its next run: 20-60 seconds.
func (s *Server) delay() time.Duration {
	return time.Duration(20+s.rng.Intn(41)) * time.Second
}

func (s *Server) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}
