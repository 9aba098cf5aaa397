package citui

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Provider kinds accepted by [NewSource].
const (
	KindCircleCI = "circleci"
	KindGitHub   = "github"
	KindCCTray   = "cctray"
	KindJSON     = "json"
)

const (
	defaultSourceTimeout = 10 * time.Second
	defaultRefresh       = 60 * time.Second
)

// JSONFields are dot-notation paths into a generic JSON status document,
// used by sources of kind [KindJSON].
type JSONFields struct {
	// Items locates the array of runs. Empty means the document is the array.
	Items string

	// Status is the path of each run's status. Defaults to "status".
	Status string

	// Time is the path of each run's completion time (RFC 3339 or unix seconds).
	Time string

	// ID is the path of each run's identifier.
	ID string

	// URL is the path of each run's web link.
	URL string
}

// Source is one monitored repository, branch and workflow combination.
//
// Source is immutable after creation via [NewSource]. Its identity is the
// provider kind, name, branch and workflow; see [Source.Key]. Everything else
// (refresh interval, timeout, credentials) configures how it is polled.
type Source struct {
	kind     string
	name     string
	branch   string
	workflow string
	url      string
	project  string
	token    string
	headers  map[string]string
	timeout  time.Duration
	refresh  time.Duration
	fields   JSONFields
	mapper   StatusMapper
}

// Kind returns the provider kind, e.g. [KindCircleCI].
func (s Source) Kind() string {
	return s.kind
}

// Name returns the repository slug ("org/repo") or, for feeds, the display name.
func (s Source) Name() string {
	return s.name
}

// Branch returns the branch filter, or "" for all branches.
func (s Source) Branch() string {
	return s.branch
}

// Workflow returns the workflow filter, or "".
func (s Source) Workflow() string {
	return s.workflow
}

// URL returns the API base override or feed URL, or "".
func (s Source) URL() string {
	return s.url
}

// Project returns the CCTray project name. Defaults to the source name.
func (s Source) Project() string {
	if s.project == "" {
		return s.name
	}
	return s.project
}

// Token returns the provider credential, or "".
func (s Source) Token() string {
	return s.token
}

// Headers returns a copy of the extra HTTP headers sent with every request.
// Returns nil if no headers are set.
func (s Source) Headers() map[string]string {
	return copyMap(s.headers)
}

// Timeout returns the per-request timeout. Defaults to 10 seconds.
func (s Source) Timeout() time.Duration {
	return s.timeout
}

// Refresh returns how long to wait after a successful poll before polling
// the source again. Defaults to 60 seconds.
func (s Source) Refresh() time.Duration {
	return s.refresh
}

// Fields returns the JSON paths of a [KindJSON] source.
func (s Source) Fields() JSONFields {
	return s.fields
}

// StatusMapper returns the custom status mapper, or nil when the provider's
// built-in mapping applies.
func (s Source) StatusMapper() StatusMapper {
	return s.mapper
}

// Key returns the source's identity, e.g. "circleci:org/repo@main#build".
//
// Two sources with the same key are the same source; [New] rejects
// duplicates.
func (s Source) Key() string {
	var b strings.Builder
	b.WriteString(s.kind)
	b.WriteByte(':')
	b.WriteString(s.name)
	if s.branch != "" {
		b.WriteByte('@')
		b.WriteString(s.branch)
	}
	if s.workflow != "" {
		b.WriteByte('#')
		b.WriteString(s.workflow)
	}
	return b.String()
}

// NewSource creates a [Source] of the given provider kind and name.
//
// The name is the repository slug ("org/repo") for CircleCI and GitHub
// sources, and the project or display name for CCTray and JSON sources.
//
// Provider requirements:
//   - circleci: name of the form "org/repo" and a workflow ([WithWorkflow])
//   - github: name of the form "owner/repo"
//   - cctray, json: a feed URL ([WithURL])
//
// Options are applied in order using the functional options pattern.
//
// Example:
//
//	src, err := citui.NewSource(citui.KindCircleCI, "acme/api",
//	    citui.WithWorkflow("build"),
//	    citui.WithBranch("main"),
//	    citui.WithRefresh(30 * time.Second),
//	)
func NewSource(kind, name string, opts ...SourceOption) (Source, error) {
	if name == "" {
		return Source{}, errors.New("source name cannot be empty")
	}

	cfg := &sourceConfig{
		headers: make(map[string]string),
		timeout: defaultSourceTimeout,
		refresh: defaultRefresh,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Source{}, err
		}
	}

	switch kind {
	case KindCircleCI:
		if !isSlug(name) {
			return Source{}, fmt.Errorf("circleci source name must be \"org/repo\", got %q", name)
		}
		if cfg.workflow == "" {
			return Source{}, errors.New("circleci source requires a workflow")
		}
	case KindGitHub:
		if !isSlug(name) {
			return Source{}, fmt.Errorf("github source name must be \"owner/repo\", got %q", name)
		}
	case KindCCTray, KindJSON:
		if cfg.url == "" {
			return Source{}, fmt.Errorf("%s source requires a url", kind)
		}
	default:
		return Source{}, fmt.Errorf("unknown source kind %q (expected circleci, github, cctray or json)", kind)
	}

	return Source{
		kind:     kind,
		name:     name,
		branch:   cfg.branch,
		workflow: cfg.workflow,
		url:      cfg.url,
		project:  cfg.project,
		token:    cfg.token,
		headers:  cfg.headers,
		timeout:  cfg.timeout,
		refresh:  cfg.refresh,
		fields:   cfg.fields,
		mapper:   cfg.mapper,
	}, nil
}

func isSlug(name string) bool {
	owner, repo, ok := strings.Cut(name, "/")
	return ok && owner != "" && repo != "" && !strings.Contains(repo, "/")
}

// validateURL checks that rawURL parses and carries an http(s) scheme.
func validateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL: " + err.Error())
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("URL must have a scheme (http:// or https://)")
	}
	return nil
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
