package citui

import (
	"errors"
	"time"
)

// sourceConfig holds mutable state during source construction.
type sourceConfig struct {
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

// SourceOption is a function that configures a [Source] during construction.
//
// SourceOption implements the functional options pattern for [NewSource].
// Options return an error if validation fails.
type SourceOption func(*sourceConfig) error

// WithBranch restricts the source to runs on a single branch.
func WithBranch(branch string) SourceOption {
	return func(cfg *sourceConfig) error {
		cfg.branch = branch
		return nil
	}
}

// WithWorkflow restricts the source to a single workflow.
//
// For CircleCI this is the workflow name and is required. For GitHub it is
// the workflow file name ("ci.yml") or numeric ID.
func WithWorkflow(workflow string) SourceOption {
	return func(cfg *sourceConfig) error {
		cfg.workflow = workflow
		return nil
	}
}

// WithURL sets the feed URL of a CCTray or JSON source, or overrides the API
// base URL of a CircleCI or GitHub source (e.g. GitHub Enterprise).
//
// Returns an error if the URL has no http(s) scheme.
func WithURL(rawURL string) SourceOption {
	return func(cfg *sourceConfig) error {
		if err := validateURL(rawURL); err != nil {
			return err
		}
		cfg.url = rawURL
		return nil
	}
}

// WithProject selects the project inside a CCTray feed. Defaults to the
// source name.
func WithProject(project string) SourceOption {
	return func(cfg *sourceConfig) error {
		cfg.project = project
		return nil
	}
}

// WithToken sets the provider credential: a CircleCI personal token or a
// GitHub token.
func WithToken(token string) SourceOption {
	return func(cfg *sourceConfig) error {
		cfg.token = token
		return nil
	}
}

// WithHeaders adds custom HTTP headers to every request for this source.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
//
// Example:
//
//	src, err := citui.NewSource(citui.KindJSON, "deploys",
//	    citui.WithURL("https://deploy.example.com/status"),
//	    citui.WithHeaders("Authorization", "Bearer token123"),
//	)
//
// Returns an error if an odd number of arguments is provided.
func WithHeaders(keyValues ...string) SourceOption {
	return func(cfg *sourceConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithTimeout sets the request timeout for this source.
//
// A request that does not complete in time counts as a failed poll: the
// source keeps its previous status and is retried on the next tick.
// Defaults to 10 seconds if not specified.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) SourceOption {
	return func(cfg *sourceConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithRefresh sets how long to wait after a successful poll before polling
// this source again.
//
// The interval is converted to scheduler ticks, rounding up. While other
// sources are due, a source may wait a few extra ticks for its turn because
// only one source is polled per tick.
//
// The interval must be at least 1 second and at most 1 hour.
// Defaults to 60 seconds if not specified.
func WithRefresh(d time.Duration) SourceOption {
	return func(cfg *sourceConfig) error {
		if d < time.Second {
			return errors.New("refresh must be at least 1 second")
		}
		if d > time.Hour {
			return errors.New("refresh must not exceed 1 hour")
		}
		cfg.refresh = d
		return nil
	}
}

// WithFields sets the JSON paths of a [KindJSON] source.
//
// Example:
//
//	src, err := citui.NewSource(citui.KindJSON, "nightly",
//	    citui.WithURL("https://ci.example.com/api/nightly"),
//	    citui.WithFields(citui.JSONFields{Items: "data.runs", Status: "state", Time: "finished_at"}),
//	)
func WithFields(fields JSONFields) SourceOption {
	return func(cfg *sourceConfig) error {
		cfg.fields = fields
		return nil
	}
}

// WithStatusMapper replaces the provider's built-in status mapping.
//
// See [StatusMap] for a table-driven mapper.
func WithStatusMapper(m StatusMapper) SourceOption {
	return func(cfg *sourceConfig) error {
		cfg.mapper = m
		return nil
	}
}
