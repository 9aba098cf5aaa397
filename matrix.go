package citui

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"text/template"
)

// matrixConfig holds configuration during source matrix construction.
type matrixConfig struct {
	repos       []string
	branches    []string
	workflows   []string
	urlTemplate string
	sourceOpts  []SourceOption
}

// MatrixOption configures source matrix generation.
// MatrixOption implements the functional options pattern for [NewSourceMatrix].
type MatrixOption func(*matrixConfig) error

// WithRepos sets the repository slugs (or feed names) of the matrix.
//
// Returns an error if no repos are given or any is empty.
func WithRepos(repos ...string) MatrixOption {
	return func(cfg *matrixConfig) error {
		if err := nonEmpty("repo", repos); err != nil {
			return err
		}
		cfg.repos = repos
		return nil
	}
}

// WithBranches sets the branches of the matrix. Without it every source
// covers all branches.
func WithBranches(branches ...string) MatrixOption {
	return func(cfg *matrixConfig) error {
		if err := nonEmpty("branch", branches); err != nil {
			return err
		}
		cfg.branches = branches
		return nil
	}
}

// WithWorkflows sets the workflows of the matrix.
func WithWorkflows(workflows ...string) MatrixOption {
	return func(cfg *matrixConfig) error {
		if err := nonEmpty("workflow", workflows); err != nil {
			return err
		}
		cfg.workflows = workflows
		return nil
	}
}

// WithURLTemplate sets a per-source URL built from the matrix values.
// The template uses Go's text/template syntax with the keys repo, branch and
// workflow. Values are URL-encoded before interpolation.
//
// Example:
//
//	WithURLTemplate("https://ci.example.com/{{.repo}}/cc.xml")
func WithURLTemplate(tmpl string) MatrixOption {
	return func(cfg *matrixConfig) error {
		if tmpl == "" {
			return errors.New("URL template cannot be empty")
		}
		cfg.urlTemplate = tmpl
		return nil
	}
}

// WithSourceOptions applies opts to every generated source, e.g. a shared
// token or refresh interval.
func WithSourceOptions(opts ...SourceOption) MatrixOption {
	return func(cfg *matrixConfig) error {
		cfg.sourceOpts = append(cfg.sourceOpts, opts...)
		return nil
	}
}

// NewSourceMatrix creates one [Source] of the given kind for every
// combination of repo × branch × workflow.
//
// Sources are generated repo-major, then branch, then workflow, preserving
// the order the values were given in. Sources sharing a repo are
// disambiguated on screen by [Label].
//
// Example:
//
//	sources, err := citui.NewSourceMatrix(citui.KindCircleCI,
//	    citui.WithRepos("acme/api", "acme/web"),
//	    citui.WithBranches("main", "release"),
//	    citui.WithWorkflows("build"),
//	    citui.WithSourceOptions(citui.WithToken(token)),
//	)
//	// Returns 4 sources, usable with WithSources(sources...)
func NewSourceMatrix(kind string, opts ...MatrixOption) ([]Source, error) {
	cfg := &matrixConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.repos) == 0 {
		return nil, errors.New("at least one repo required")
	}

	var tmpl *template.Template
	if cfg.urlTemplate != "" {
		var err error
		// missingkey=error for fail-fast behaviour
		tmpl, err = template.New("url").Option("missingkey=error").Parse(cfg.urlTemplate)
		if err != nil {
			return nil, fmt.Errorf("invalid URL template: %w", err)
		}
	}

	branches := orBlank(cfg.branches)
	workflows := orBlank(cfg.workflows)

	sources := make([]Source, 0, len(cfg.repos)*len(branches)*len(workflows))
	for _, repo := range cfg.repos {
		for _, branch := range branches {
			for _, workflow := range workflows {
				srcOpts := append([]SourceOption{}, cfg.sourceOpts...)
				if branch != "" {
					srcOpts = append(srcOpts, WithBranch(branch))
				}
				if workflow != "" {
					srcOpts = append(srcOpts, WithWorkflow(workflow))
				}
				if tmpl != nil {
					u, err := executeTemplate(tmpl, map[string]string{
						"repo":     url.PathEscape(repo),
						"branch":   url.QueryEscape(branch),
						"workflow": url.PathEscape(workflow),
					})
					if err != nil {
						return nil, fmt.Errorf("template execution failed: %w", err)
					}
					srcOpts = append(srcOpts, WithURL(u))
				}

				src, err := NewSource(kind, repo, srcOpts...)
				if err != nil {
					return nil, fmt.Errorf("failed to create source %s: %w", matrixName(repo, branch, workflow), err)
				}
				sources = append(sources, src)
			}
		}
	}

	return sources, nil
}

func nonEmpty(what string, values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("at least one %s required", what)
	}
	for i, v := range values {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%s %d cannot be empty", what, i)
		}
	}
	return nil
}

// orBlank returns values, or a single blank value meaning "unfiltered".
func orBlank(values []string) []string {
	if len(values) == 0 {
		return []string{""}
	}
	return values
}

// executeTemplate renders the template with the given data.
func executeTemplate(tmpl *template.Template, data map[string]string) (string, error) {
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func matrixName(repo, branch, workflow string) string {
	return fmt.Sprintf("%q (branch %q, workflow %q)", repo, branch, workflow)
}
