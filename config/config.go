// Package config provides YAML and TOML configuration parsing for citui.
//
// This package enables running citui as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Platform CI
//	tick_rate: 100ms
//	history_size: 5
//
//	tokens:
//	  circleci: ${CIRCLE_TOKEN}
//
//	sources:
//	  - kind: circleci
//	    name: acme/api
//	    workflow: build
//	    branch: main
//	    refresh: 30s
//
//	matrices:
//	  - kind: github
//	    repos: [acme/web, acme/docs]
//	    branches: [main, release]
//	    workflows: [ci.yml]
//
// Files ending in ".toml" are decoded as TOML with the same keys.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	defaultTickRate    = 100 * time.Millisecond
	defaultHistorySize = 5

	minTickRate = 10 * time.Millisecond
	maxTickRate = 10 * time.Second

	// refresh bounds keep a misconfigured source from hammering a provider
	minRefresh = time.Second
	maxRefresh = time.Hour
)

// Provider kinds, mirrored from the SDK so that validation errors can be
// reported before any source is built.
var kinds = map[string]bool{
	"circleci": true,
	"github":   true,
	"cctray":   true,
	"json":     true,
}

// Config is the root configuration structure for citui.
//
// It maps directly to the configuration file structure.
// Use [Load], [Parse] or [ParseTOML] to create a Config.
type Config struct {
	// Title is the dashboard title. Defaults to "citui" if not set.
	Title string `yaml:"title" toml:"title"`

	// TickRate is the scheduling cadence; one source is polled per tick.
	// Defaults to 100ms.
	TickRate Duration `yaml:"tick_rate" toml:"tick_rate"`

	// HistorySize is how many recent runs are kept across all sources.
	// Defaults to 5.
	HistorySize int `yaml:"history_size" toml:"history_size"`

	// EmptyPolicy is "unknown" (default) or "retain"; see citui.EmptyPolicy.
	EmptyPolicy string `yaml:"empty_policy" toml:"empty_policy"`

	// RequestRate caps provider requests per second. Zero disables the cap.
	RequestRate float64 `yaml:"request_rate" toml:"request_rate"`

	// Listen enables the read-only HTTP status API, e.g. "127.0.0.1:8080".
	Listen string `yaml:"listen" toml:"listen"`

	// Browser is the command used to open URLs, e.g. ["firefox", "--new-tab"].
	// Defaults to the system browser.
	Browser []string `yaml:"browser" toml:"browser"`

	// Tokens are default credentials per provider kind.
	Tokens Tokens `yaml:"tokens" toml:"tokens"`

	// Sources defines individual monitored sources.
	Sources []SourceConfig `yaml:"sources" toml:"sources"`

	// Matrices defines source matrices that expand repos × branches × workflows.
	Matrices []MatrixConfig `yaml:"matrices" toml:"matrices"`

	// Notifications enables the GitHub notifications panel when present.
	Notifications *NotificationsConfig `yaml:"notifications" toml:"notifications"`
}

// NotificationsConfig configures the GitHub notifications panel.
type NotificationsConfig struct {
	// Token defaults to tokens.github.
	Token string `yaml:"token" toml:"token"`

	// URL overrides the GitHub API base (GitHub Enterprise).
	URL string `yaml:"url" toml:"url"`

	// Timeout and Refresh follow the same rules as for sources.
	Timeout Duration `yaml:"timeout" toml:"timeout"`
	Refresh Duration `yaml:"refresh" toml:"refresh"`
}

// Tokens holds default provider credentials.
// Values support environment variable substitution.
type Tokens struct {
	CircleCI string `yaml:"circleci" toml:"circleci"`
	GitHub   string `yaml:"github" toml:"github"`
}

// forKind returns the default token of a provider kind.
func (t Tokens) forKind(kind string) string {
	switch kind {
	case "circleci":
		return t.CircleCI
	case "github":
		return t.GitHub
	default:
		return ""
	}
}

// SourceConfig defines a single monitored source.
type SourceConfig struct {
	// Kind is the provider: circleci, github, cctray or json.
	Kind string `yaml:"kind" toml:"kind"`

	// Name is the repository slug ("org/repo") or feed display name.
	Name string `yaml:"name" toml:"name"`

	// Branch restricts the source to one branch.
	Branch string `yaml:"branch" toml:"branch"`

	// Workflow restricts the source to one workflow. Required for circleci.
	Workflow string `yaml:"workflow" toml:"workflow"`

	// URL is the feed URL (cctray, json) or API base override.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url" toml:"url"`

	// Project selects a project inside a CCTray feed. Defaults to Name.
	Project string `yaml:"project" toml:"project"`

	// Token overrides the provider default from [Tokens].
	Token string `yaml:"token" toml:"token"`

	// Headers are custom HTTP headers sent with each request.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers" toml:"headers"`

	// Timeout is the request timeout. Defaults to 10s.
	Timeout Duration `yaml:"timeout" toml:"timeout"`

	// Refresh is the wait after a successful poll. Defaults to 60s.
	// Must be between 1s and 1h.
	Refresh Duration `yaml:"refresh" toml:"refresh"`

	// Fields are the JSON paths of a json source.
	Fields FieldsConfig `yaml:"fields" toml:"fields"`

	// StatusMap translates raw provider statuses, e.g. {on_hold: running}.
	// Unlisted statuses pass through lowercased.
	StatusMap map[string]string `yaml:"status_map" toml:"status_map"`
}

// MatrixConfig defines sources generated from the cartesian product of
// repos, branches and workflows.
//
// For example, with repos [api, web] and branches [main, release], the
// matrix expands to 4 sources: api@main, api@release, web@main, web@release.
type MatrixConfig struct {
	// Kind is the provider of every generated source.
	Kind string `yaml:"kind" toml:"kind"`

	// Repos are the repository slugs or feed names.
	Repos []string `yaml:"repos" toml:"repos"`

	// Branches are optional; without them every source covers all branches.
	Branches []string `yaml:"branches" toml:"branches"`

	// Workflows are optional except for circleci.
	Workflows []string `yaml:"workflows" toml:"workflows"`

	// URLTemplate is a Go template for per-source URLs with the keys
	// repo, branch and workflow: "https://ci.example.com/{{.repo}}/cc.xml".
	// Supports environment variable substitution.
	URLTemplate string `yaml:"url_template" toml:"url_template"`

	// Token overrides the provider default from [Tokens].
	Token string `yaml:"token" toml:"token"`

	// Headers are custom HTTP headers for all generated sources.
	Headers map[string]string `yaml:"headers" toml:"headers"`

	// Timeout is the request timeout for all generated sources.
	Timeout Duration `yaml:"timeout" toml:"timeout"`

	// Refresh is the refresh interval for all generated sources.
	Refresh Duration `yaml:"refresh" toml:"refresh"`

	// Fields are the JSON paths for json matrices.
	Fields FieldsConfig `yaml:"fields" toml:"fields"`

	// StatusMap translates raw provider statuses for all generated sources.
	StatusMap map[string]string `yaml:"status_map" toml:"status_map"`
}

// FieldsConfig holds dot-notation paths into a JSON status document.
type FieldsConfig struct {
	Items  string `yaml:"items" toml:"items"`
	Status string `yaml:"status" toml:"status"`
	Time   string `yaml:"time" toml:"time"`
	ID     string `yaml:"id" toml:"id"`
	URL    string `yaml:"url" toml:"url"`
}

// Duration wraps time.Duration for YAML and TOML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// UnmarshalText implements encoding.TextUnmarshaler, used by the TOML decoder.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		varName := submatches[1]
		hasDefault := submatches[2] != ""

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return submatches[3]
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a configuration file.
//
// Files with a ".toml" extension are parsed as TOML, anything else as YAML.
// Environment variables are expanded after parsing.
// Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return ParseTOML(data)
	}
	return Parse(data)
}

// Parse parses YAML configuration data. Unknown keys are rejected.
//
// Environment variables are expanded in URLs, URL templates, tokens and
// header values. Defaults are applied for TickRate (100ms), HistorySize (5)
// and EmptyPolicy ("unknown").
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return finish(&cfg)
}

// ParseTOML parses TOML configuration data. Unknown keys are rejected.
// Expansion and defaults are the same as for [Parse].
func ParseTOML(data []byte) (*Config, error) {
	var cfg Config
	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("failed to parse TOML: unknown key %q", undecoded[0].String())
	}
	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	if cfg.TickRate == 0 {
		cfg.TickRate = Duration(defaultTickRate)
	}
	if cfg.HistorySize == 0 {
		cfg.HistorySize = defaultHistorySize
	}
	if cfg.EmptyPolicy == "" {
		cfg.EmptyPolicy = "unknown"
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if d := c.TickRate.Duration(); d < minTickRate || d > maxTickRate {
		return fmt.Errorf("tick_rate must be between %s and %s, got %s", minTickRate, maxTickRate, d)
	}
	if c.HistorySize < 0 {
		return fmt.Errorf("history_size must be positive, got %d", c.HistorySize)
	}
	if c.EmptyPolicy != "unknown" && c.EmptyPolicy != "retain" {
		return fmt.Errorf("empty_policy must be \"unknown\" or \"retain\", got %q", c.EmptyPolicy)
	}
	if c.RequestRate < 0 {
		return fmt.Errorf("request_rate cannot be negative, got %v", c.RequestRate)
	}
	if c.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Listen); err != nil {
			return fmt.Errorf("listen: invalid address %q: %w", c.Listen, err)
		}
	}
	if len(c.Browser) > 0 && c.Browser[0] == "" {
		return errors.New("browser: command cannot be empty")
	}

	var err error
	if c.Tokens.CircleCI, err = expandEnvVars(c.Tokens.CircleCI); err != nil {
		return fmt.Errorf("tokens.circleci: %w", err)
	}
	if c.Tokens.GitHub, err = expandEnvVars(c.Tokens.GitHub); err != nil {
		return fmt.Errorf("tokens.github: %w", err)
	}

	for i := range c.Sources {
		if err := c.Sources[i].expandAndValidate(); err != nil {
			return fmt.Errorf("sources[%d]%s: %w", i, describe(c.Sources[i].Name), err)
		}
	}

	for i := range c.Matrices {
		m := &c.Matrices[i]
		name := ""
		if len(m.Repos) > 0 {
			name = m.Repos[0]
		}
		if err := m.expandAndValidate(); err != nil {
			return fmt.Errorf("matrices[%d]%s: %w", i, describe(name), err)
		}
	}

	if c.Notifications != nil {
		if err := c.Notifications.expandAndValidate(c.Tokens); err != nil {
			return fmt.Errorf("notifications: %w", err)
		}
	}

	if len(c.Sources) == 0 && len(c.Matrices) == 0 {
		return errors.New("at least one source or matrix must be defined")
	}

	return nil
}

func describe(name string) string {
	if name == "" {
		return ""
	}
	return " (" + name + ")"
}

func (s *SourceConfig) expandAndValidate() error {
	if err := validateKind(s.Kind); err != nil {
		return err
	}
	if s.Name == "" {
		return errors.New("name is required")
	}

	if s.URL != "" {
		expanded, err := expandEnvVars(s.URL)
		if err != nil {
			return fmt.Errorf("url: %w", err)
		}
		if err := validateURL(expanded); err != nil {
			return err
		}
		s.URL = expanded
	} else if s.Kind == "cctray" || s.Kind == "json" {
		return fmt.Errorf("url is required for %s sources", s.Kind)
	}
	if s.Kind == "circleci" && s.Workflow == "" {
		return errors.New("workflow is required for circleci sources")
	}

	var err error
	if s.Token, err = expandEnvVars(s.Token); err != nil {
		return fmt.Errorf("token: %w", err)
	}
	if err := expandHeaders(s.Headers); err != nil {
		return err
	}
	return validateDurations(s.Timeout, s.Refresh)
}

func (m *MatrixConfig) expandAndValidate() error {
	if err := validateKind(m.Kind); err != nil {
		return err
	}
	if len(m.Repos) == 0 {
		return errors.New("at least one repo is required")
	}
	for dim, values := range map[string][]string{"repos": m.Repos, "branches": m.Branches, "workflows": m.Workflows} {
		seen := make(map[string]struct{}, len(values))
		for _, v := range values {
			if _, exists := seen[v]; exists {
				return fmt.Errorf("%s has duplicate value %q", dim, v)
			}
			seen[v] = struct{}{}
		}
	}

	if m.URLTemplate != "" {
		expanded, err := expandEnvVars(m.URLTemplate)
		if err != nil {
			return fmt.Errorf("url_template: %w", err)
		}
		m.URLTemplate = expanded

		// fail fast before the SDK tries to use an invalid template
		if _, err := template.New("").Parse(m.URLTemplate); err != nil {
			return fmt.Errorf("invalid url_template: %w", err)
		}
	} else if m.Kind == "cctray" || m.Kind == "json" {
		return fmt.Errorf("url_template is required for %s matrices", m.Kind)
	}
	if m.Kind == "circleci" && len(m.Workflows) == 0 {
		return errors.New("workflows are required for circleci matrices")
	}

	var err error
	if m.Token, err = expandEnvVars(m.Token); err != nil {
		return fmt.Errorf("token: %w", err)
	}
	if err := expandHeaders(m.Headers); err != nil {
		return err
	}
	return validateDurations(m.Timeout, m.Refresh)
}

// expandAndValidate resolves the token, falling back to tokens.github,
// which must already be expanded.
func (n *NotificationsConfig) expandAndValidate(tokens Tokens) error {
	var err error
	if n.Token, err = expandEnvVars(n.Token); err != nil {
		return fmt.Errorf("token: %w", err)
	}
	if n.Token == "" {
		n.Token = tokens.GitHub
	}
	if n.Token == "" {
		return errors.New("token is required (set notifications.token or tokens.github)")
	}

	if n.URL != "" {
		if n.URL, err = expandEnvVars(n.URL); err != nil {
			return fmt.Errorf("url: %w", err)
		}
		if err := validateURL(n.URL); err != nil {
			return err
		}
	}
	return validateDurations(n.Timeout, n.Refresh)
}

func validateKind(kind string) error {
	if kind == "" {
		return errors.New("kind is required")
	}
	if !kinds[kind] {
		return fmt.Errorf("unknown kind %q (expected circleci, github, cctray or json)", kind)
	}
	return nil
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme == "" {
		return errors.New("url must have a scheme (http:// or https://)")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", parsed.Scheme)
	}
	return nil
}

func expandHeaders(headers map[string]string) error {
	for k, v := range headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("headers[%s]: %w", k, err)
		}
		headers[k] = expanded
	}
	return nil
}

func validateDurations(timeout, refresh Duration) error {
	if timeout != 0 && timeout.Duration() < time.Second {
		return fmt.Errorf("timeout must be at least 1s if specified, got %s", timeout.Duration())
	}
	if refresh != 0 {
		if refresh.Duration() < minRefresh {
			return fmt.Errorf("refresh must be at least %s, got %s", minRefresh, refresh.Duration())
		}
		if refresh.Duration() > maxRefresh {
			return fmt.Errorf("refresh must not exceed %s, got %s", maxRefresh, refresh.Duration())
		}
	}
	return nil
}
