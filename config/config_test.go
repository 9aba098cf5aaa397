package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_MinimalConfig(t *testing.T) {
	yaml := `
sources:
  - kind: github
    name: acme/api
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// check defaults applied
	if cfg.TickRate.Duration() != 100*time.Millisecond {
		t.Errorf("TickRate = %v, want 100ms", cfg.TickRate.Duration())
	}
	if cfg.HistorySize != 5 {
		t.Errorf("HistorySize = %d, want 5", cfg.HistorySize)
	}
	if cfg.EmptyPolicy != "unknown" {
		t.Errorf("EmptyPolicy = %q, want unknown", cfg.EmptyPolicy)
	}
	if len(cfg.Sources) != 1 {
		t.Errorf("len(Sources) = %d, want 1", len(cfg.Sources))
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
title: Platform CI
tick_rate: 250ms
history_size: 8
empty_policy: retain
request_rate: 2
listen: 127.0.0.1:9090
browser: [firefox, --new-tab]

tokens:
  circleci: circle-secret
  github: gh-secret

sources:
  - kind: circleci
    name: acme/api
    workflow: build
    branch: main
    timeout: 5s
    refresh: 30s
    headers:
      X-Team: platform
    status_map:
      on_hold: running
  - kind: json
    name: deploys
    url: https://deploy.example.com/api/runs
    fields:
      items: data.runs
      status: state
      time: finished_at

matrices:
  - kind: github
    repos: [acme/web, acme/docs]
    branches: [main]
    workflows: [ci.yml]
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Title != "Platform CI" || cfg.TickRate.Duration() != 250*time.Millisecond {
		t.Errorf("Title = %q, TickRate = %v", cfg.Title, cfg.TickRate.Duration())
	}
	if cfg.HistorySize != 8 || cfg.EmptyPolicy != "retain" || cfg.RequestRate != 2 {
		t.Errorf("HistorySize = %d, EmptyPolicy = %q, RequestRate = %v", cfg.HistorySize, cfg.EmptyPolicy, cfg.RequestRate)
	}
	if cfg.Listen != "127.0.0.1:9090" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if len(cfg.Browser) != 2 || cfg.Browser[1] != "--new-tab" {
		t.Errorf("Browser = %q", cfg.Browser)
	}
	if cfg.Tokens.CircleCI != "circle-secret" || cfg.Tokens.GitHub != "gh-secret" {
		t.Errorf("Tokens = %+v", cfg.Tokens)
	}

	src := cfg.Sources[0]
	if src.Workflow != "build" || src.Branch != "main" {
		t.Errorf("Workflow = %q, Branch = %q", src.Workflow, src.Branch)
	}
	if src.Timeout.Duration() != 5*time.Second || src.Refresh.Duration() != 30*time.Second {
		t.Errorf("Timeout = %v, Refresh = %v", src.Timeout.Duration(), src.Refresh.Duration())
	}
	if src.Headers["X-Team"] != "platform" || src.StatusMap["on_hold"] != "running" {
		t.Errorf("Headers = %v, StatusMap = %v", src.Headers, src.StatusMap)
	}
	if cfg.Sources[1].Fields.Items != "data.runs" || cfg.Sources[1].Fields.Time != "finished_at" {
		t.Errorf("Fields = %+v", cfg.Sources[1].Fields)
	}

	m := cfg.Matrices[0]
	if len(m.Repos) != 2 || m.Branches[0] != "main" || m.Workflows[0] != "ci.yml" {
		t.Errorf("matrix = %+v", m)
	}
}

func TestParseTOML(t *testing.T) {
	data := `
title = "Platform CI"
tick_rate = "200ms"
empty_policy = "retain"

[tokens]
circleci = "circle-secret"

[[sources]]
kind = "circleci"
name = "acme/api"
workflow = "build"
refresh = "45s"

[sources.headers]
X-Team = "platform"

[[sources]]
kind = "cctray"
name = "nightly"
url = "https://ci.example.com/cc.xml"
project = "nightly-build"

[[matrices]]
kind = "github"
repos = ["acme/web"]
branches = ["main", "release"]
`
	cfg, err := ParseTOML([]byte(data))
	if err != nil {
		t.Fatalf("ParseTOML() error = %v", err)
	}

	if cfg.Title != "Platform CI" || cfg.TickRate.Duration() != 200*time.Millisecond {
		t.Errorf("Title = %q, TickRate = %v", cfg.Title, cfg.TickRate.Duration())
	}
	if cfg.HistorySize != 5 {
		t.Errorf("HistorySize = %d, want default 5", cfg.HistorySize)
	}
	if cfg.EmptyPolicy != "retain" {
		t.Errorf("EmptyPolicy = %q", cfg.EmptyPolicy)
	}
	if len(cfg.Sources) != 2 {
		t.Fatalf("len(Sources) = %d, want 2", len(cfg.Sources))
	}
	if cfg.Sources[0].Refresh.Duration() != 45*time.Second {
		t.Errorf("Refresh = %v", cfg.Sources[0].Refresh.Duration())
	}
	if cfg.Sources[0].Headers["X-Team"] != "platform" {
		t.Errorf("Headers = %v", cfg.Sources[0].Headers)
	}
	if cfg.Sources[1].Project != "nightly-build" {
		t.Errorf("Project = %q", cfg.Sources[1].Project)
	}
	if len(cfg.Matrices) != 1 || len(cfg.Matrices[0].Branches) != 2 {
		t.Errorf("Matrices = %+v", cfg.Matrices)
	}
}

func TestParseTOML_UnknownKey(t *testing.T) {
	data := `
colour = "red"

[[sources]]
kind = "github"
name = "acme/api"
`
	_, err := ParseTOML([]byte(data))
	if err == nil {
		t.Fatal("ParseTOML() expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "colour") {
		t.Errorf("error should name the key, got: %v", err)
	}
}

func TestParse_UnknownKey(t *testing.T) {
	yaml := `
sources:
  - kind: github
    name: acme/api
    brnach: main
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("Parse() expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "brnach") {
		t.Errorf("error should name the key, got: %v", err)
	}
}

func TestParse_EnvVarExpansion(t *testing.T) {
	t.Setenv("CITUI_TEST_HOST", "ci.internal")
	t.Setenv("CITUI_TEST_TOKEN", "from-env")

	yaml := `
tokens:
  circleci: ${CITUI_TEST_TOKEN}
  github: ${CITUI_TEST_MISSING:-fallback}
sources:
  - kind: cctray
    name: nightly
    url: https://${CITUI_TEST_HOST}/cc.xml
    headers:
      Authorization: Bearer ${CITUI_TEST_TOKEN}
matrices:
  - kind: json
    repos: [api]
    url_template: "https://${CITUI_TEST_HOST}/{{.repo}}.json"
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Tokens.CircleCI != "from-env" {
		t.Errorf("Tokens.CircleCI = %q", cfg.Tokens.CircleCI)
	}
	if cfg.Tokens.GitHub != "fallback" {
		t.Errorf("Tokens.GitHub = %q, want fallback", cfg.Tokens.GitHub)
	}
	if cfg.Sources[0].URL != "https://ci.internal/cc.xml" {
		t.Errorf("URL = %q", cfg.Sources[0].URL)
	}
	if cfg.Sources[0].Headers["Authorization"] != "Bearer from-env" {
		t.Errorf("Headers = %v", cfg.Sources[0].Headers)
	}
	if cfg.Matrices[0].URLTemplate != "https://ci.internal/{{.repo}}.json" {
		t.Errorf("URLTemplate = %q", cfg.Matrices[0].URLTemplate)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("CITUI_SET", "value")
	t.Setenv("CITUI_EMPTY", "")

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "plain", false},
		{"${CITUI_SET}", "value", false},
		{"a-${CITUI_SET}-b", "a-value-b", false},
		{"${CITUI_EMPTY}", "", false},
		{"${CITUI_EMPTY:-default}", "", false},
		{"${CITUI_UNSET:-default}", "default", false},
		{"${CITUI_UNSET:-}", "", false},
		{"${CITUI_UNSET}", "", true},
	}

	for _, tt := range tests {
		got, err := expandEnvVars(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("expandEnvVars(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("expandEnvVars(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "empty config",
			yaml:    ``,
			wantErr: "at least one source or matrix",
		},
		{
			name:    "invalid yaml",
			yaml:    "sources: [",
			wantErr: "failed to parse YAML",
		},
		{
			name: "tick rate too fast",
			yaml: `
tick_rate: 1ms
sources: [{kind: github, name: acme/api}]`,
			wantErr: "tick_rate must be between",
		},
		{
			name: "invalid duration",
			yaml: `
tick_rate: fast
sources: [{kind: github, name: acme/api}]`,
			wantErr: "invalid duration",
		},
		{
			name: "negative history size",
			yaml: `
history_size: -1
sources: [{kind: github, name: acme/api}]`,
			wantErr: "history_size must be positive",
		},
		{
			name: "bad empty policy",
			yaml: `
empty_policy: forget
sources: [{kind: github, name: acme/api}]`,
			wantErr: "empty_policy",
		},
		{
			name: "negative request rate",
			yaml: `
request_rate: -2
sources: [{kind: github, name: acme/api}]`,
			wantErr: "request_rate cannot be negative",
		},
		{
			name: "bad listen address",
			yaml: `
listen: localhost
sources: [{kind: github, name: acme/api}]`,
			wantErr: "listen: invalid address",
		},
		{
			name: "empty browser command",
			yaml: `
browser: [""]
sources: [{kind: github, name: acme/api}]`,
			wantErr: "browser: command cannot be empty",
		},
		{
			name:    "missing kind",
			yaml:    `sources: [{name: acme/api}]`,
			wantErr: "sources[0] (acme/api): kind is required",
		},
		{
			name:    "unknown kind",
			yaml:    `sources: [{kind: travis, name: acme/api}]`,
			wantErr: "unknown kind",
		},
		{
			name:    "missing name",
			yaml:    `sources: [{kind: github}]`,
			wantErr: "sources[0]: name is required",
		},
		{
			name:    "circleci without workflow",
			yaml:    `sources: [{kind: circleci, name: acme/api}]`,
			wantErr: "workflow is required",
		},
		{
			name:    "cctray without url",
			yaml:    `sources: [{kind: cctray, name: nightly}]`,
			wantErr: "url is required for cctray",
		},
		{
			name:    "url without scheme",
			yaml:    `sources: [{kind: json, name: deploys, url: example.com/runs}]`,
			wantErr: "url must have a scheme",
		},
		{
			name:    "ftp url",
			yaml:    `sources: [{kind: json, name: deploys, url: "ftp://example.com/runs"}]`,
			wantErr: "url scheme must be http or https",
		},
		{
			name:    "unset env var",
			yaml:    `sources: [{kind: github, name: acme/api, token: "${CITUI_DEFINITELY_UNSET}"}]`,
			wantErr: "sources[0] (acme/api): token: environment variable",
		},
		{
			name:    "timeout too short",
			yaml:    `sources: [{kind: github, name: acme/api, timeout: 500ms}]`,
			wantErr: "timeout must be at least 1s",
		},
		{
			name:    "refresh too short",
			yaml:    `sources: [{kind: github, name: acme/api, refresh: 100ms}]`,
			wantErr: "refresh must be at least 1s",
		},
		{
			name:    "refresh too long",
			yaml:    `sources: [{kind: github, name: acme/api, refresh: 2h}]`,
			wantErr: "refresh must not exceed 1h",
		},
		{
			name:    "matrix without repos",
			yaml:    `matrices: [{kind: github}]`,
			wantErr: "matrices[0]: at least one repo",
		},
		{
			name:    "matrix duplicate branch",
			yaml:    `matrices: [{kind: github, repos: [acme/api], branches: [main, main]}]`,
			wantErr: `matrices[0] (acme/api): branches has duplicate value "main"`,
		},
		{
			name:    "matrix bad template",
			yaml:    `matrices: [{kind: cctray, repos: [api], url_template: "https://x/{{.repo"}]`,
			wantErr: "invalid url_template",
		},
		{
			name:    "feed matrix without template",
			yaml:    `matrices: [{kind: json, repos: [api]}]`,
			wantErr: "url_template is required for json",
		},
		{
			name:    "circleci matrix without workflows",
			yaml:    `matrices: [{kind: circleci, repos: [acme/api]}]`,
			wantErr: "workflows are required",
		},
		{
			name:    "notifications without any token",
			yaml:    "sources: [{kind: github, name: acme/api}]\nnotifications: {}",
			wantErr: "notifications: token is required",
		},
		{
			name:    "notifications with bad url",
			yaml:    "sources: [{kind: github, name: acme/api}]\nnotifications: {token: t, url: ftp://gh}",
			wantErr: "notifications: url scheme must be http or https",
		},
		{
			name:    "notifications refresh too short",
			yaml:    "sources: [{kind: github, name: acme/api}]\nnotifications: {token: t, refresh: 100ms}",
			wantErr: "notifications: refresh must be at least",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParse_Notifications(t *testing.T) {
	t.Setenv("CITUI_GH", "from-env")

	cfg, err := Parse([]byte(`
tokens:
  github: ${CITUI_GH}
sources:
  - kind: github
    name: acme/api
notifications:
  refresh: 2m
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	n := cfg.Notifications
	if n == nil {
		t.Fatal("Notifications should be set")
	}
	if n.Token != "from-env" {
		t.Errorf("Token = %q, want fallback to tokens.github", n.Token)
	}
	if n.Refresh.Duration() != 2*time.Minute {
		t.Errorf("Refresh = %v", n.Refresh.Duration())
	}

	cfg, err = ParseTOML([]byte(`
[[sources]]
kind = "github"
name = "acme/api"

[notifications]
token = "toml-token"
url = "https://ghe.example.com/api/v3"
`))
	if err != nil {
		t.Fatalf("ParseTOML() error = %v", err)
	}
	if cfg.Notifications == nil || cfg.Notifications.Token != "toml-token" || cfg.Notifications.URL != "https://ghe.example.com/api/v3" {
		t.Errorf("Notifications = %+v", cfg.Notifications)
	}

	cfg, err = Parse([]byte("sources: [{kind: github, name: acme/api}]"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Notifications != nil {
		t.Error("Notifications should be nil without a notifications block")
	}
}

func TestLoad_ChoosesFormatByExtension(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "citui.yaml")
	if err := os.WriteFile(yamlPath, []byte("sources: [{kind: github, name: acme/api}]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	tomlPath := filepath.Join(dir, "citui.TOML")
	if err := os.WriteFile(tomlPath, []byte("[[sources]]\nkind = \"github\"\nname = \"acme/web\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(yamlPath)
	if err != nil {
		t.Fatalf("Load(yaml) error = %v", err)
	}
	if cfg.Sources[0].Name != "acme/api" {
		t.Errorf("yaml source = %q", cfg.Sources[0].Name)
	}

	cfg, err = Load(tomlPath)
	if err != nil {
		t.Fatalf("Load(toml) error = %v", err)
	}
	if cfg.Sources[0].Name != "acme/web" {
		t.Errorf("toml source = %q", cfg.Sources[0].Name)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Load() error = %v", err)
	}
}

func TestLoad_ExampleConfigs(t *testing.T) {
	t.Setenv("CIRCLE_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "demo")

	for _, name := range []string{"citui.yaml", "citui.toml"} {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(filepath.Join("..", "example", name))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			sources, err := BuildSources(cfg)
			if err != nil {
				t.Fatalf("BuildSources() error = %v", err)
			}
			// 2 direct + 2 repos × 2 branches × 2 workflows
			if len(sources) != 10 {
				t.Errorf("got %d sources, want 10", len(sources))
			}
			if cfg.Notifications == nil || cfg.Notifications.Token != "demo" {
				t.Errorf("notifications = %+v", cfg.Notifications)
			}
		})
	}
}
