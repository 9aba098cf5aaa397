package config

import (
	"fmt"
	"sort"

	"github.com/jpalmerr/citui"
)

// BuildSources converts parsed configuration into SDK Source objects.
//
// It processes both direct sources and matrices, returning a combined slice
// in file order: sources first, then each matrix expanded repo-major.
func BuildSources(cfg *Config) ([]citui.Source, error) {
	var sources []citui.Source

	for i, sc := range cfg.Sources {
		src, err := buildSource(sc, cfg.Tokens)
		if err != nil {
			return nil, fmt.Errorf("sources[%d]%s: %w", i, describe(sc.Name), err)
		}
		sources = append(sources, src)
	}

	for i, mc := range cfg.Matrices {
		matrix, err := buildMatrix(mc, cfg.Tokens)
		if err != nil {
			return nil, fmt.Errorf("matrices[%d]: %w", i, err)
		}
		sources = append(sources, matrix...)
	}

	return sources, nil
}

// Options converts the dashboard-level settings and every source into SDK
// options for [citui.New]. Logging, callbacks and other runtime concerns are
// left to the caller.
func Options(cfg *Config) ([]citui.Option, error) {
	sources, err := BuildSources(cfg)
	if err != nil {
		return nil, err
	}

	opts := []citui.Option{
		citui.WithSources(sources...),
		citui.WithTickRate(cfg.TickRate.Duration()),
		citui.WithHistorySize(cfg.HistorySize),
		citui.WithEmptyPolicy(citui.EmptyPolicy(cfg.EmptyPolicy)),
		citui.WithRequestRate(cfg.RequestRate),
	}
	if cfg.Title != "" {
		opts = append(opts, citui.WithTitle(cfg.Title))
	}
	if cfg.Listen != "" {
		opts = append(opts, citui.WithListenAddr(cfg.Listen))
	}
	if len(cfg.Browser) > 0 {
		opts = append(opts, citui.WithBrowserCommand(cfg.Browser[0], cfg.Browser[1:]...))
	}
	if n := cfg.Notifications; n != nil {
		opts = append(opts, citui.WithNotifications(citui.Notifications{
			Token:   n.Token,
			URL:     n.URL,
			Refresh: n.Refresh.Duration(),
			Timeout: n.Timeout.Duration(),
		}))
	}
	return opts, nil
}

// buildSource converts a single SourceConfig to an SDK Source.
func buildSource(sc SourceConfig, tokens Tokens) (citui.Source, error) {
	var opts []citui.SourceOption

	if sc.Branch != "" {
		opts = append(opts, citui.WithBranch(sc.Branch))
	}
	if sc.Workflow != "" {
		opts = append(opts, citui.WithWorkflow(sc.Workflow))
	}
	if sc.URL != "" {
		opts = append(opts, citui.WithURL(sc.URL))
	}
	if sc.Project != "" {
		opts = append(opts, citui.WithProject(sc.Project))
	}

	opts = append(opts, commonOptions(sc.Kind, sc.Token, tokens, sc.Headers, sc.Timeout, sc.Refresh, sc.Fields, sc.StatusMap)...)

	return citui.NewSource(sc.Kind, sc.Name, opts...)
}

// buildMatrix expands a MatrixConfig into sources via the SDK matrix.
func buildMatrix(mc MatrixConfig, tokens Tokens) ([]citui.Source, error) {
	opts := []citui.MatrixOption{citui.WithRepos(mc.Repos...)}

	if len(mc.Branches) > 0 {
		opts = append(opts, citui.WithBranches(mc.Branches...))
	}
	if len(mc.Workflows) > 0 {
		opts = append(opts, citui.WithWorkflows(mc.Workflows...))
	}
	if mc.URLTemplate != "" {
		opts = append(opts, citui.WithURLTemplate(mc.URLTemplate))
	}

	common := commonOptions(mc.Kind, mc.Token, tokens, mc.Headers, mc.Timeout, mc.Refresh, mc.Fields, mc.StatusMap)
	if len(common) > 0 {
		opts = append(opts, citui.WithSourceOptions(common...))
	}

	return citui.NewSourceMatrix(mc.Kind, opts...)
}

// commonOptions builds the options shared by sources and matrices.
func commonOptions(
	kind, token string,
	tokens Tokens,
	headers map[string]string,
	timeout, refresh Duration,
	fields FieldsConfig,
	statusMap map[string]string,
) []citui.SourceOption {
	var opts []citui.SourceOption

	if token == "" {
		token = tokens.forKind(kind)
	}
	if token != "" {
		opts = append(opts, citui.WithToken(token))
	}
	if len(headers) > 0 {
		opts = append(opts, citui.WithHeaders(mapToKeyValuePairs(headers)...))
	}
	if timeout != 0 {
		opts = append(opts, citui.WithTimeout(timeout.Duration()))
	}
	if refresh != 0 {
		opts = append(opts, citui.WithRefresh(refresh.Duration()))
	}
	if fields != (FieldsConfig{}) {
		opts = append(opts, citui.WithFields(citui.JSONFields{
			Items:  fields.Items,
			Status: fields.Status,
			Time:   fields.Time,
			ID:     fields.ID,
			URL:    fields.URL,
		}))
	}
	if len(statusMap) > 0 {
		table := make(map[string]citui.Status, len(statusMap))
		for raw, status := range statusMap {
			table[raw] = citui.Status(status)
		}
		// unlisted statuses keep the raw provider label
		opts = append(opts, citui.WithStatusMapper(citui.StatusMap(table, "")))
	}

	return opts
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	// sort keys for deterministic ordering
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}
