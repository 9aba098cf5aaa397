package citui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jpalmerr/citui/internal/poller"
	"github.com/jpalmerr/citui/internal/server"
	"github.com/jpalmerr/citui/internal/store"
	"github.com/jpalmerr/citui/internal/tui"
)

const (
	defaultTitle       = "citui"
	defaultTickRate    = poller.DefaultTickRate
	defaultHistorySize = store.DefaultHistorySize
)

// EmptyPolicy decides what a source's status becomes when its provider
// returns a well-formed but empty list of runs.
type EmptyPolicy string

const (
	// EmptyUnknown sets the status to [StatusUnknown] on every empty result,
	// distinguishing "no data" from "fetch failed".
	EmptyUnknown EmptyPolicy = "unknown"

	// EmptyRetain keeps the last real status of a source that has reported
	// before, e.g. when its runs have aged out of the provider's retention
	// window. Sources that never reported still become unknown.
	EmptyRetain EmptyPolicy = "retain"
)

// Dashboard is the orchestrator for CI polling and the terminal UI.
//
// Dashboard owns the source registry, the tick-driven scheduler, the
// status store with its recent-runs history, the optional HTTP status API,
// and the Bubble Tea program. It is created using [New] with functional
// options and started with [Dashboard.Run].
//
// The typical lifecycle is:
//
//	dash, err := citui.New(citui.WithSource(src))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	if err := dash.Run(ctx); err != nil { // blocks until quit or cancel
//	    log.Fatal(err)
//	}
type Dashboard struct {
	title           string
	sources         []Source
	tickRate        time.Duration
	historySize     int
	emptyPolicy     EmptyPolicy
	requestRate     float64
	listenAddr      string
	opener          func(string) error
	headless        bool
	programOptions  []tea.ProgramOption
	logger          *slog.Logger
	statusCallbacks []func(StatusResult)
	notifications   *Notifications
}

// New creates a new [Dashboard] instance with the given options.
//
// At least one source must be configured via [WithSource] or [WithSources].
// Other options have sensible defaults:
//   - Tick rate: 100ms
//   - History size: 5 runs
//   - Empty policy: [EmptyUnknown]
//   - HTTP API: disabled
//   - Browser: system default
//
// Returns an error if no sources are configured, two sources share a
// [Source.Key], or any option is invalid.
func New(opts ...Option) (*Dashboard, error) {
	cfg := &dashConfig{
		title:       defaultTitle,
		tickRate:    defaultTickRate,
		historySize: defaultHistorySize,
		emptyPolicy: EmptyUnknown,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.sources) == 0 {
		return nil, errors.New("at least one source is required")
	}

	// identity must be unique: countdowns and statuses are keyed by it
	seen := make(map[string]bool, len(cfg.sources))
	for _, s := range cfg.sources {
		if seen[s.Key()] {
			return nil, fmt.Errorf("duplicate source: %q", s.Key())
		}
		seen[s.Key()] = true
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	opener := cfg.opener
	if opener == nil {
		opener = systemOpener
		if len(cfg.browserCommand) > 0 {
			opener = commandOpener(cfg.browserCommand)
		}
	}

	return &Dashboard{
		title:           cfg.title,
		sources:         cfg.sources,
		tickRate:        cfg.tickRate,
		historySize:     cfg.historySize,
		emptyPolicy:     cfg.emptyPolicy,
		requestRate:     cfg.requestRate,
		listenAddr:      cfg.listenAddr,
		opener:          opener,
		headless:        cfg.headless,
		programOptions:  cfg.programOptions,
		logger:          logger,
		statusCallbacks: cfg.statusCallbacks,
		notifications:   cfg.notifications,
	}, nil
}

// Run polls the sources and shows the terminal UI until the user quits or
// ctx is cancelled.
//
// During execution:
//
//   - One source is polled per tick, starting with the first tick
//   - Results are folded into the status store and passed to callbacks
//   - The HTTP status API serves on the listen address, if configured
//   - The UI redraws whenever a source changes
//
// With [WithHeadless] there is no UI and Run blocks until ctx is cancelled.
//
// Returns nil on a normal quit or cancellation. Returns an error if the HTTP
// server or the terminal program fails.
func (d *Dashboard) Run(ctx context.Context) error {
	d.logger.Info("citui starting", "source_count", len(d.sources))
	d.logger.Info("scheduling configured", "tick_rate", d.tickRate.String(), "history_size", d.historySize)

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client := poller.NewClient(d.requestRate)
	defer client.Close()
	mux := poller.NewMux(client)

	infos := d.toSourceInfos()
	statusStore := d.newStore(mux, infos)

	// the inbox goes last so CI sources are polled first
	scheduled := infos
	if d.notifications != nil {
		scheduled = append(scheduled, d.notificationsInfo())
	}

	scheduler := poller.NewScheduler(scheduled, mux, storeSink{statusStore}, d.tickRate, d.logger)
	scheduler.Start(ctx)

	// track the results consumer goroutine to ensure clean shutdown
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range scheduler.Results() {
			d.handleResult(result, statusStore)
		}
	}()

	// cleanup function ensures scheduler is stopped and all results are processed
	cleanup := func() {
		scheduler.Stop() // closes results channel
		wg.Wait()        // wait for all results to be processed
	}
	defer cleanup()

	if d.listenAddr != "" {
		httpServer := server.NewServer(statusStore, d.listenAddr, d.title, d.logger)
		if err := httpServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		d.logger.Info("status API available", "url", "http://"+d.listenAddr+"/api/status")
	}

	if d.headless {
		<-ctx.Done()
		d.logger.Info("citui stopped")
		return nil
	}

	updates := statusStore.Subscribe()
	defer statusStore.Unsubscribe(updates)

	model := tui.New(tui.Config{
		Title:         d.title,
		Store:         statusStore,
		Updates:       updates,
		Refresh:       scheduler.ForceRefreshAll,
		Open:          d.open,
		Notifications: d.notifications != nil,
	})

	programOpts := append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, d.programOptions...)
	if _, err := tea.NewProgram(model, programOpts...).Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			d.logger.Info("citui stopped")
			return nil
		}
		return fmt.Errorf("terminal UI failed: %w", err)
	}

	d.logger.Info("citui stopped")
	return nil
}

// Sources returns a copy of the configured sources, in registration order.
func (d *Dashboard) Sources() []Source {
	cp := make([]Source, len(d.sources))
	copy(cp, d.sources)
	return cp
}

// TickRate returns the scheduling cadence.
func (d *Dashboard) TickRate() time.Duration {
	return d.tickRate
}

// HistorySize returns how many recent runs are kept.
func (d *Dashboard) HistorySize() int {
	return d.historySize
}

// Notifications returns the notifications panel settings, with defaults
// applied, and whether the panel is enabled.
func (d *Dashboard) Notifications() (Notifications, bool) {
	if d.notifications == nil {
		return Notifications{}, false
	}
	return *d.notifications, true
}

// RefreshTicks converts a refresh interval into scheduler ticks, rounding up
// and never below one tick.
func RefreshTicks(refresh, tickRate time.Duration) int {
	if tickRate <= 0 {
		tickRate = defaultTickRate
	}
	ticks := int((refresh + tickRate - 1) / tickRate)
	return max(ticks, 1)
}

// toSourceInfos converts the registry to the poller's representation.
func (d *Dashboard) toSourceInfos() []poller.SourceInfo {
	result := make([]poller.SourceInfo, len(d.sources))

	for i, s := range d.sources {
		var mapStatus poller.StatusMapper
		if s.mapper != nil {
			// wrap the public mapper to return string
			m := s.mapper
			mapStatus = func(raw string) string {
				return m(raw).String()
			}
		}

		result[i] = poller.SourceInfo{
			Key:          s.Key(),
			Kind:         s.kind,
			Name:         s.name,
			Branch:       s.branch,
			Workflow:     s.workflow,
			URL:          s.url,
			Project:      s.Project(),
			Token:        s.token,
			Headers:      copyMap(s.headers),
			Timeout:      s.timeout,
			RefreshTicks: RefreshTicks(s.refresh, d.tickRate),
			Fields: poller.Fields{
				Items:  s.fields.Items,
				Status: s.fields.Status,
				Time:   s.fields.Time,
				ID:     s.fields.ID,
				URL:    s.fields.URL,
			},
			MapStatus: mapStatus,
		}
	}

	return result
}

// notificationsInfo schedules the GitHub notifications inbox.
func (d *Dashboard) notificationsInfo() poller.SourceInfo {
	return poller.SourceInfo{
		Key:          store.NotificationsKey,
		Kind:         poller.KindNotifications,
		Name:         "notifications",
		URL:          d.notifications.URL,
		Token:        d.notifications.Token,
		Timeout:      d.notifications.Timeout,
		RefreshTicks: RefreshTicks(d.notifications.Refresh, d.tickRate),
	}
}

// newStore registers every source with its labels and browse URL.
func (d *Dashboard) newStore(mux poller.Mux, infos []poller.SourceInfo) *store.MemoryStore {
	policy := store.EmptyUnknown
	if d.emptyPolicy == EmptyRetain {
		policy = store.EmptyRetain
	}

	st := store.NewMemoryStore(d.historySize, policy)
	for i, s := range d.sources {
		st.Register(store.SourceStatus{
			Key:      infos[i].Key,
			Label:    Label(d.sources, s),
			Detail:   FullLabel(s),
			Provider: s.kind,
			URL:      mux.BrowseURL(infos[i]),
			Status:   store.StatusUnknown,
		})
	}
	return st
}

// handleResult logs a serviced tick and fans it out to callbacks.
func (d *Dashboard) handleResult(result poller.TickResult, st store.Store) {
	logAttrs := []any{
		"source", result.Source.Key,
		"runs", len(result.Page.Items),
		"latency_ms", result.Latency.Milliseconds(),
	}
	if result.Page.Continuation != "" {
		logAttrs = append(logAttrs, "more_pages", true)
	}
	if result.Source.Kind == poller.KindNotifications {
		logAttrs = append(logAttrs, "notifications", len(result.Page.Notifications))
	}
	if result.Error != nil {
		d.logger.Warn("poll failed", append(logAttrs, "error", result.Error.Error())...)
	} else {
		d.logger.Debug("poll completed", logAttrs...)
	}

	// callbacks report CI sources only
	if len(d.statusCallbacks) == 0 || result.Source.Kind == poller.KindNotifications {
		return
	}

	current, _ := st.Get(result.Source.Key)
	public := StatusResult{
		Source:    d.sourceByKey(result.Source.Key),
		Label:     current.Label,
		Status:    Status(current.Status),
		Latency:   result.Latency,
		CheckedAt: result.CheckedAt,
		Error:     result.Error,
	}
	for _, item := range result.Page.Items {
		public.Runs = append(public.Runs, Run{
			ID:          item.ID,
			Status:      Status(item.Status),
			CompletedAt: item.CompletedAt,
			URL:         item.URL,
		})
	}

	for _, cb := range d.statusCallbacks {
		invokeCallbackSafe(cb, public, d.logger)
	}
}

func (d *Dashboard) sourceByKey(key string) Source {
	for _, s := range d.sources {
		if s.Key() == key {
			return s
		}
	}
	return Source{}
}

// open launches the browser, logging failures.
func (d *Dashboard) open(url string) {
	if url == "" {
		return
	}
	if err := d.opener(url); err != nil {
		d.logger.Warn("failed to open browser", "url", url, "error", err.Error())
		return
	}
	d.logger.Debug("opened browser", "url", url)
}

// storeSink folds scheduler outcomes into the status store.
type storeSink struct {
	store store.Store
}

func (s storeSink) Fold(src poller.SourceInfo, page poller.Page, at time.Time) {
	if src.Kind == poller.KindNotifications {
		items := make([]store.Notification, len(page.Notifications))
		for i, n := range page.Notifications {
			items[i] = store.Notification{
				ID:         n.ID,
				Repository: n.Repository,
				Title:      n.Title,
				Reason:     n.Reason,
				UpdatedAt:  n.UpdatedAt,
				URL:        n.URL,
			}
		}
		s.store.SetNotifications(items, at)
		return
	}

	runs := make([]store.Run, len(page.Items))
	for i, item := range page.Items {
		runs[i] = store.Run{
			ID:          item.ID,
			Status:      item.Status,
			CompletedAt: item.CompletedAt,
			URL:         item.URL,
		}
	}
	s.store.Fold(src.Key, runs, at)
}

func (s storeSink) Failed(src poller.SourceInfo, err error, at time.Time) {
	s.store.RecordError(src.Key, err, at)
}

// invokeCallbackSafe calls a status callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(StatusResult), result StatusResult, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("status callback panicked",
				"panic", r,
				"source", result.Source.Key(),
			)
		}
	}()
	cb(result)
}
