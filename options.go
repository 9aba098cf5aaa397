package citui

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// dashConfig holds mutable state during Dashboard construction.
type dashConfig struct {
	title           string
	sources         []Source
	tickRate        time.Duration
	historySize     int
	emptyPolicy     EmptyPolicy
	requestRate     float64
	listenAddr      string
	browserCommand  []string
	opener          func(url string) error
	headless        bool
	programOptions  []tea.ProgramOption
	logger          *slog.Logger
	statusCallbacks []func(StatusResult)
	notifications   *Notifications
}

// Option is a function that configures a [Dashboard] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*dashConfig) error

// WithSource adds a single [Source] to the dashboard.
//
// Can be called multiple times. Sources are polled and displayed in the order
// they are added. At least one source must be configured for [New] to succeed.
func WithSource(s Source) Option {
	return func(cfg *dashConfig) error {
		cfg.sources = append(cfg.sources, s)
		return nil
	}
}

// WithSources adds multiple [Source] values to the dashboard.
//
// Equivalent to calling [WithSource] multiple times; combines well with
// [NewSourceMatrix].
//
// Example:
//
//	sources, _ := citui.NewSourceMatrix(citui.KindGitHub, citui.WithRepos("acme/api", "acme/web"))
//	dash, err := citui.New(citui.WithSources(sources...))
func WithSources(sources ...Source) Option {
	return func(cfg *dashConfig) error {
		cfg.sources = append(cfg.sources, sources...)
		return nil
	}
}

// WithTickRate sets the scheduling cadence. Each tick polls at most one
// source, so the tick rate also caps the request rate.
//
// Defaults to 100ms (10 ticks per second).
//
// Returns an error if the duration is below 10ms or above 10s.
func WithTickRate(d time.Duration) Option {
	return func(cfg *dashConfig) error {
		if d < 10*time.Millisecond || d > 10*time.Second {
			return errors.New("tick rate must be between 10ms and 10s")
		}
		cfg.tickRate = d
		return nil
	}
}

// WithHistorySize sets how many recently completed runs are kept across all
// sources. Defaults to 5.
//
// Returns an error if n is not positive.
func WithHistorySize(n int) Option {
	return func(cfg *dashConfig) error {
		if n <= 0 {
			return errors.New("history size must be positive")
		}
		cfg.historySize = n
		return nil
	}
}

// WithEmptyPolicy sets what happens to a source's status when its provider
// returns no runs. Defaults to [EmptyUnknown].
func WithEmptyPolicy(p EmptyPolicy) Option {
	return func(cfg *dashConfig) error {
		switch p {
		case EmptyUnknown, EmptyRetain:
			cfg.emptyPolicy = p
			return nil
		default:
			return fmt.Errorf("unknown empty policy %q", p)
		}
	}
}

// WithRequestRate caps provider requests per second across all sources, on
// top of the one-request-per-tick schedule. Useful for staying inside API
// quotas with a fast tick rate. Zero (the default) disables the cap.
//
// Returns an error if rps is negative.
func WithRequestRate(rps float64) Option {
	return func(cfg *dashConfig) error {
		if rps < 0 {
			return errors.New("request rate cannot be negative")
		}
		cfg.requestRate = rps
		return nil
	}
}

// WithListenAddr enables the read-only HTTP status API on addr, e.g.
// "127.0.0.1:8080". Disabled by default.
//
// Returns an error if addr is not a host:port pair.
func WithListenAddr(addr string) Option {
	return func(cfg *dashConfig) error {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("invalid listen address %q: %w", addr, err)
		}
		cfg.listenAddr = addr
		return nil
	}
}

// WithBrowserCommand opens URLs by running name with args followed by the
// URL, instead of the system default browser.
//
// Example:
//
//	citui.WithBrowserCommand("firefox", "--new-tab")
func WithBrowserCommand(name string, args ...string) Option {
	return func(cfg *dashConfig) error {
		if name == "" {
			return errors.New("browser command cannot be empty")
		}
		cfg.browserCommand = append([]string{name}, args...)
		return nil
	}
}

// WithOpener replaces the function used to open URLs in a browser.
// Errors it returns are logged and otherwise ignored.
//
// Returns an error if open is nil.
func WithOpener(open func(url string) error) Option {
	return func(cfg *dashConfig) error {
		if open == nil {
			return errors.New("opener cannot be nil")
		}
		cfg.opener = open
		return nil
	}
}

// WithHeadless runs the dashboard without the terminal UI: sources are still
// polled, callbacks fire, and the HTTP API (if enabled) serves the status.
func WithHeadless() Option {
	return func(cfg *dashConfig) error {
		cfg.headless = true
		return nil
	}
}

// WithProgramOptions passes extra options to the Bubble Tea program, e.g.
// tea.WithInput and tea.WithOutput to run on something other than the
// controlling terminal.
func WithProgramOptions(opts ...tea.ProgramOption) Option {
	return func(cfg *dashConfig) error {
		cfg.programOptions = append(cfg.programOptions, opts...)
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Dashboard instance.
//
// The terminal belongs to the UI while the dashboard runs, so the logger
// should write somewhere else, typically a file. If not specified,
// [slog.Default] is used.
//
// Example:
//
//	f, _ := os.Create("citui.log")
//	dash, err := citui.New(
//	    citui.WithSource(src),
//	    citui.WithLogger(slog.New(slog.NewJSONHandler(f, nil))),
//	)
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *dashConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithStatusCallback registers a function to be called on every poll completion.
//
// The callback receives a [StatusResult] with the source, its status after
// the poll, the fetched runs, and any error.
//
// Multiple callbacks may be registered by calling WithStatusCallback multiple
// times; they execute in registration order.
//
// IMPORTANT: Callbacks must be non-blocking. They run on the goroutine that
// drains scheduler results; a blocking callback stalls the tick loop once
// the result buffer fills.
//
// Panics within callbacks are recovered and logged; they do not crash the
// scheduler.
//
// Example:
//
//	dash, err := citui.New(
//	    citui.WithSource(src),
//	    citui.WithStatusCallback(func(r citui.StatusResult) {
//	        if r.Status == citui.StatusFailed {
//	            notify(r.Label + " is red")
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithStatusCallback(cb func(StatusResult)) Option {
	return func(cfg *dashConfig) error {
		if cb == nil {
			return nil // no-op for nil callback (safe to call)
		}
		cfg.statusCallbacks = append(cfg.statusCallbacks, cb)
		return nil
	}
}

// WithTitle sets the title shown in the dashboard header.
//
// If not specified, defaults to "citui".
func WithTitle(title string) Option {
	return func(cfg *dashConfig) error {
		cfg.title = title
		return nil
	}
}

// Notifications configures the GitHub notifications panel.
type Notifications struct {
	// Token is a GitHub token allowed to read notifications. Required.
	Token string

	// URL overrides the API base, e.g. for GitHub Enterprise.
	URL string

	// Refresh is the wait after a successful poll. Defaults to 60 seconds;
	// must be between 1 second and 1 hour.
	Refresh time.Duration

	// Timeout bounds one request. Defaults to 10 seconds.
	Timeout time.Duration
}

// WithNotifications adds a panel listing the unread GitHub notifications of
// the token's user, above the sources.
//
// The inbox is scheduled after every source and shares the tick budget: it
// never adds a concurrent request.
//
// Returns an error if the token is empty, the URL is not http(s), or a
// duration is out of range.
func WithNotifications(n Notifications) Option {
	return func(cfg *dashConfig) error {
		if n.Token == "" {
			return errors.New("notifications: token is required")
		}
		if n.URL != "" {
			if err := validateURL(n.URL); err != nil {
				return fmt.Errorf("notifications: %w", err)
			}
		}
		switch {
		case n.Refresh == 0:
			n.Refresh = defaultRefresh
		case n.Refresh < time.Second || n.Refresh > time.Hour:
			return errors.New("notifications: refresh must be between 1 second and 1 hour")
		}
		switch {
		case n.Timeout == 0:
			n.Timeout = defaultSourceTimeout
		case n.Timeout < 0:
			return errors.New("notifications: timeout must be positive")
		}
		cfg.notifications = &n
		return nil
	}
}
