package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTickRate is the scheduling cadence: ten ticks per second.
const DefaultTickRate = 100 * time.Millisecond

// Fetcher issues a single fetch for a source. [Mux] and every [Provider]
// satisfy it.
type Fetcher interface {
	Fetch(ctx context.Context, src SourceInfo) (Page, error)
}

// Sink receives the outcome of every serviced tick, on the scheduling goroutine.
type Sink interface {
	// Fold merges a successfully fetched page.
	Fold(src SourceInfo, page Page, at time.Time)

	// Failed records a transport or decode failure.
	Failed(src SourceInfo, err error, at time.Time)
}

// TickResult describes the one fetch issued during a tick.
type TickResult struct {
	// Source is the serviced source.
	Source SourceInfo

	// Page is the fetched page; empty when Error is set.
	Page Page

	// Error is the fetch failure, if any.
	Error error

	// Latency is the time spent in the provider.
	Latency time.Duration

	// CheckedAt is when the fetch completed.
	CheckedAt time.Time
}

// Scheduler polls sources one tick at a time.
//
// Each source owns a countdown of ticks. Every tick scans the sources in
// registration order: the first source whose countdown is zero is fetched,
// every other due source waits at zero for a later tick, and every source
// with a positive countdown is decremented. At most one request is therefore
// in flight system-wide, and it completes before the next tick starts.
//
// A successful fetch resets the countdown to the source's refresh interval;
// a failed fetch leaves it at zero so the source is retried on the next tick.
//
// Lifecycle methods (Start, Stop) and ForceRefreshAll are safe for concurrent use.
type Scheduler struct {
	sources  []SourceInfo
	fetcher  Fetcher
	sink     Sink
	tickRate time.Duration
	results  chan TickResult
	logger   *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once

	// countdowns are indexed like sources
	stateMu   sync.Mutex
	countdown []int
}

// NewScheduler creates a tick-driven [Scheduler].
//
// Parameters:
//   - sources: Sources to poll, in priority (registration) order
//   - fetcher: Issues the single fetch of a tick
//   - sink: Receives every fetch outcome; may be nil
//   - tickRate: Interval between ticks when driven by [Scheduler.Start]
//   - logger: Logger for failures and recovered panics
//
// Every countdown starts at zero, so sources are polled one per tick from
// the first tick on.
func NewScheduler(sources []SourceInfo, fetcher Fetcher, sink Sink, tickRate time.Duration, logger *slog.Logger) *Scheduler {
	if tickRate <= 0 {
		tickRate = DefaultTickRate
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		sources:   sources,
		fetcher:   fetcher,
		sink:      sink,
		tickRate:  tickRate,
		results:   make(chan TickResult, len(sources)+1),
		logger:    logger,
		countdown: make([]int, len(sources)),
	}
}

// Results returns a receive-only channel that emits one [TickResult] per
// serviced tick while the scheduler runs via [Scheduler.Start].
//
// The channel is closed when the scheduler stops. Consumers should drain it;
// the tick loop blocks on a full channel.
func (s *Scheduler) Results() <-chan TickResult {
	return s.results
}

// Countdowns returns a copy of every source's remaining ticks, in
// registration order.
func (s *Scheduler) Countdowns() []int {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	out := make([]int, len(s.countdown))
	copy(out, s.countdown)
	return out
}

// ForceRefreshAll makes every source due. The sources are then polled one
// per tick in registration order. An in-flight fetch is not cancelled and
// still resets its own countdown when it succeeds.
func (s *Scheduler) ForceRefreshAll() {
	s.stateMu.Lock()
	for i := range s.countdown {
		s.countdown[i] = 0
	}
	s.stateMu.Unlock()

	s.logger.Debug("refresh requested", "sources", len(s.sources))
}

// Tick advances the schedule by one unit and fetches at most one source.
//
// It returns the serviced source's result and true, or false when no source
// was due.
func (s *Scheduler) Tick(ctx context.Context) (TickResult, bool) {
	s.stateMu.Lock()
	due := -1
	for i := range s.countdown {
		if s.countdown[i] == 0 {
			if due < 0 {
				due = i
			}
			continue
		}
		s.countdown[i]--
	}
	s.stateMu.Unlock()

	if due < 0 {
		return TickResult{}, false
	}

	src := s.sources[due]
	start := time.Now()
	page, err := s.safeFetch(ctx, src)
	result := TickResult{
		Source:    src,
		Page:      page,
		Error:     err,
		Latency:   time.Since(start),
		CheckedAt: time.Now(),
	}

	if err != nil {
		// countdown stays at zero: retried next tick, no backoff
		if s.sink != nil {
			s.sink.Failed(src, err, result.CheckedAt)
		}
		return result, true
	}

	if s.sink != nil {
		s.sink.Fold(src, page, result.CheckedAt)
	}

	refresh := max(src.RefreshTicks, 1)
	s.stateMu.Lock()
	s.countdown[due] = refresh
	s.stateMu.Unlock()

	return result, true
}

// Start begins the tick loop in a background goroutine.
//
// Start is non-blocking. The loop ticks at the configured rate until
// [Scheduler.Stop] is called or the context is cancelled. A slow fetch delays
// the following ticks rather than overlapping them.
//
// If ctx is nil, context.Background() is used as the parent context.
// Start is idempotent; if Stop was called before Start, Start is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	tickCtx := s.ctx // capture under lock to avoid race
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.closeOnce.Do(func() { close(s.results) })

		ticker := time.NewTicker(s.tickRate)
		defer ticker.Stop()

		for {
			select {
			case <-tickCtx.Done():
				return
			case <-ticker.C:
				result, serviced := s.Tick(tickCtx)
				if !serviced {
					continue
				}
				select {
				case s.results <- result:
				case <-tickCtx.Done():
					return
				}
			}
		}
	}()
}

// Stop halts the tick loop and waits for it to exit, then closes the results
// channel. Stop is idempotent and safe to call before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()

	// ensure channel is closed even if Start() was never called
	s.closeOnce.Do(func() { close(s.results) })
}

// safeFetch calls the fetcher with panic recovery.
// A panic is logged with its stack and a correlation ID, and reported as a
// decode failure carrying that ID.
func (s *Scheduler) safeFetch(ctx context.Context, src SourceInfo) (page Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			s.logger.Error("provider panic",
				"correlation_id", correlationID,
				"source", src.Key,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)

			page = Page{}
			err = &FetchError{
				Kind:   ErrDecode,
				Source: src.Key,
				Err:    fmt.Errorf("provider panic (correlation_id: %s)", correlationID),
			}
		}
	}()
	return s.fetcher.Fetch(ctx, src)
}
