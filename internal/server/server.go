package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jpalmerr/citui/internal/store"
)

const (
	// sseWriteTimeout bounds each event write so a stalled client cannot pin
	// its handler goroutine. Keep it <= shutdownTimeout.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	defaultTitle = "citui"
)

// statusResponse is the body of GET /api/status.
type statusResponse struct {
	Title         string               `json:"title"`
	Sources       []store.SourceStatus `json:"sources"`
	Recent        []store.Event        `json:"recent"`
	Notifications []store.Notification `json:"notifications"`
}

// Server exposes the dashboard state over HTTP, read-only.
//
// Routes:
//   - GET /api/status: every source, the recent runs and unread
//     notifications, as JSON
//   - GET /api/sse: a "source" event per source on connect, then one per update
type Server struct {
	store      store.Store
	addr       string
	httpServer *http.Server
	title      string
	logger     *slog.Logger
}

// NewServer creates a [Server] for addr. An empty title falls back to
// "citui". Nothing listens until [Server.Start].
func NewServer(st store.Store, addr string, title string, logger *slog.Logger) *Server {
	if title == "" {
		title = defaultTitle
	}
	return &Server{
		store:  st,
		addr:   addr,
		title:  title,
		logger: logger,
	}
}

// Start binds the listener and serves in the background until ctx is
// cancelled, then shuts down gracefully.
//
// The bind happens synchronously so an address already in use is reported
// as an error rather than logged later.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.addr = ln.Addr().String()

	s.httpServer = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts end with ctx, which is what stops open SSE streams
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// Addr returns the listen address; after [Server.Start] a ":0" port is
// resolved to the bound one.
func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/sse", s.handleSSE)
	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.store.Snapshot()
	resp := statusResponse{
		Title:         s.title,
		Sources:       snap.Sources,
		Recent:        snap.Recent,
		Notifications: snap.Notifications,
	}
	// encode empty collections as [] so clients never see null
	if resp.Sources == nil {
		resp.Sources = []store.SourceStatus{}
	}
	if resp.Recent == nil {
		resp.Recent = []store.Event{}
	}
	if resp.Notifications == nil {
		resp.Notifications = []store.Notification{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to encode status response", "error", err)
	}
}

// handleSSE replays every source's current status, then streams updates
// until the client leaves, the server shuts down, or the store closes the
// subscription.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")

	// subscribe before the replay so no update falls between the two
	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	stream := newSSEStream(w, s.logger)
	for _, status := range s.store.Snapshot().Sources {
		if err := stream.send(status); err != nil {
			return
		}
	}

	for {
		select {
		case status, ok := <-ch:
			if !ok {
				return
			}
			if err := stream.send(status); err != nil {
				s.logger.Debug("sse client dropped", "error", err)
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

// sseStream writes "source" events with a per-write deadline.
type sseStream struct {
	w         http.ResponseWriter
	rc        *http.ResponseController
	logger    *slog.Logger
	deadlines bool
}

func newSSEStream(w http.ResponseWriter, logger *slog.Logger) *sseStream {
	return &sseStream{
		w:         w,
		rc:        http.NewResponseController(w),
		logger:    logger,
		deadlines: true,
	}
}

func (s *sseStream) send(status store.SourceStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		// a status that cannot be encoded is skipped, not fatal to the stream
		s.logger.Warn("failed to encode sse event", "source", status.Key, "error", err)
		return nil
	}

	if s.deadlines {
		if err := s.rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
			// e.g. httptest recorders; carry on without deadlines
			s.logger.Warn("sse write deadlines not supported", "error", err)
			s.deadlines = false
		}
	}

	if _, err := fmt.Fprintf(s.w, "event: source\nid: %s\ndata: %s\n\n", status.Key, data); err != nil {
		return err
	}
	return s.rc.Flush()
}
