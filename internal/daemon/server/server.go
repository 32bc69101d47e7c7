// Package server provides the HTTP server for the telemetry daemon.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/telemetry/errors"
	"github.com/grovetools/telemetry/internal/daemon/engine"
	"github.com/grovetools/telemetry/internal/daemon/store"
	"github.com/grovetools/telemetry/pkg/daemon"
	"github.com/grovetools/telemetry/pkg/models"
	"github.com/grovetools/telemetry/pkg/pty"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// RunningConfig holds the active configuration being used by the daemon.
// This is exposed via the /api/config endpoint so clients can verify what config is active.
type RunningConfig struct {
	ProjectsDir      string        `json:"projects_dir"`
	LivePollInterval time.Duration `json:"live_poll_interval"`
	UsageInterval    time.Duration `json:"usage_interval"`
	UsageWindowDays  int           `json:"usage_window_days"`
	WatchTranscripts bool          `json:"watch_transcripts"`
	Collectors       []string      `json:"collectors"`
	StartedAt        time.Time     `json:"started_at"`
}

// Server manages the daemon's HTTP server over a Unix socket.
type Server struct {
	logger        *logrus.Entry
	server        *http.Server
	engine        *engine.Engine
	local         *daemon.LocalClient
	ptys          *pty.Manager
	runningConfig *RunningConfig
	upgrader      websocket.Upgrader
}

// New creates a new Server answering queries from backend and hosting the
// pseudo-terminal sessions of ptys.
func New(backend *daemon.Backend, ptys *pty.Manager, logger *logrus.Entry) *Server {
	return &Server{
		logger: logger,
		local:  daemon.NewLocalClientWithBackend(backend),
		ptys:   ptys,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 32 * 1024,
		},
	}
}

// SetEngine sets the collector engine for the server.
func (s *Server) SetEngine(eng *engine.Engine) {
	s.engine = eng
}

// SetRunningConfig sets the running configuration for the server.
func (s *Server) SetRunningConfig(cfg *RunningConfig) {
	s.runningConfig = cfg
}

// Handler returns the daemon's HTTP handler, serving HTTP/1.1 and cleartext
// HTTP/2.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /api/config", s.handleGetConfig)
	mux.HandleFunc("GET /api/projects", s.handleProjects)
	mux.HandleFunc("GET /api/sessions", s.handleSessions)
	mux.HandleFunc("GET /api/timeline", s.handleTimeline)
	mux.HandleFunc("GET /api/usage", s.handleUsage)
	mux.HandleFunc("GET /api/live", s.handleLive)
	mux.HandleFunc("GET /api/stream", s.handleStreamState)

	mux.HandleFunc("GET /api/pty", s.handlePtyList)
	mux.HandleFunc("POST /api/pty", s.handlePtyCreate)
	mux.HandleFunc("DELETE /api/pty/{id}", s.handlePtyKill)
	mux.HandleFunc("POST /api/pty/{id}/resize", s.handlePtyResize)
	mux.HandleFunc("POST /api/pty/{id}/input", s.handlePtyInput)
	mux.HandleFunc("GET /api/pty/{id}/attach", s.handlePtyAttach)

	return h2c.NewHandler(mux, &http2.Server{})
}

// ListenAndServe starts the daemon on the given unix socket path.
// It blocks until the server stops or fails.
func (s *Server) ListenAndServe(socketPath string) error {
	// Cleanup stale socket
	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(socketPath), 0o755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}

	// Set restrictive permissions on socket
	if err := os.Chmod(socketPath, 0o600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	return s.Serve(listener)
}

// Serve accepts connections on listener until Shutdown.
func (s *Server) Serve(listener net.Listener) error {
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.WithField("address", listener.Addr().String()).Info("Daemon listening")
	if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleGetConfig returns the running configuration as JSON.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.runningConfig == nil {
		http.Error(w, "config not initialized", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s.runningConfig)
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.local.Projects(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.local.Sessions(r.Context(), r.URL.Query().Get("project"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("cap"), "cap", 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	tl, err := s.local.Timeline(r.Context(), daemon.TimelineQuery{
		Project: q.Get("project"),
		Session: q.Get("session"),
		Filter:  q.Get("filter"),
		Cap:     limit,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tl)
}

// handleUsage serves the collector's cached report when the requested window
// matches it and aggregates on demand otherwise.
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r.URL.Query().Get("days"), "days", s.local.Backend().Config.Usage.WindowDays)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if s.engine != nil {
		if cached := s.engine.Store().GetUsage(); cached != nil && cached.WindowDays == days {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}
	report, err := s.local.Usage(r.Context(), days)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleLive returns the last poll from the store, polling directly until
// the live collector has completed one.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	if s.engine != nil {
		if live, at := s.engine.Store().GetLive(); !at.IsZero() {
			writeJSON(w, http.StatusOK, live)
			return
		}
	}
	live, err := s.local.Live(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, live)
}

// handleStreamState provides Server-Sent Events (SSE) for real-time state updates.
// Clients can subscribe to this endpoint to receive updates whenever the daemon state changes.
func (s *Server) handleStreamState(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		http.Error(w, "engine not initialized", http.StatusServiceUnavailable)
		return
	}

	// Ensure the connection supports flushing
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Subscribe to store updates
	ch := s.engine.Store().Subscribe()
	defer s.engine.Store().Unsubscribe(ch)

	// Send initial ping to confirm connection
	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	s.logger.Debug("SSE client connected")

	// Send current state immediately so client has data right away
	state := s.engine.Store().Get()
	if !state.LiveAt.IsZero() || state.Usage != nil {
		initial := &daemon.StateUpdate{
			Live:       state.Live,
			Usage:      state.Usage,
			UpdateType: "initial",
		}
		if data, err := json.Marshal(initial); err == nil {
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case update, ok := <-ch:
			if !ok {
				return
			}
			apiUpdate := convertToAPIUpdate(update)
			if apiUpdate == nil {
				continue
			}

			data, err := json.Marshal(apiUpdate)
			if err != nil {
				s.logger.WithError(err).Error("Failed to marshal update")
				continue
			}
			// SSE format: "data: {json}\n\n"
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// convertToAPIUpdate converts internal store.Update to the public API format.
func convertToAPIUpdate(u store.Update) *daemon.StateUpdate {
	switch u.Type {
	case store.UpdateLive:
		if live, ok := u.Payload.([]models.ActiveSession); ok {
			return &daemon.StateUpdate{Live: live, UpdateType: "live", Source: u.Source}
		}
	case store.UpdateUsage:
		if report, ok := u.Payload.(*models.UsageReport); ok {
			return &daemon.StateUpdate{Usage: report, UpdateType: "usage", Source: u.Source}
		}
	case store.UpdatePtyExit:
		if ev, ok := u.Payload.(models.PtyEvent); ok {
			return &daemon.StateUpdate{PtyEvent: &ev, UpdateType: "pty_exit", Source: u.Source}
		}
	case store.UpdateConfigReload:
		configFile, _ := u.Payload.(string)
		return &daemon.StateUpdate{UpdateType: "config_reload", Source: u.Source, ConfigFile: configFile}
	}
	return nil
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError serialises err as a GroveError with a status derived from its
// code.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	groveErr, ok := errors.As(err)
	if !ok {
		groveErr = errors.Wrap(err, errors.ErrCodeInternal, err.Error())
	}
	status := statusFor(groveErr.Code)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).Warn("Request failed")
	}
	writeJSON(w, status, groveErr)
}

func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodeParseError:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeEnumerationError, errors.ErrCodeDaemonNotRunning:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// intParam parses an optional integer query parameter.
func intParam(raw, name string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.InvalidInput(name, "must be an integer").WithDetail("value", raw)
	}
	return n, nil
}
