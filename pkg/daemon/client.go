// Package daemon provides a client interface for interacting with the telemetry
// daemon (telemetryd). It implements a transparent fallback pattern: if the
// daemon is running, use its socket API; if not, fall back to direct library
// calls.
package daemon

import (
	"context"

	"github.com/grovetools/telemetry/pkg/models"
	"github.com/grovetools/telemetry/pkg/pty"
)

// Client defines the interface for interacting with the telemetry daemon.
// Both RemoteClient (socket) and LocalClient (direct calls) implement this
// interface.
type Client interface {
	// Projects returns every project with a transcript directory.
	Projects(ctx context.Context) ([]models.Project, error)

	// Sessions returns summaries of a project's sessions, newest first.
	Sessions(ctx context.Context, projectPath string) ([]models.SessionTimeline, error)

	// Timeline returns the parsed action timeline of one session.
	Timeline(ctx context.Context, q TimelineQuery) (*models.SessionTimeline, error)

	// Usage aggregates usage over the last days days (0 means all time).
	Usage(ctx context.Context, days int) (*models.UsageReport, error)

	// Live returns the currently running sessions, newest first.
	Live(ctx context.Context) ([]models.ActiveSession, error)

	// StreamState subscribes to real-time state updates from the daemon.
	// For LocalClient, this returns an error since streaming is only
	// available via daemon.
	StreamState(ctx context.Context) (<-chan StateUpdate, error)

	// Pseudo-terminal sessions only exist inside the daemon.
	ListPty(ctx context.Context) ([]models.PtySession, error)
	CreatePty(ctx context.Context, opts pty.CreateOptions) (*models.PtySession, error)
	KillPty(ctx context.Context, id string) error
	ResizePty(ctx context.Context, id string, cols, rows int) error
	WritePty(ctx context.Context, id string, data []byte) error

	// IsRunning returns true if the daemon is available and responding.
	IsRunning() bool

	// Close cleans up any resources used by the client.
	Close() error
}

// TimelineQuery selects a session timeline.
type TimelineQuery struct {
	Project string
	Session string
	// Filter is one of files, commands, text or all.
	Filter string
	// Cap bounds the number of actions parsed; 0 uses the configured cap.
	Cap int
}

// StateUpdate represents an update pushed from the daemon to subscribers.
type StateUpdate struct {
	Live       []models.ActiveSession `json:"live,omitempty"`
	Usage      *models.UsageReport    `json:"usage,omitempty"`
	PtyEvent   *models.PtyEvent       `json:"pty_event,omitempty"`
	UpdateType string                 `json:"update_type"` // "initial", "live", "usage", "pty_exit", "config_reload"
	Source     string                 `json:"source,omitempty"`
	ConfigFile string                 `json:"config_file,omitempty"`
}

// AttachMessage is a JSON text frame on a PTY attach websocket. Clients send
// resize messages; the daemon sends one exit message before closing. Terminal
// bytes travel as binary frames in both directions.
type AttachMessage struct {
	Type     string `json:"type"` // "resize" or "exit"
	Cols     int    `json:"cols,omitempty"`
	Rows     int    `json:"rows,omitempty"`
	ExitCode int    `json:"exit_code,omitempty"`
	Signal   string `json:"signal,omitempty"`
}

// PtyInput is the body of a PTY input request.
type PtyInput struct {
	Data []byte `json:"data"`
}

// PtySize is the body of a PTY resize request.
type PtySize struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}
