package daemon

import (
	"context"

	"github.com/grovetools/telemetry/config"
	"github.com/grovetools/telemetry/errors"
	"github.com/grovetools/telemetry/pkg/models"
	"github.com/grovetools/telemetry/pkg/pty"
	"github.com/grovetools/telemetry/pkg/timeline"
	"github.com/sirupsen/logrus"
)

// LocalClient implements Client by calling library functions directly.
// This is used when the daemon is not running, providing the same API
// but executing all operations in-process.
type LocalClient struct {
	backend *Backend
}

// NewLocalClient creates a LocalClient over a fresh Backend.
func NewLocalClient(cfg *config.Config, logger *logrus.Entry) (*LocalClient, error) {
	b, err := NewBackend(cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewLocalClientWithBackend(b), nil
}

// NewLocalClientWithBackend creates a LocalClient over an existing Backend.
func NewLocalClientWithBackend(b *Backend) *LocalClient {
	return &LocalClient{backend: b}
}

// Backend returns the client's components.
func (c *LocalClient) Backend() *Backend {
	return c.backend
}

// Projects lists project directories from the transcript store.
func (c *LocalClient) Projects(ctx context.Context) ([]models.Project, error) {
	return c.backend.Store.ListProjects()
}

// Sessions summarises a project's transcripts.
func (c *LocalClient) Sessions(ctx context.Context, projectPath string) ([]models.SessionTimeline, error) {
	if projectPath == "" {
		return nil, errors.InvalidInput("project", "project path is required")
	}
	return c.backend.Timeline.ListSessions(ctx, projectPath)
}

// Timeline parses one session.
func (c *LocalClient) Timeline(ctx context.Context, q TimelineQuery) (*models.SessionTimeline, error) {
	if q.Project == "" || q.Session == "" {
		return nil, errors.InvalidInput("session", "project path and session id are required")
	}
	filter, err := timeline.ParseFilter(q.Filter)
	if err != nil {
		return nil, err
	}
	if q.Cap < 0 {
		return nil, errors.InvalidInput("cap", "must not be negative")
	}
	return c.backend.Timeline.Detail(q.Project, q.Session, filter, q.Cap)
}

// Usage aggregates usage directly over the transcript store.
func (c *LocalClient) Usage(ctx context.Context, days int) (*models.UsageReport, error) {
	return c.backend.Usage.Aggregate(ctx, days)
}

// Live polls for running sessions.
func (c *LocalClient) Live(ctx context.Context) ([]models.ActiveSession, error) {
	return c.backend.Live.Poll(ctx)
}

// StreamState returns an error for LocalClient since streaming is only available via daemon.
// Use the daemon for real-time updates.
func (c *LocalClient) StreamState(ctx context.Context) (<-chan StateUpdate, error) {
	return nil, c.daemonOnly("streaming")
}

// ListPty returns an error since PTY sessions live in the daemon.
func (c *LocalClient) ListPty(ctx context.Context) ([]models.PtySession, error) {
	return nil, c.daemonOnly("pty sessions")
}

// CreatePty returns an error since PTY sessions live in the daemon.
func (c *LocalClient) CreatePty(ctx context.Context, opts pty.CreateOptions) (*models.PtySession, error) {
	return nil, c.daemonOnly("pty sessions")
}

// KillPty returns an error since PTY sessions live in the daemon.
func (c *LocalClient) KillPty(ctx context.Context, id string) error {
	return c.daemonOnly("pty sessions")
}

// ResizePty returns an error since PTY sessions live in the daemon.
func (c *LocalClient) ResizePty(ctx context.Context, id string, cols, rows int) error {
	return c.daemonOnly("pty sessions")
}

// WritePty returns an error since PTY sessions live in the daemon.
func (c *LocalClient) WritePty(ctx context.Context, id string, data []byte) error {
	return c.daemonOnly("pty sessions")
}

// IsRunning returns false since this is the local fallback client.
func (c *LocalClient) IsRunning() bool {
	return false
}

// Close is a no-op for LocalClient.
func (c *LocalClient) Close() error {
	return nil
}

func (c *LocalClient) daemonOnly(feature string) error {
	return errors.DaemonNotRunning(c.backend.Config.Daemon.Socket).
		WithDetail("feature", feature)
}

// Ensure LocalClient implements Client interface.
var _ Client = (*LocalClient)(nil)
