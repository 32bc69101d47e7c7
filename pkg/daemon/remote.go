package daemon

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/telemetry/errors"
	"github.com/grovetools/telemetry/pkg/models"
	"github.com/grovetools/telemetry/pkg/pty"
)

// RemoteClient implements Client by calling the daemon's HTTP API over a Unix socket.
// This provides cached access to live sessions and usage and is the only way
// to reach pseudo-terminal sessions.
type RemoteClient struct {
	httpClient *http.Client
	socketPath string
}

// NewRemoteClient creates a new RemoteClient connected to the daemon socket.
func NewRemoteClient(socketPath string) (*RemoteClient, error) {
	// Create HTTP client that dials Unix socket
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
		DisableKeepAlives: false,
		MaxIdleConns:      10,
		IdleConnTimeout:   90 * time.Second,
	}

	client := &http.Client{
		Transport: transport,
		// Usage aggregation over a large history can take a while.
		Timeout: 2 * time.Minute,
	}

	return &RemoteClient{
		httpClient: client,
		socketPath: socketPath,
	}, nil
}

// baseURL is the dummy host used for Unix socket HTTP requests.
// The actual connection goes through the Unix socket, not this URL.
const baseURL = "http://unix"

// SocketPath returns the daemon socket the client talks to.
func (c *RemoteClient) SocketPath() string {
	return c.socketPath
}

// Projects returns every project known to the daemon.
func (c *RemoteClient) Projects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := c.do(ctx, http.MethodGet, "/api/projects", nil, nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// Sessions returns session summaries for a project.
func (c *RemoteClient) Sessions(ctx context.Context, projectPath string) ([]models.SessionTimeline, error) {
	var sessions []models.SessionTimeline
	q := url.Values{"project": {projectPath}}
	if err := c.do(ctx, http.MethodGet, "/api/sessions", q, nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Timeline returns one session's timeline.
func (c *RemoteClient) Timeline(ctx context.Context, tq TimelineQuery) (*models.SessionTimeline, error) {
	q := url.Values{"project": {tq.Project}, "session": {tq.Session}}
	if tq.Filter != "" {
		q.Set("filter", tq.Filter)
	}
	if tq.Cap != 0 {
		q.Set("cap", strconv.Itoa(tq.Cap))
	}
	var tl models.SessionTimeline
	if err := c.do(ctx, http.MethodGet, "/api/timeline", q, nil, &tl); err != nil {
		return nil, err
	}
	return &tl, nil
}

// Usage returns a usage report, served from the daemon's cache when the
// window matches its configured one.
func (c *RemoteClient) Usage(ctx context.Context, days int) (*models.UsageReport, error) {
	var report models.UsageReport
	q := url.Values{"days": {strconv.Itoa(days)}}
	if err := c.do(ctx, http.MethodGet, "/api/usage", q, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Live returns the daemon's most recent live session poll.
func (c *RemoteClient) Live(ctx context.Context) ([]models.ActiveSession, error) {
	var sessions []models.ActiveSession
	if err := c.do(ctx, http.MethodGet, "/api/live", nil, nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListPty returns the daemon's pseudo-terminal sessions.
func (c *RemoteClient) ListPty(ctx context.Context) ([]models.PtySession, error) {
	var sessions []models.PtySession
	if err := c.do(ctx, http.MethodGet, "/api/pty", nil, nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// CreatePty spawns a shell in the daemon.
func (c *RemoteClient) CreatePty(ctx context.Context, opts pty.CreateOptions) (*models.PtySession, error) {
	var session models.PtySession
	if err := c.do(ctx, http.MethodPost, "/api/pty", nil, opts, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// KillPty terminates a pseudo-terminal session.
func (c *RemoteClient) KillPty(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/pty/"+url.PathEscape(id), nil, nil, nil)
}

// ResizePty changes a session's terminal size.
func (c *RemoteClient) ResizePty(ctx context.Context, id string, cols, rows int) error {
	return c.do(ctx, http.MethodPost, "/api/pty/"+url.PathEscape(id)+"/resize", nil, PtySize{Cols: cols, Rows: rows}, nil)
}

// WritePty sends input to a session.
func (c *RemoteClient) WritePty(ctx context.Context, id string, data []byte) error {
	return c.do(ctx, http.MethodPost, "/api/pty/"+url.PathEscape(id)+"/input", nil, PtyInput{Data: data}, nil)
}

// AttachPty opens a websocket bound to a session's terminal.
func (c *RemoteClient) AttachPty(ctx context.Context, id string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		NetDialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", c.socketPath)
		},
		HandshakeTimeout: 10 * time.Second,
	}
	conn, resp, err := dialer.DialContext(ctx, "ws://unix/api/pty/"+url.PathEscape(id)+"/attach", nil)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, decodeError(resp)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDaemonNotRunning, "failed to attach to pty session").
			WithDetail("socket", c.socketPath)
	}
	return conn, nil
}

// IsRunning returns true if the daemon is available and responding.
func (c *RemoteClient) IsRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// StreamState subscribes to real-time state updates via Server-Sent Events (SSE).
// Returns a channel that receives updates. The channel is closed when the context is cancelled
// or the connection is lost.
func (c *RemoteClient) StreamState(ctx context.Context) (<-chan StateUpdate, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/api/stream", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}

	// Use a separate client with no timeout for streaming
	streamTransport := &http.Transport{
		DialContext: func(dialCtx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(dialCtx, "unix", c.socketPath)
		},
	}
	streamClient := &http.Client{
		Transport: streamTransport,
		Timeout:   0, // No timeout for streaming
	}

	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDaemonNotRunning, "failed to connect to stream").
			WithDetail("socket", c.socketPath)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}

	ch := make(chan StateUpdate, 10)

	go func() {
		defer resp.Body.Close()
		defer close(ch)
		defer streamTransport.CloseIdleConnections()

		scanner := bufio.NewScanner(resp.Body)
		// Usage reports with long histories exceed the default 64KB line.
		buf := make([]byte, 0, 1024*1024)
		scanner.Buffer(buf, 16*1024*1024)
		for scanner.Scan() {
			line := scanner.Text()

			// Skip comments and empty lines
			if strings.HasPrefix(line, ":") || line == "" {
				continue
			}

			if strings.HasPrefix(line, "data: ") {
				var update StateUpdate
				if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &update); err != nil {
					continue // Skip malformed data
				}

				select {
				case ch <- update:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

// Close cleans up any resources used by the client.
func (c *RemoteClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// do performs a JSON request. A non-2xx response is decoded into the
// daemon's coded error.
func (c *RemoteClient) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	target := baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDaemonNotRunning, fmt.Sprintf("%s %s failed", method, path)).
			WithDetail("socket", c.socketPath)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to decode daemon response").
			WithDetail("path", path)
	}
	return nil
}

// decodeError rebuilds the GroveError the daemon serialised into an error
// response.
func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var groveErr errors.GroveError
	if err := json.Unmarshal(data, &groveErr); err == nil && groveErr.Code != "" {
		return &groveErr
	}
	return errors.New(errors.ErrCodeInternal, fmt.Sprintf("daemon returned status %d", resp.StatusCode)).
		WithDetail("body", strings.TrimSpace(string(data)))
}

// Ensure RemoteClient implements Client interface.
var _ Client = (*RemoteClient)(nil)
