package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/telemetry/config"
	"github.com/grovetools/telemetry/errors"
	"github.com/grovetools/telemetry/internal/daemon/engine"
	"github.com/grovetools/telemetry/internal/daemon/store"
	"github.com/grovetools/telemetry/pkg/daemon"
	"github.com/grovetools/telemetry/pkg/models"
	"github.com/grovetools/telemetry/pkg/pty"
	"github.com/grovetools/telemetry/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv     *Server
	eng     *engine.Engine
	client  *daemon.RemoteClient
	project string
}

func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newServer(t *testing.T) (*Server, *engine.Engine, string) {
	t.Helper()
	tree := testutil.NewProjectTree(t)
	tree.SkipIfDelimited(t)
	app, dir := tree.Project(t, "app")

	ts := time.Now().Add(-2 * time.Hour)
	testutil.WriteTranscript(t, dir, "s1", ts,
		testutil.UserText(ts, "add a readme"),
		testutil.Assistant(ts.Add(time.Second),
			testutil.ToolUse("tu1", "Write", map[string]interface{}{"file_path": filepath.Join(app, "README.md")}),
		),
		testutil.Record{"type": "assistant", "costUSD": 0.25},
	)

	cfg := config.Defaults()
	cfg.ProjectsDir = tree.Root
	cfg.Usage.WindowDays = 30
	backend, err := daemon.NewBackend(cfg, nil)
	require.NoError(t, err)

	ptys := pty.NewManager(pty.Options{Shell: "/bin/sh", SeedDelay: 50 * time.Millisecond})
	t.Cleanup(ptys.Shutdown)

	srv := New(backend, ptys, discardLogger())
	eng := engine.New(store.New(), discardLogger())
	srv.SetEngine(eng)
	return srv, eng, app
}

func startServer(t *testing.T) *fixture {
	t.Helper()
	srv, eng, app := newServer(t)

	// Unix socket paths are length limited, so avoid the long test temp dir.
	dir, err := os.MkdirTemp("", "tlm")
	require.NoError(t, err)
	sock := filepath.Join(dir, "d.sock")
	listener, err := net.Listen("unix", sock)
	require.NoError(t, err)

	go func() { _ = srv.Serve(listener) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		os.RemoveAll(dir)
	})

	client, err := daemon.NewRemoteClient(sock)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	require.Eventually(t, client.IsRunning, 5*time.Second, 10*time.Millisecond)

	return &fixture{srv: srv, eng: eng, client: client, project: app}
}

func TestRemoteQueries(t *testing.T) {
	f := startServer(t)
	ctx := context.Background()

	projects, err := f.client.Projects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, f.project, projects[0].Path)

	sessions, err := f.client.Sessions(ctx, f.project)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "add a readme", sessions[0].Label)

	tl, err := f.client.Timeline(ctx, daemon.TimelineQuery{Project: f.project, Session: "s1", Filter: "files"})
	require.NoError(t, err)
	require.Len(t, tl.Actions, 1)
	assert.Equal(t, models.ActionFileWrite, tl.Actions[0].Kind)

	_, err = f.client.Timeline(ctx, daemon.TimelineQuery{Project: f.project, Session: "missing"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))

	_, err = f.client.Timeline(ctx, daemon.TimelineQuery{Project: f.project, Session: "s1", Filter: "bogus"})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	report, err := f.client.Usage(ctx, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, report.Totals.CostUSD, 1e-9)
	assert.Equal(t, 1, report.Totals.SessionCount)
}

func TestLiveAndUsageServedFromStore(t *testing.T) {
	f := startServer(t)
	ctx := context.Background()

	label := "deploy"
	f.eng.Store().ApplyUpdate(store.Update{Type: store.UpdateLive, Payload: []models.ActiveSession{
		{PID: 4242, ProjectPath: f.project, SessionLabel: &label},
	}})
	live, err := f.client.Live(ctx)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, 4242, live[0].PID)
	require.NotNil(t, live[0].SessionLabel)
	assert.Equal(t, "deploy", *live[0].SessionLabel)

	generated := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	f.eng.Store().ApplyUpdate(store.Update{Type: store.UpdateUsage, Payload: &models.UsageReport{
		WindowDays:  30,
		GeneratedAt: generated,
	}})

	cached, err := f.client.Usage(ctx, 30)
	require.NoError(t, err)
	assert.True(t, generated.Equal(cached.GeneratedAt))

	fresh, err := f.client.Usage(ctx, 7)
	require.NoError(t, err)
	assert.False(t, generated.Equal(fresh.GeneratedAt))
	assert.Equal(t, 7, fresh.WindowDays)
}

func TestStreamState(t *testing.T) {
	f := startServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := f.client.StreamState(ctx)
	require.NoError(t, err)

	f.eng.Store().ApplyUpdate(store.Update{Type: store.UpdateLive, Source: "live", Payload: []models.ActiveSession{{PID: 7}}})
	f.eng.Store().BroadcastConfigReload("telemetry.yml")

	var got []daemon.StateUpdate
	deadline := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case u, ok := <-updates:
			require.True(t, ok)
			if u.UpdateType == "initial" {
				continue
			}
			got = append(got, u)
		case <-deadline:
			t.Fatalf("timed out; got %+v", got)
		}
	}
	assert.Equal(t, "live", got[0].UpdateType)
	require.Len(t, got[0].Live, 1)
	assert.Equal(t, 7, got[0].Live[0].PID)
	assert.Equal(t, "config_reload", got[1].UpdateType)
	assert.Equal(t, "telemetry.yml", got[1].ConfigFile)
}

// readUntil reads attach frames until output contains want or an exit message
// arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string) (string, *daemon.AttachMessage) {
	t.Helper()
	var out strings.Builder
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	for {
		kind, data, err := conn.ReadMessage()
		require.NoError(t, err, "output so far: %q", out.String())
		if kind == websocket.TextMessage {
			var msg daemon.AttachMessage
			require.NoError(t, json.Unmarshal(data, &msg))
			return out.String(), &msg
		}
		out.Write(data)
		if want != "" && strings.Contains(out.String(), want) {
			return out.String(), nil
		}
	}
}

func TestPtyOverSocket(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	f := startServer(t)
	ctx := context.Background()

	session, err := f.client.CreatePty(ctx, pty.CreateOptions{Cwd: t.TempDir(), Cols: 90, Rows: 20})
	require.NoError(t, err)
	assert.Equal(t, models.PtyRunning, session.State)
	assert.Equal(t, 90, session.Cols)

	list, err := f.client.ListPty(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, session.ID, list[0].ID)

	conn, err := f.client.AttachPty(ctx, session.ID)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("echo via-$((1+1))\n")))
	readUntil(t, conn, "via-2")

	require.NoError(t, f.client.WritePty(ctx, session.ID, []byte("echo rest-$((2+2))\n")))
	readUntil(t, conn, "rest-4")

	require.NoError(t, f.client.ResizePty(ctx, session.ID, 120, 40))
	require.NoError(t, conn.WriteJSON(daemon.AttachMessage{Type: "resize", Cols: 100, Rows: 30}))

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("exit 5\n")))
	_, exit := readUntil(t, conn, "")
	require.NotNil(t, exit)
	assert.Equal(t, "exit", exit.Type)
	assert.Equal(t, 5, exit.ExitCode)

	err = f.client.KillPty(ctx, session.ID)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}

func TestPtyKillAndUnknown(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	f := startServer(t)
	ctx := context.Background()

	session, err := f.client.CreatePty(ctx, pty.CreateOptions{Cwd: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, f.client.KillPty(ctx, session.ID))

	list, err := f.client.ListPty(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.True(t, errors.Is(f.client.ResizePty(ctx, session.ID, 80, 24), errors.ErrCodeNotFound))
	assert.True(t, errors.Is(f.client.WritePty(ctx, session.ID, []byte("x")), errors.ErrCodeNotFound))

	_, err = f.client.AttachPty(ctx, "missing")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))

	_, err = f.client.CreatePty(ctx, pty.CreateOptions{Cwd: "/does/not/exist"})
	assert.True(t, errors.Is(err, errors.ErrCodeProcessError))
}

func TestHandlerDirect(t *testing.T) {
	srv, _, _ := newServer(t)
	srv.SetRunningConfig(&RunningConfig{UsageWindowDays: 30, Collectors: []string{"live"}})
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var running RunningConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &running))
	assert.Equal(t, 30, running.UsageWindowDays)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/timeline?project=/x&session=s&cap=lots", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var groveErr errors.GroveError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &groveErr))
	assert.Equal(t, errors.ErrCodeInvalidInput, groveErr.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/pty/abc/resize", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/pty", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(errors.ErrCodeNotFound))
	assert.Equal(t, http.StatusBadRequest, statusFor(errors.ErrCodeInvalidInput))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(errors.ErrCodeEnumerationError))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.ErrCodeProcessError))
}

func TestConvertToAPIUpdate(t *testing.T) {
	u := convertToAPIUpdate(store.Update{Type: store.UpdatePtyExit, Source: "pty", Payload: models.PtyEvent{ID: "p", ExitCode: 1}})
	require.NotNil(t, u)
	assert.Equal(t, "pty_exit", u.UpdateType)
	require.NotNil(t, u.PtyEvent)
	assert.Equal(t, "p", u.PtyEvent.ID)

	assert.Nil(t, convertToAPIUpdate(store.Update{Type: store.UpdateLive, Payload: 3}))
}
