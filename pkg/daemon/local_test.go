package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/grovetools/telemetry/config"
	"github.com/grovetools/telemetry/errors"
	"github.com/grovetools/telemetry/pkg/models"
	"github.com/grovetools/telemetry/pkg/pty"
	"github.com/grovetools/telemetry/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T, tree *testutil.ProjectTree) *LocalClient {
	t.Helper()
	cfg := config.Defaults()
	cfg.ProjectsDir = tree.Root
	cfg.Daemon.Socket = "/nonexistent/telemetryd.sock"
	client, err := NewLocalClient(cfg, nil)
	require.NoError(t, err)
	return client
}

func TestLocalClientQueries(t *testing.T) {
	tree := testutil.NewProjectTree(t)
	tree.SkipIfDelimited(t)
	app, dir := tree.Project(t, "app")

	ts := time.Now().Add(-time.Hour)
	testutil.WriteTranscript(t, dir, "s1", ts,
		testutil.UserText(ts, "fix the build"),
		testutil.Assistant(ts.Add(time.Second),
			testutil.TextBlock("Looking."),
			testutil.ToolUse("tu1", "Bash", map[string]interface{}{"command": "make"}),
		),
		testutil.Record{"type": "assistant", "message": map[string]interface{}{
			"usage": map[string]interface{}{"input_tokens": 1000, "output_tokens": 100},
		}},
	)

	client := newLocal(t, tree)
	ctx := context.Background()
	assert.False(t, client.IsRunning())

	projects, err := client.Projects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, app, projects[0].Path)
	assert.True(t, projects[0].Verified)

	sessions, err := client.Sessions(ctx, app)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].SessionID)
	assert.Equal(t, "fix the build", sessions[0].Label)

	tl, err := client.Timeline(ctx, TimelineQuery{Project: app, Session: "s1", Filter: "commands"})
	require.NoError(t, err)
	require.Len(t, tl.Actions, 1)
	assert.Equal(t, models.ActionCommand, tl.Actions[0].Kind)
	assert.Equal(t, "tu1", tl.Actions[0].ID)

	report, err := client.Usage(ctx, 30)
	require.NoError(t, err)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, int64(1000), report.Totals.InputTokens)
	assert.Equal(t, int64(100), report.Totals.OutputTokens)
}

func TestLocalClientValidation(t *testing.T) {
	client := newLocal(t, testutil.NewProjectTree(t))
	ctx := context.Background()

	_, err := client.Sessions(ctx, "")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, err = client.Timeline(ctx, TimelineQuery{Project: "/work/app"})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, err = client.Timeline(ctx, TimelineQuery{Project: "/work/app", Session: "s1", Filter: "images"})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, err = client.Timeline(ctx, TimelineQuery{Project: "/work/app", Session: "s1"})
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}

func TestLocalClientDaemonOnly(t *testing.T) {
	client := newLocal(t, testutil.NewProjectTree(t))
	ctx := context.Background()

	_, err := client.StreamState(ctx)
	assert.True(t, errors.Is(err, errors.ErrCodeDaemonNotRunning))
	_, err = client.ListPty(ctx)
	assert.True(t, errors.Is(err, errors.ErrCodeDaemonNotRunning))
	_, err = client.CreatePty(ctx, pty.CreateOptions{})
	assert.True(t, errors.Is(err, errors.ErrCodeDaemonNotRunning))
	assert.True(t, errors.Is(client.KillPty(ctx, "x"), errors.ErrCodeDaemonNotRunning))
	assert.True(t, errors.Is(client.ResizePty(ctx, "x", 1, 1), errors.ErrCodeDaemonNotRunning))
	assert.True(t, errors.Is(client.WritePty(ctx, "x", nil), errors.ErrCodeDaemonNotRunning))
	assert.NoError(t, client.Close())
}

func TestNewFallsBackToLocal(t *testing.T) {
	cfg := config.Defaults()
	cfg.ProjectsDir = t.TempDir()
	cfg.Daemon.Socket = "/nonexistent/telemetryd.sock"

	client, err := New(cfg, nil)
	require.NoError(t, err)
	_, ok := client.(*LocalClient)
	assert.True(t, ok)

	_, err = Connect(cfg.Daemon.Socket)
	assert.True(t, errors.Is(err, errors.ErrCodeDaemonNotRunning))
}

func TestNewBackendRejectsBadConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Usage.Exclude = []string{"["}
	_, err := NewBackend(cfg, nil)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	cfg = config.Defaults()
	cfg.Live.ProcessPattern = "("
	_, err = NewBackend(cfg, nil)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestBackendPtyOptions(t *testing.T) {
	cfg := config.Defaults()
	cfg.Pty.Shell = "/bin/zsh"
	b, err := NewBackend(cfg, nil)
	require.NoError(t, err)

	opts := b.PtyOptions(nil)
	assert.Equal(t, "/bin/zsh", opts.Shell)
	assert.Equal(t, config.DefaultSeedDelay, opts.SeedDelay)
	assert.Equal(t, config.DefaultSeedTimeout, opts.SeedTimeout)
	assert.Equal(t, config.DefaultStripEnv, opts.StripEnv)
}
