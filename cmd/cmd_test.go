package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/grovetools/telemetry/errors"
	"github.com/grovetools/telemetry/pkg/models"
	"github.com/grovetools/telemetry/pkg/pathcodec"
	"github.com/grovetools/telemetry/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	config  string
	project string
	tree    *testutil.ProjectTree
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	home := t.TempDir()
	t.Setenv("GROVE_HOME", home)
	t.Setenv("TELEMETRY_LOG_LEVEL", "error")

	tree := testutil.NewProjectTree(t)
	tree.SkipIfDelimited(t)
	app, dir := tree.Project(t, "app")

	ts := time.Now().Add(-3 * time.Hour)
	testutil.WriteTranscript(t, dir, "s1", ts.Add(time.Minute),
		testutil.UserText(ts, "write the readme"),
		testutil.Assistant(ts.Add(time.Second),
			testutil.ToolUse("tu1", "Write", map[string]interface{}{"file_path": filepath.Join(app, "README.md")}),
			testutil.ToolUse("tu2", "Bash", map[string]interface{}{"command": "go test ./..."}),
		),
		testutil.AssistantText(ts.Add(2*time.Second), "done"),
		testutil.Record{"type": "assistant", "costUSD": 0.25},
	)

	cfg := filepath.Join(home, "telemetry.yml")
	content := "projects_dir: " + tree.Root + "\ndaemon:\n  socket: " + filepath.Join(home, "absent.sock") + "\n"
	require.NoError(t, os.WriteFile(cfg, []byte(content), 0o644))
	return &fixture{config: cfg, project: app, tree: tree}
}

func (f *fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config=" + f.config}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestEncodeDecode(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "encode", "/src/my/app")
	require.NoError(t, err)
	assert.Equal(t, "-src-my-app\n", out)

	out, err = f.run(t, "decode", "--", pathcodec.Encode(f.project))
	require.NoError(t, err)
	assert.Equal(t, f.project+"\n", out)

	out, err = f.run(t, "decode", "--json", "--", "-zz-not-here")
	require.NoError(t, err)
	var res pathcodec.Resolution
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Verified)
	assert.Equal(t, filepath.FromSlash("/zz/not/here"), res.Path)

	_, err = f.run(t, "decode", "--strict", "--", "-zz-not-here")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}

func TestProjectsAndSessions(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "projects", "--json")
	require.NoError(t, err)
	var projects []models.Project
	require.NoError(t, json.Unmarshal([]byte(out), &projects))
	require.Len(t, projects, 1)
	assert.Equal(t, f.project, projects[0].Path)
	assert.True(t, projects[0].Verified)

	out, err = f.run(t, "sessions", f.project, "--json")
	require.NoError(t, err)
	var sessions []models.SessionTimeline
	require.NoError(t, json.Unmarshal([]byte(out), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].SessionID)
	assert.Equal(t, "write the readme", sessions[0].Label)

	out, err = f.run(t, "sessions", f.project)
	require.NoError(t, err)
	assert.Contains(t, out, "s1")
}

func TestTimeline(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "timeline", "s1", f.project, "--json", "--filter", "files")
	require.NoError(t, err)
	var tl models.SessionTimeline
	require.NoError(t, json.Unmarshal([]byte(out), &tl))
	require.Len(t, tl.Actions, 1)
	assert.Equal(t, models.ActionFileWrite, tl.Actions[0].Kind)

	out, err = f.run(t, "timeline", "s1", f.project)
	require.NoError(t, err)
	assert.Contains(t, out, "go test ./...")

	_, err = f.run(t, "timeline", "s1", f.project, "--filter", "bogus")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, err = f.run(t, "timeline", "missing", f.project)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}

func TestUsage(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "usage", "--json", "--days", "0")
	require.NoError(t, err)
	var report models.UsageReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Entries, 1)
	assert.Equal(t, "app", report.Entries[0].ProjectName)
	assert.InDelta(t, 0.25, report.Totals.CostUSD, 1e-9)

	out, err = f.run(t, "usage")
	require.NoError(t, err)
	assert.Contains(t, out, "$0.25")
}

func TestPtyRequiresDaemon(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "pty", "list")
	assert.True(t, errors.Is(err, errors.ErrCodeDaemonNotRunning))
}

func TestConfigAndPaths(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "config", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"projects_dir": "`+f.tree.Root+`"`)

	out, err = f.run(t, "paths")
	require.NoError(t, err)
	var p PathsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, f.tree.Root, p.ProjectsDir)
	assert.True(t, strings.HasSuffix(p.Socket, "absent.sock"))

	out, err = f.run(t, "config", "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "projects_dir")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "42s", formatDuration(42*time.Second))
	assert.Equal(t, "5m", formatDuration(5*time.Minute))
	assert.Equal(t, "2h05m", formatDuration(125*time.Minute))
	assert.Equal(t, "999", formatTokens(999))
	assert.Equal(t, "1.5k", formatTokens(1500))
	assert.Equal(t, "2.0M", formatTokens(2_000_000))
}
