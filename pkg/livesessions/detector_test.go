package livesessions

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/grovetools/telemetry/errors"
	"github.com/grovetools/telemetry/pkg/process"
	"github.com/grovetools/telemetry/pkg/transcripts"
	"github.com/grovetools/telemetry/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	infos []process.Info
	err   error
	calls atomic.Int32
	block chan struct{}
}

func (f *fakeLister) List(ctx context.Context) ([]process.Info, error) {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	return f.infos, f.err
}

type fakeResolver map[int]string

func (f fakeResolver) Resolve(_ context.Context, pid int) (string, error) {
	if dir, ok := f[pid]; ok {
		return dir, nil
	}
	return "", errors.EnumerationFailed("working directory", fmt.Errorf("no such pid %d", pid))
}

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)

func TestPollPairsByRecency(t *testing.T) {
	tree := testutil.NewProjectTree(t)
	app, appDir := tree.Project(t, "app")
	other, _ := tree.Project(t, "other")

	testutil.WriteTranscript(t, appDir, "newest", now.Add(-time.Minute), testutil.UserText(now, "newest prompt"))
	testutil.WriteTranscript(t, appDir, "middle", now.Add(-5*time.Minute), testutil.UserText(now, "<b>middle</b>   prompt"))
	testutil.WriteTranscript(t, appDir, "stale", now.Add(-time.Hour), testutil.UserText(now, "stale prompt"))

	lister := &fakeLister{infos: []process.Info{
		{PID: 10, StartTime: now.Add(-30 * time.Minute), Command: "claude"},
		{PID: 11, StartTime: now.Add(-2 * time.Minute), Command: "node /opt/bin/claude"},
		{PID: 12, StartTime: now.Add(-50 * time.Minute), Command: "/usr/bin/claude"},
		{PID: 20, StartTime: now.Add(-3 * time.Minute), Command: "claude"},
		{PID: 30, StartTime: now.Add(-4 * time.Minute), Command: "claude"},
		{PID: 40, StartTime: now, Command: "vim claude.md"},
		{PID: 41, StartTime: now, Command: "claude --resume"},
		{PID: 42, StartTime: now, Command: "myclaude"},
	}}
	resolver := fakeResolver{10: app, 11: app, 12: app + "/", 20: other}

	d, err := New(Options{
		Lister:   lister,
		Resolver: resolver,
		Store:    transcripts.NewStore(tree.Root, nil),
		Now:      func() time.Time { return now },
	})
	require.NoError(t, err)

	sessions, err := d.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 5)

	byPID := map[int]int{}
	for i, s := range sessions {
		byPID[s.PID] = i
	}
	assert.Equal(t, []int{11, 20, 30, 10, 12}, []int{sessions[0].PID, sessions[1].PID, sessions[2].PID, sessions[3].PID, sessions[4].PID})

	s11 := sessions[byPID[11]]
	require.NotNil(t, s11.SessionLabel)
	assert.Equal(t, "newest prompt", *s11.SessionLabel)
	assert.Equal(t, "newest", s11.TranscriptID)
	assert.Equal(t, app, s11.ProjectPath)
	assert.Equal(t, "app", s11.ProjectName)

	s10 := sessions[byPID[10]]
	require.NotNil(t, s10.SessionLabel)
	assert.Equal(t, "middle prompt", *s10.SessionLabel)

	assert.Nil(t, sessions[byPID[12]].SessionLabel, "stale transcript is not paired")
	assert.Nil(t, sessions[byPID[20]].SessionLabel, "no transcripts for directory")
	assert.Nil(t, sessions[byPID[30]].SessionLabel, "unresolvable cwd")
	assert.Empty(t, sessions[byPID[30]].ProjectPath)
}

func TestPollEnumerationFailure(t *testing.T) {
	d, err := New(Options{
		Lister:   &fakeLister{err: errors.EnumerationFailed("process list", fmt.Errorf("ps missing"))},
		Resolver: fakeResolver{},
		Store:    transcripts.NewStore(t.TempDir(), nil),
	})
	require.NoError(t, err)

	_, err = d.Poll(context.Background())
	assert.True(t, errors.Is(err, errors.ErrCodeEnumerationError))
}

func TestPollNoProcesses(t *testing.T) {
	d, err := New(Options{Lister: &fakeLister{}, Resolver: fakeResolver{}, Store: transcripts.NewStore(t.TempDir(), nil)})
	require.NoError(t, err)

	sessions, err := d.Poll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestConcurrentPollsShareOneScan(t *testing.T) {
	lister := &fakeLister{block: make(chan struct{}), infos: []process.Info{{PID: 5, Command: "claude"}}}
	d, err := New(Options{Lister: lister, Resolver: fakeResolver{}, Store: transcripts.NewStore(t.TempDir(), nil)})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]int, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := d.Poll(context.Background())
			if err == nil {
				results[i] = len(s)
			}
		}(i)
	}

	require.Eventually(t, func() bool { return lister.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(lister.block)
	wg.Wait()

	assert.LessOrEqual(t, lister.calls.Load(), int32(4))
	assert.Equal(t, []int{1, 1, 1, 1}, results)
}

func TestInvalidPattern(t *testing.T) {
	_, err := New(Options{Pattern: "("})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}
