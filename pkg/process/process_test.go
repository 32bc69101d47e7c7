package process

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/telemetry/command"
	"github.com/grovetools/telemetry/errors"
	"github.com/grovetools/telemetry/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsProcessAlive(t *testing.T) {
	assert.True(t, IsProcessAlive(os.Getpid()))
	assert.False(t, IsProcessAlive(0))
	assert.False(t, IsProcessAlive(-1))
}

func TestParsePS(t *testing.T) {
	out := []byte(`    1 Mon Jan  1 09:00:00 2024 /sbin/init splash
  812 Tue Mar  5 14:03:27 2024 node /usr/local/bin/claude
 4410 Tue Mar  5 14:05:00 2024 claude   --resume  abc
garbage line
 9999 Tue Mar  5 14:05:00 2024
`)
	infos := ParsePS(out)
	require.Len(t, infos, 3)

	assert.Equal(t, 1, infos[0].PID)
	assert.Equal(t, "/sbin/init splash", infos[0].Command)

	assert.Equal(t, 812, infos[1].PID)
	assert.Equal(t, time.Date(2024, 3, 5, 14, 3, 27, 0, time.Local), infos[1].StartTime)

	assert.Equal(t, "claude   --resume  abc", infos[2].Command, "inner spacing is preserved")
}

func TestListerUsesExecutor(t *testing.T) {
	fake := testutil.NewFakeExecutor().
		On("ps -axo pid=,lstart=,args=", "  42 Wed Jan 10 08:00:00 2024 claude\n")

	infos, err := NewLister(command.NewRunnerWithExecutor(fake)).List(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, 42, infos[0].PID)
	assert.Equal(t, "claude", infos[0].Command)
}

func TestListerFailure(t *testing.T) {
	_, err := NewLister(command.NewRunnerWithExecutor(testutil.NewFakeExecutor())).List(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeEnumerationError))
}

func TestCwdResolverProc(t *testing.T) {
	proc := t.TempDir()
	target := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(proc, "77"), 0755))
	require.NoError(t, os.Symlink(target, filepath.Join(proc, "77", "cwd")))

	fake := testutil.NewFakeExecutor()
	dir, err := NewCwdResolver(command.NewRunnerWithExecutor(fake)).WithProcRoot(proc).Resolve(context.Background(), 77)
	require.NoError(t, err)
	assert.Equal(t, target, dir)
	assert.Empty(t, fake.Calls())
}

func TestCwdResolverLsofFallback(t *testing.T) {
	fake := testutil.NewFakeExecutor().
		On("lsof -a -p 88 -d cwd -Fn", "p88\nfcwd\nn/Users/dev/src/app\n")
	r := NewCwdResolver(command.NewRunnerWithExecutor(fake)).WithProcRoot(t.TempDir())

	dir, err := r.Resolve(context.Background(), 88)
	require.NoError(t, err)
	assert.Equal(t, "/Users/dev/src/app", dir)

	_, err = r.Resolve(context.Background(), 89)
	assert.True(t, errors.Is(err, errors.ErrCodeEnumerationError))
}

func TestSplitFields(t *testing.T) {
	fields, rest := splitFields("  a b\tc  rest of  line ", 3)
	assert.Equal(t, []string{"a", "b", "c"}, fields)
	assert.Equal(t, "rest of  line", rest)

	fields, rest = splitFields("only two", 3)
	assert.Equal(t, []string{"only", "two"}, fields)
	assert.Empty(t, rest)
}
