package transcripts

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/telemetry/errors"
	"github.com/grovetools/telemetry/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTranscriptsSortedNewestFirst(t *testing.T) {
	tree := testutil.NewProjectTree(t)
	project, dir := tree.Project(t, "app")

	now := time.Now()
	testutil.WriteLines(t, filepath.Join(dir, "old.jsonl"), now.Add(-2*time.Hour), `{}`)
	testutil.WriteLines(t, filepath.Join(dir, "new.jsonl"), now, `{}`)
	testutil.WriteLines(t, filepath.Join(dir, "mid.jsonl"), now.Add(-time.Hour), `{}`)
	testutil.WriteLines(t, filepath.Join(dir, "notes.txt"), now, "ignored")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "subagents.jsonl"), 0755))

	store := NewStore(tree.Root, nil)
	files, err := store.ListTranscripts(project)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{files[0].SessionID, files[1].SessionID, files[2].SessionID})
	assert.Equal(t, project, files[0].ProjectPath)
	assert.Equal(t, int64(3), files[0].SizeBytes)
}

func TestListTranscriptsMissingDirIsEmpty(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	files, err := store.ListTranscripts("/does/not/exist")
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.NotNil(t, files)
}

func TestListProjects(t *testing.T) {
	tree := testutil.NewProjectTree(t)
	tree.SkipIfDelimited(t)
	a, _ := tree.Project(t, "alpha")
	b, _ := tree.Project(t, "beta/svc")
	require.NoError(t, os.MkdirAll(filepath.Join(tree.Root, "-ghost-project"), 0755))

	projects, err := NewStore(tree.Root, nil).ListProjects()
	require.NoError(t, err)
	require.Len(t, projects, 3)

	byPath := map[string]bool{}
	for _, p := range projects {
		byPath[p.Path] = p.Verified
	}
	assert.True(t, byPath[a])
	assert.True(t, byPath[b])
	assert.False(t, byPath[filepath.FromSlash("/ghost/project")])
}

func TestFind(t *testing.T) {
	tree := testutil.NewProjectTree(t)
	project, dir := tree.Project(t, "app")
	testutil.WriteLines(t, filepath.Join(dir, "abc.jsonl"), time.Time{}, `{}`)

	store := NewStore(tree.Root, nil)
	f, err := store.Find(project, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", f.SessionID)

	_, err = store.Find(project, "missing")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))

	_, err = store.Find(project, "../escape")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestReadBounded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.jsonl")
	require.NoError(t, os.WriteFile(path, make([]byte, 100*1024), 0644))

	data, err := ReadBounded(path, 10)
	require.NoError(t, err)
	assert.Len(t, data, 10)

	data, err = ReadBounded(path, 0)
	require.NoError(t, err)
	assert.Len(t, data, DefaultHeadBytes)

	_, err = ReadBounded(filepath.Join(t.TempDir(), "nope"), 10)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}
