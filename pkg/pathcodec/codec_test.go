package pathcodec

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grovetools/telemetry/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkdirs(t *testing.T, root string, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0755))
	}
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "-Users-dev-src-app", Encode("/Users/dev/src/app"))
	assert.Equal(t, "-", Encode("/"))
	assert.Equal(t, "rel-path", Encode("rel/path"))
	assert.Equal(t, "", Encode(""))
}

func TestRoundTrip(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "src/app/internal", "docs")

	c := New()
	for _, p := range []string{
		root,
		filepath.Join(root, "src"),
		filepath.Join(root, "src", "app", "internal"),
		filepath.Join(root, "docs"),
	} {
		if strings.Contains(p, Delimiter) {
			t.Skipf("temp dir %s contains the delimiter", p)
		}
		res := c.Decode(Encode(p))
		assert.True(t, res.Verified, p)
		assert.Equal(t, p, res.Path)
	}
}

func TestAmbiguousPrefersLongestExisting(t *testing.T) {
	root := t.TempDir()
	if strings.Contains(root, Delimiter) {
		t.Skipf("temp dir %s contains the delimiter", root)
	}
	mkdirs(t, root, "a-b", "a/b")

	res := New().Decode(Encode(filepath.Join(root, "a-b")))
	require.True(t, res.Verified)
	assert.Equal(t, filepath.Join(root, "a-b"), res.Path)
}

func TestBacktracksWhenLongestRunDeadEnds(t *testing.T) {
	root := t.TempDir()
	if strings.Contains(root, Delimiter) {
		t.Skipf("temp dir %s contains the delimiter", root)
	}
	// "my-app" exists but has no "web" child; "my/app-web" is the real path.
	mkdirs(t, root, "my-app", "my/app-web")

	res := New().Decode(Encode(filepath.Join(root, "my", "app-web")))
	require.True(t, res.Verified)
	assert.Equal(t, filepath.Join(root, "my", "app-web"), res.Path)
}

func TestFallbackIsUnverified(t *testing.T) {
	c := New(WithExists(func(string) bool { return false }))

	res := c.Decode("-nowhere-to-be-found")
	assert.False(t, res.Verified)
	assert.Equal(t, filepath.FromSlash("/nowhere/to/be/found"), res.Path)

	_, err := c.DecodeStrict("-nowhere-to-be-found")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}

func TestUnverifiedDecodeIsRetried(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "my-app")
	if strings.Contains(root, Delimiter) {
		t.Skipf("temp dir %s contains the delimiter", root)
	}

	c := New()
	res := c.Decode(Encode(target))
	assert.False(t, res.Verified)
	assert.Equal(t, filepath.Join(root, "my", "app"), res.Path)

	mkdirs(t, root, "my-app")
	res = c.Decode(Encode(target))
	assert.True(t, res.Verified)
	assert.Equal(t, target, res.Path)
}

func TestDecodeWithFakeTree(t *testing.T) {
	tree := map[string]bool{
		"/":                   true,
		"/home":               true,
		"/home/dev":           true,
		"/home/dev/my-tool":   true,
		"/home/dev/my-tool/x": true,
	}
	calls := 0
	c := New(WithExists(func(p string) bool {
		calls++
		return tree[filepath.ToSlash(p)]
	}))

	path, err := c.DecodeStrict("-home-dev-my-tool-x")
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/home/dev/my-tool/x"), path)

	before := calls
	c.Decode("-home-dev-my-tool-x")
	assert.Equal(t, before, calls, "second decode is served from cache")

	c.Forget()
	c.Decode("-home-dev-my-tool-x")
	assert.Greater(t, calls, before)
}

func TestManyDelimitersStayTractable(t *testing.T) {
	calls := 0
	c := New(WithExists(func(string) bool {
		calls++
		return false
	}))
	name := "-" + strings.Repeat("x-", 40) + "y"

	res := c.Decode(name)
	assert.False(t, res.Verified)
	assert.Less(t, calls, 5000)
}
