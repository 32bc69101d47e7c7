// Package pathcodec maps filesystem paths to the flat directory names used for
// per-project transcript directories, and back.
//
// Encoding replaces every path separator with Delimiter. Segment names may
// themselves contain Delimiter, so decoding is a search: candidates are
// verified against the filesystem, preferring the longest segment at each
// position.
package pathcodec

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/grovetools/telemetry/errors"
)

// Delimiter replaces path separators in encoded names.
const Delimiter = "-"

// Encode flattens path into a directory-safe name. It never fails.
func Encode(path string) string {
	return strings.ReplaceAll(filepath.ToSlash(path), "/", Delimiter)
}

// Naive returns the reconstruction that treats every delimiter as a separator.
func Naive(name string) string {
	return filepath.FromSlash(strings.ReplaceAll(name, Delimiter, "/"))
}

// ExistsFunc reports whether a path exists.
type ExistsFunc func(path string) bool

func statExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Resolution is the result of decoding a name.
type Resolution struct {
	Path string `json:"path"`
	// Verified is false when no candidate existed and Path is the naive
	// reconstruction.
	Verified bool `json:"verified"`
}

// Codec decodes encoded names against a filesystem.
type Codec struct {
	exists ExistsFunc

	mu    sync.Mutex
	cache map[string]Resolution
}

// Option configures a Codec.
type Option func(*Codec)

// WithExists replaces the filesystem existence check.
func WithExists(fn ExistsFunc) Option {
	return func(c *Codec) { c.exists = fn }
}

// New creates a Codec that checks candidates with os.Stat.
func New(opts ...Option) *Codec {
	c := &Codec{
		exists: statExists,
		cache:  make(map[string]Resolution),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Decode reconstructs the path encoded in name. When no candidate verifies it
// falls back to Naive with Verified set to false. Only verified resolutions
// are cached, so a directory created later is found on the next call.
func (c *Codec) Decode(name string) Resolution {
	c.mu.Lock()
	if res, ok := c.cache[name]; ok {
		c.mu.Unlock()
		return res
	}
	c.mu.Unlock()

	path, ok := c.search(name)
	if !ok {
		return Resolution{Path: Naive(name)}
	}

	res := Resolution{Path: path, Verified: true}
	c.mu.Lock()
	c.cache[name] = res
	c.mu.Unlock()
	return res
}

// DecodeStrict is Decode without the fallback: it returns a NOT_FOUND error
// when no reconstruction exists on disk.
func (c *Codec) DecodeStrict(name string) (string, error) {
	res := c.Decode(name)
	if !res.Verified {
		return "", errors.NotFound("project path", name).WithDetail("naive", res.Path)
	}
	return res.Path, nil
}

// Forget drops cached resolutions, for callers that know the tree changed.
func (c *Codec) Forget() {
	c.mu.Lock()
	c.cache = make(map[string]Resolution)
	c.mu.Unlock()
}

// search runs the longest-run-first descent. Failed (prefix, index) states are
// memoised so that names with many delimiters stay polynomial.
func (c *Codec) search(name string) (string, bool) {
	if name == "" {
		return "", false
	}

	root := ""
	rest := name
	if strings.HasPrefix(name, Delimiter) {
		root = string(filepath.Separator)
		rest = name[len(Delimiter):]
	}
	if rest == "" {
		return root, root != "" && c.exists(root)
	}

	parts := strings.Split(rest, Delimiter)
	type state struct {
		prefix string
		index  int
	}
	failed := make(map[state]struct{})

	var descend func(prefix string, i int) (string, bool)
	descend = func(prefix string, i int) (string, bool) {
		if i == len(parts) {
			return prefix, true
		}
		key := state{prefix, i}
		if _, ok := failed[key]; ok {
			return "", false
		}
		for j := len(parts); j > i; j-- {
			segment := strings.Join(parts[i:j], Delimiter)
			if segment == "" {
				continue
			}
			candidate := joinSegment(prefix, segment)
			if !c.exists(candidate) {
				continue
			}
			if path, ok := descend(candidate, j); ok {
				return path, true
			}
		}
		failed[key] = struct{}{}
		return "", false
	}
	return descend(root, 0)
}

func joinSegment(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	if strings.HasSuffix(prefix, string(filepath.Separator)) {
		return prefix + segment
	}
	return prefix + string(filepath.Separator) + segment
}
