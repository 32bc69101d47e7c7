// Package testutil provides fixtures shared by package tests: synthetic
// project trees, transcript writers and a scripted command executor.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/grovetools/telemetry/pkg/pathcodec"
	"github.com/stretchr/testify/require"
)

// Record is one transcript line before encoding.
type Record map[string]interface{}

// TS formats t the way transcripts store timestamps.
func TS(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// UserText builds a user record carrying a plain-text prompt.
func UserText(ts time.Time, text string) Record {
	return Record{
		"type":      "user",
		"timestamp": TS(ts),
		"message":   map[string]interface{}{"role": "user", "content": text},
	}
}

// AssistantText builds an assistant record with a single text block.
func AssistantText(ts time.Time, text string) Record {
	return Assistant(ts, TextBlock(text))
}

// Assistant builds an assistant record from content blocks. A zero ts omits
// the timestamp.
func Assistant(ts time.Time, blocks ...map[string]interface{}) Record {
	content := make([]interface{}, 0, len(blocks))
	for _, b := range blocks {
		content = append(content, b)
	}
	r := Record{
		"type":    "assistant",
		"message": map[string]interface{}{"role": "assistant", "content": content},
	}
	if !ts.IsZero() {
		r["timestamp"] = TS(ts)
	}
	return r
}

// TextBlock builds a text content block.
func TextBlock(text string) map[string]interface{} {
	return map[string]interface{}{"type": "text", "text": text}
}

// ToolUse builds a tool_use content block.
func ToolUse(id, name string, input map[string]interface{}) map[string]interface{} {
	b := map[string]interface{}{"type": "tool_use", "name": name, "input": input}
	if id != "" {
		b["id"] = id
	}
	return b
}

// Lines encodes records as JSONL lines.
func Lines(t *testing.T, records ...Record) []string {
	t.Helper()
	lines := make([]string, 0, len(records))
	for _, r := range records {
		data, err := json.Marshal(r)
		require.NoError(t, err)
		lines = append(lines, string(data))
	}
	return lines
}

// WriteLines writes raw lines to path, newline terminated, and sets its mtime
// when mtime is non-zero.
func WriteLines(t *testing.T, path string, mtime time.Time, lines ...string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	if !mtime.IsZero() {
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}
	return path
}

// WriteTranscript writes records as <dir>/<sessionID>.jsonl.
func WriteTranscript(t *testing.T, dir, sessionID string, mtime time.Time, records ...Record) string {
	t.Helper()
	return WriteLines(t, filepath.Join(dir, sessionID+".jsonl"), mtime, Lines(t, records...)...)
}

// ProjectTree is a temporary projects root with real project directories
// beside it, so that encoded names decode to verified paths.
type ProjectTree struct {
	// Root is the transcripts root holding one directory per encoded path.
	Root string
	// Work is where project directories are created.
	Work string
}

// NewProjectTree creates an empty tree under t.TempDir().
func NewProjectTree(t *testing.T) *ProjectTree {
	t.Helper()
	base := t.TempDir()
	tree := &ProjectTree{
		Root: filepath.Join(base, "projects"),
		Work: filepath.Join(base, "work"),
	}
	require.NoError(t, os.MkdirAll(tree.Root, 0755))
	require.NoError(t, os.MkdirAll(tree.Work, 0755))
	return tree
}

// Project creates a project directory under Work and its transcript
// directory under Root. It returns the project path and transcript dir.
func (p *ProjectTree) Project(t *testing.T, rel string) (string, string) {
	t.Helper()
	projectPath := filepath.Join(p.Work, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(projectPath, 0755))
	dir := filepath.Join(p.Root, pathcodec.Encode(projectPath))
	require.NoError(t, os.MkdirAll(dir, 0755))
	return projectPath, dir
}

// SkipIfDelimited skips tests whose temp paths already contain the encoding
// delimiter, since such paths cannot be asserted on exactly.
func (p *ProjectTree) SkipIfDelimited(t *testing.T) {
	t.Helper()
	if strings.Contains(p.Work, pathcodec.Delimiter) {
		t.Skipf("temp dir %s contains the delimiter", p.Work)
	}
}
