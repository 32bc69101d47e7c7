package profiling

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfilerNestsSpans(t *testing.T) {
	p := NewProfiler()
	outer := p.Start("query")
	inner := p.Start("parse")
	inner.Stop()
	outer.Stop()
	p.Start("render").Stop()

	var out bytes.Buffer
	p.Summarize(&out)
	s := out.String()
	assert.Contains(t, s, "- query (")
	assert.Contains(t, s, "  - parse (")
	assert.Contains(t, s, "- render (")
	assert.NotContains(t, s, "  - render (")
}

func TestDisabledProfilerIsSilent(t *testing.T) {
	p := &Profiler{}
	p.Start("ignored").Stop()
	var out bytes.Buffer
	p.Summarize(&out)
	assert.Empty(t, out.String())
}

func TestCobraProfilerWritesProfiles(t *testing.T) {
	dir := t.TempDir()
	cpu := filepath.Join(dir, "cpu.pprof")
	mem := filepath.Join(dir, "mem.pprof")

	cmd := &cobra.Command{Use: "x", RunE: func(*cobra.Command, []string) error { return nil }}
	NewCobraProfiler().AddFlags(cmd)
	var out bytes.Buffer
	cmd.SetErr(&out)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--cpu-profile", cpu, "--mem-profile", mem})
	require.NoError(t, cmd.Execute())

	for _, path := range []string{cpu, mem} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
	assert.Contains(t, out.String(), "Memory profile written")
}
