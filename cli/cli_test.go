package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/grovetools/telemetry/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandlerHints(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"daemon", errors.DaemonNotRunning("/tmp/x.sock"), "telemetry daemon start"},
		{"pty", errors.NotFound("pty session", "abc"), "telemetry pty list"},
		{"session", errors.NotFound("session", "s1"), "telemetry sessions"},
		{"config", errors.ConfigNotFound("/etc/t.yml"), "/etc/t.yml"},
		{"input", errors.InvalidInput("filter", "bad"), "--help"},
		{"enumeration", errors.EnumerationFailed("processes", fmt.Errorf("ps: exit 1")), "process table"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := NewErrorHandler(&out, false).Handle(tt.err)
			assert.Equal(t, tt.err, err)
			assert.Contains(t, out.String(), "Error:")
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestErrorHandlerVerboseDetails(t *testing.T) {
	var out bytes.Buffer
	_ = NewErrorHandler(&out, true).Handle(errors.NotFound("session", "s1"))
	assert.Contains(t, out.String(), `"NOT_FOUND"`)

	out.Reset()
	_ = NewErrorHandler(&out, true).Handle(fmt.Errorf("plain"))
	assert.Contains(t, out.String(), "plain")
	assert.NotContains(t, out.String(), "Error details")

	assert.NoError(t, NewErrorHandler(&out, false).Handle(nil))
}

func TestNewTableRendersRows(t *testing.T) {
	out := NewTable([]string{"NAME", "COUNT"}, [][]string{{"app", "3"}, {"lib", "12"}}, 1).String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "app")
	assert.Contains(t, out, "12")
}

func TestStandardFlags(t *testing.T) {
	cmd := NewStandardCommand("telemetry", "test")
	require.NoError(t, cmd.ParseFlags([]string{"--json", "-v", "-c", "/tmp/t.yml"}))
	opts := GetOptions(cmd)
	assert.True(t, opts.JSONOutput)
	assert.True(t, opts.Verbose)
	assert.Equal(t, "/tmp/t.yml", opts.ConfigFile)
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}

func TestParseDescription(t *testing.T) {
	desc, examples := parseDescription("Does a thing.\n\nExamples:\n  telemetry usage --days 7")
	assert.Equal(t, "Does a thing.", desc)
	assert.Equal(t, "telemetry usage --days 7", examples)
}

func TestVersionCommandJSON(t *testing.T) {
	root := NewStandardCommand("telemetry", "test")
	root.AddCommand(NewVersionCommand("telemetry"))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version", "--json"})
	require.NoError(t, root.Execute())

	var info map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.NotEmpty(t, info["version"])
	assert.NotEmpty(t, info["go_version"])
}

func TestStyledHelp(t *testing.T) {
	root := NewStandardCommand("telemetry", "Session telemetry")
	sub := NewStandardCommand("usage", "Show usage")
	sub.Long = "Show usage.\n\nExamples:\n  # last week\n  telemetry usage --days 7"
	sub.Flags().Int("days", 30, "Window in days")
	root.AddCommand(sub)
	ApplyStyledHelpRecursive(root)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"usage", "--help"})
	require.NoError(t, root.Execute())

	help := out.String()
	assert.Contains(t, help, "TELEMETRY USAGE")
	assert.Contains(t, help, "--days")
	assert.Contains(t, help, "# last week")
	assert.Contains(t, help, "(default: 30)")
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four", 9)
	assert.Equal(t, []string{"one two", "three", "four"}, lines)
}
