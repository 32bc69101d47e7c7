package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroveHomeOverridesXDG(t *testing.T) {
	home := t.TempDir()
	t.Setenv("GROVE_HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "/nowhere")

	assert.Equal(t, filepath.Join(home, "config", "grove"), ConfigDir())
	assert.Equal(t, filepath.Join(home, "state", "grove"), StateDir())
	assert.Equal(t, filepath.Join(home, "state", "grove", "logs"), LogsDir())
	assert.Equal(t, filepath.Join(home, "run", "telemetryd.sock"), SocketPath())
	assert.Equal(t, filepath.Join(home, "state", "grove", "telemetryd.pid"), PidFilePath())
}

func TestProjectsDir(t *testing.T) {
	t.Setenv("CLAUDE_CONFIG_DIR", "/opt/claude")
	assert.Equal(t, "/opt/claude/projects", ProjectsDir())

	home := t.TempDir()
	t.Setenv("CLAUDE_CONFIG_DIR", "")
	t.Setenv("HOME", home)
	assert.Equal(t, filepath.Join(home, ".claude", "projects"), ProjectsDir())
}
