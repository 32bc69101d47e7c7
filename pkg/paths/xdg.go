// Package paths resolves the directories and files telemetry reads and writes.
//
// Grove directories resolve from GROVE_HOME first, then the XDG variables,
// then the platform defaults under the home directory. Transcripts live
// outside the grove tree, under the assistant's own config directory.
package paths

import (
	"os"
	"path/filepath"
)

const (
	groveDir   = "grove"
	socketName = "telemetryd.sock"
	pidName    = "telemetryd.pid"
)

// xdgHome resolves one base directory. groveSub is used under GROVE_HOME,
// xdgVar is the XDG override and fallback is relative to the user's home.
func xdgHome(groveSub, xdgVar string, fallback ...string) string {
	if root := os.Getenv("GROVE_HOME"); root != "" {
		return filepath.Join(root, groveSub)
	}
	if dir := os.Getenv(xdgVar); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

func underGrove(base string) string {
	if base == "" {
		return ""
	}
	return filepath.Join(base, groveDir)
}

// ConfigDir holds telemetry.yml and its overrides.
func ConfigDir() string {
	return underGrove(xdgHome("config", "XDG_CONFIG_HOME", ".config"))
}

// StateDir holds the pid file and logs.
func StateDir() string {
	return underGrove(xdgHome("state", "XDG_STATE_HOME", ".local", "state"))
}

// LogsDir returns the directory for telemetry log files.
func LogsDir() string {
	state := StateDir()
	if state == "" {
		return ""
	}
	return filepath.Join(state, "logs")
}

// ProjectsDir returns the directory holding one transcript directory per
// encoded project path: $CLAUDE_CONFIG_DIR/projects, else ~/.claude/projects.
func ProjectsDir() string {
	if dir := os.Getenv("CLAUDE_CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, "projects")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".claude", "projects")
	}
	return ""
}

// RuntimeDir holds the daemon socket. Without XDG_RUNTIME_DIR (macOS) the
// state directory is used.
func RuntimeDir() string {
	if root := os.Getenv("GROVE_HOME"); root != "" {
		return filepath.Join(root, "run")
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, groveDir)
	}
	return StateDir()
}

// SocketPath returns the daemon's unix socket.
func SocketPath() string {
	return filepath.Join(RuntimeDir(), socketName)
}

// PidFilePath returns the daemon's pid file.
func PidFilePath() string {
	return filepath.Join(StateDir(), pidName)
}
