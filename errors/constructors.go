package errors

import (
	"fmt"
	"os/exec"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *GroveError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *GroveError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// NotFound reports a missing directory, transcript or session.
func NotFound(kind, name string) *GroveError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found: %s", kind, name)).
		WithDetail("kind", kind).
		WithDetail("name", name)
}

// ParseFailed reports a malformed transcript record.
func ParseFailed(file string, line int, err error) *GroveError {
	return Wrap(err, ErrCodeParseError, fmt.Sprintf("malformed record in %s", file)).
		WithDetail("file", file).
		WithDetail("line", line)
}

// ProcessFailed reports a spawn or signal failure on a single PTY session.
func ProcessFailed(op, sessionID string, err error) *GroveError {
	return Wrap(err, ErrCodeProcessError, fmt.Sprintf("%s failed for session %s", op, sessionID)).
		WithDetail("op", op).
		WithDetail("session", sessionID)
}

// EnumerationFailed reports a failure listing processes or resolving a cwd.
func EnumerationFailed(what string, err error) *GroveError {
	return Wrap(err, ErrCodeEnumerationError, fmt.Sprintf("failed to enumerate %s", what)).
		WithDetail("what", what)
}

// InvalidInput creates an invalid input error
func InvalidInput(field, reason string) *GroveError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("invalid %s: %s", field, reason)).
		WithDetail("field", field)
}

// DaemonNotRunning reports that the telemetry daemon socket is unavailable.
func DaemonNotRunning(socket string) *GroveError {
	return New(ErrCodeDaemonNotRunning, "telemetry daemon is not running").
		WithDetail("socket", socket)
}

// CommandFailed creates a command execution failure error
func CommandFailed(cmd string, err error) *GroveError {
	groveErr := Wrap(err, ErrCodeCommandFailed, fmt.Sprintf("command failed: %s", cmd)).
		WithDetail("command", cmd)

	// Extract exit code if available
	if exitErr, ok := err.(*exec.ExitError); ok {
		groveErr = groveErr.WithDetail("exitCode", exitErr.ExitCode())
	}

	return groveErr
}
