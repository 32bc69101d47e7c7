// Package command runs the short-lived host tools (ps, lsof) that process
// discovery depends on.
package command

import (
	"context"
	"os/exec"
)

// Executor builds commands. Tests substitute one that scripts tool output.
type Executor interface {
	CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd
}

// RealExecutor builds commands with os/exec.
type RealExecutor struct{}

// CommandContext implements Executor.
func (RealExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...)
}
