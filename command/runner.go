package command

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/grovetools/telemetry/errors"
)

const (
	// DefaultTimeout bounds a single external command.
	DefaultTimeout = 10 * time.Second

	// MaxTimeout is the maximum allowed timeout
	MaxTimeout = 2 * time.Minute
)

// Runner runs short-lived external commands and captures their output.
type Runner struct {
	executor Executor
	timeout  time.Duration
}

// NewRunner creates a Runner with a RealExecutor.
func NewRunner() *Runner {
	return NewRunnerWithExecutor(RealExecutor{})
}

// NewRunnerWithExecutor creates a Runner with a custom Executor.
func NewRunnerWithExecutor(exec Executor) *Runner {
	if exec == nil {
		exec = RealExecutor{}
	}
	return &Runner{executor: exec, timeout: DefaultTimeout}
}

// WithTimeout sets the per-command timeout.
func (r *Runner) WithTimeout(timeout time.Duration) *Runner {
	if timeout > MaxTimeout {
		timeout = MaxTimeout
	}
	if timeout > 0 {
		r.timeout = timeout
	}
	return r
}

// Output runs name with args and returns its stdout. A missing binary yields
// COMMAND_NOT_FOUND; a non-zero exit yields COMMAND_FAILED with stderr attached.
func (r *Runner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	if name == "" {
		return nil, errors.InvalidInput("command", "name cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := r.executor.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if execErr, ok := err.(*exec.Error); ok {
			return nil, errors.New(errors.ErrCodeCommandNotFound, "command not found").
				WithDetail("command", name).
				WithDetail("error", execErr.Error())
		}
		return stdout.Bytes(), errors.CommandFailed(name+" "+strings.Join(args, " "), err).
			WithDetail("stderr", strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
