package process

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grovetools/telemetry/command"
	"github.com/grovetools/telemetry/errors"
)

// CwdResolver finds the working directory of a process, from /proc where
// available and from lsof otherwise.
type CwdResolver struct {
	runner   *command.Runner
	procRoot string
}

// NewCwdResolver creates a resolver. A nil runner uses the real executor.
func NewCwdResolver(runner *command.Runner) *CwdResolver {
	if runner == nil {
		runner = command.NewRunner()
	}
	return &CwdResolver{runner: runner, procRoot: "/proc"}
}

// WithProcRoot overrides the procfs mount point.
func (r *CwdResolver) WithProcRoot(root string) *CwdResolver {
	r.procRoot = root
	return r
}

// Resolve returns the working directory of pid.
func (r *CwdResolver) Resolve(ctx context.Context, pid int) (string, error) {
	pidStr := strconv.Itoa(pid)
	if r.procRoot != "" {
		if dir, err := os.Readlink(filepath.Join(r.procRoot, pidStr, "cwd")); err == nil && dir != "" {
			return dir, nil
		}
	}

	out, err := r.runner.Output(ctx, "lsof", "-a", "-p", pidStr, "-d", "cwd", "-Fn")
	if err != nil {
		return "", errors.EnumerationFailed("working directory", err).WithDetail("pid", pid)
	}
	if dir := parseLsofName(out); dir != "" {
		return dir, nil
	}
	return "", errors.EnumerationFailed("working directory", nil).WithDetail("pid", pid)
}

// parseLsofName returns the first "n" field of lsof -F output.
func parseLsofName(out []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "n") && len(line) > 1 {
			return line[1:]
		}
	}
	return ""
}
