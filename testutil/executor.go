package testutil

import (
	"context"
	"os/exec"
	"strings"
	"sync"
)

// FakeExecutor answers commands with scripted stdout. Commands are matched on
// "name arg1 arg2 ..."; unmatched commands exit with status 1.
type FakeExecutor struct {
	mu        sync.Mutex
	responses map[string]string
	calls     []string
}

// NewFakeExecutor creates an executor with no scripted responses.
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{responses: make(map[string]string)}
}

// On scripts the stdout of a command line.
func (f *FakeExecutor) On(commandLine, stdout string) *FakeExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[commandLine] = stdout
	return f
}

// Calls returns the command lines executed so far.
func (f *FakeExecutor) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CommandContext implements command.Executor.
func (f *FakeExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	line := strings.TrimSpace(name + " " + strings.Join(args, " "))

	f.mu.Lock()
	f.calls = append(f.calls, line)
	out, ok := f.responses[line]
	f.mu.Unlock()

	if !ok {
		return exec.CommandContext(ctx, "/bin/sh", "-c", "exit 1")
	}
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", `printf '%s' "$FAKE_STDOUT"`)
	cmd.Env = []string{"FAKE_STDOUT=" + out}
	return cmd
}
