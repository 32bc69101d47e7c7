// Package process enumerates host processes and resolves their working
// directories.
package process

import (
	"os"
	"syscall"
)

// IsProcessAlive reports whether a process with the given PID exists. Signal 0
// probes existence without delivering anything; EPERM still means alive.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	return err == nil || os.IsPermission(err)
}
