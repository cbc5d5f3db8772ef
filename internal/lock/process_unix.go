//go:build !windows

package lock

import (
	"os"
	"syscall"
)

// processAlive reports whether pid names a currently-running process.
// Sending signal 0 performs existence/permission checks without actually
// delivering a signal.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil || err == syscall.EPERM {
		return true
	}
	return false
}
