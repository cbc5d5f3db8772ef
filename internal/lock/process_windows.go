//go:build windows

package lock

import "os"

// processAlive reports whether pid names a currently-running process.
// On Windows, os.FindProcess opens a handle to the process and fails if no
// such process exists, so existence is determined by the call itself.
func processAlive(pid int) bool {
	_, err := os.FindProcess(pid)
	return err == nil
}
