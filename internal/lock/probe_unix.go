//go:build unix

package lock

import (
	"errors"
	"os"
	"syscall"
)

// processAlive probes pid for liveness with signal 0, the standard Unix
// idiom: the kernel performs permission/existence checks without actually
// delivering a signal. No process-existence library appears anywhere in the
// retrieved pack, so this is the justified stdlib path (see DESIGN.md).
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	if err == syscall.ESRCH || errors.Is(err, os.ErrProcessDone) {
		return false
	}
	// Any other errno (e.g. EPERM: exists but owned by another user) means
	// the process exists.
	return true
}
