//go:build windows

package lock

import "os"

// processAlive on Windows falls back to FindProcess succeeding; Windows
// does not support signal-0 liveness probing. This is strictly weaker than
// the Unix probe (a just-exited pid may appear "alive" momentarily) but the
// repository lock is documented as single-filesystem, single-host, so the
// staleness window is bounded by local process table reuse, not a network
// partition.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	_, err := os.FindProcess(pid)
	return err == nil
}
