// Package lock implements C3: the exclusive, PID-stamped, stale-tolerant
// repository lock that serializes all state-mutating operations.
//
// The handle-with-guaranteed-release shape is grounded on
// storage/shared_resource.go's SharedResource contract (GetRead/GetExclusive
// return release closures); the polling loop in AcquireWait is grounded on
// storage/scan_helper.go's time.Sleep-based busy-wait loops.
package lock

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andrewbudd/fractyl/internal/fractylerr"
)

// pollInterval is how often AcquireWait retries Acquire.
const pollInterval = 100 * time.Millisecond

// Handle is a held lock. The zero Handle is not valid; only Acquire and
// AcquireWait produce one. Release is idempotent-safe to call once.
type Handle struct {
	path string
	pid  int
}

// Acquire creates path exclusively and stamps it with the current PID. If
// the file already exists, it probes the recorded holder for liveness: a
// dead holder's lock is stale and reclaimed in place.
func Acquire(path string) (*Handle, error) {
	h, err := tryCreate(path)
	if err == nil {
		return h, nil
	}
	if !os.IsExist(err) {
		return nil, fractylerr.Wrap(fractylerr.KindIO, "create lock file", err)
	}

	holder, readErr := readHolder(path)
	if readErr != nil {
		// Lock file vanished or is unreadable; retry once, the race is
		// someone else's Release or a half-written stale file.
		h, err = tryCreate(path)
		if err == nil {
			return h, nil
		}
		if os.IsExist(err) {
			return nil, fractylerr.Busy(0)
		}
		return nil, fractylerr.Wrap(fractylerr.KindIO, "create lock file", err)
	}

	if processAlive(holder) {
		return nil, fractylerr.Busy(holder)
	}

	// Stale holder: reclaim by removing and retrying once.
	_ = os.Remove(path)
	h, err = tryCreate(path)
	if err != nil {
		if os.IsExist(err) {
			return nil, fractylerr.Busy(0)
		}
		return nil, fractylerr.Wrap(fractylerr.KindIO, "create lock file", err)
	}
	return h, nil
}

// AcquireWait polls Acquire at pollInterval until it succeeds or timeout
// elapses, used by interactive callers (spec: 30s default).
func AcquireWait(path string, timeout time.Duration) (*Handle, error) {
	deadline := time.Now().Add(timeout)
	for {
		h, err := Acquire(path)
		if err == nil {
			return h, nil
		}
		if !fractylerr.IsKind(err, fractylerr.KindBusy) {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, fractylerr.New(fractylerr.KindBusy, fmt.Sprintf("timed out after %s waiting for lock", timeout))
		}
		time.Sleep(pollInterval)
	}
}

// Check peeks at the lock without acquiring it. It returns (0, false) if no
// live holder is recorded.
func Check(path string) (pid int, held bool) {
	holder, err := readHolder(path)
	if err != nil {
		return 0, false
	}
	if !processAlive(holder) {
		return 0, false
	}
	return holder, true
}

// Release unlinks the lock file only if it still records our own PID, then
// forgets the handle. Safe to call even if another process has since
// reclaimed a stale lock under the same path (it won't unlink their file).
func (h *Handle) Release() error {
	if h == nil {
		return nil
	}
	holder, err := readHolder(h.path)
	if err == nil && holder == h.pid {
		if rmErr := os.Remove(h.path); rmErr != nil && !os.IsNotExist(rmErr) {
			return fractylerr.Wrap(fractylerr.KindIO, "release lock", rmErr)
		}
	}
	return nil
}

// PID returns the process id recorded in this handle.
func (h *Handle) PID() int { return h.pid }

// ProcessAlive exposes the platform liveness probe for callers outside this
// package that need to interpret a PID file of their own (the agent's PID
// file, spec §4.9), so they share one definition of "alive" with the lock's
// own stale-reclaim logic.
func ProcessAlive(pid int) bool { return processAlive(pid) }

func tryCreate(path string) (*Handle, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	pid := os.Getpid()
	if _, err := fmt.Fprintf(f, "%d\n", pid); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fractylerr.Wrap(fractylerr.KindIO, "write lock pid", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fractylerr.Wrap(fractylerr.KindIO, "sync lock file", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fractylerr.Wrap(fractylerr.KindIO, "close lock file", err)
	}
	return &Handle{path: path, pid: pid}, nil
}

func readHolder(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	line := strings.TrimSpace(string(b))
	pid, err := strconv.Atoi(line)
	if err != nil {
		return 0, fractylerr.Wrap(fractylerr.KindCorrupt, "lock file does not contain a pid", err)
	}
	return pid, nil
}
