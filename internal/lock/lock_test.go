package lock

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/andrewbudd/fractyl/internal/fractylerr"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	h, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if h.PID() != os.Getpid() {
		t.Fatalf("PID = %d, want %d", h.PID(), os.Getpid())
	}
	if _, held := Check(path); !held {
		t.Fatalf("Check should report held")
	}
	if err := h.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, held := Check(path); held {
		t.Fatalf("Check should report released")
	}
}

func TestAcquireBusy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	h, err := Acquire(path)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Release()

	_, err = Acquire(path)
	if !fractylerr.IsKind(err, fractylerr.KindBusy) {
		t.Fatalf("expected Busy, got %v", err)
	}
}

func TestAcquireReclaimsStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	// Simulate a crashed holder: write a pid that cannot be alive.
	deadPID := deadPIDForTest()
	if err := os.WriteFile(path, []byte(strconv.Itoa(deadPID)+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	h, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire should reclaim stale lock: %v", err)
	}
	defer h.Release()
	if h.PID() != os.Getpid() {
		t.Fatalf("reclaimed lock should record our own pid")
	}
}

func TestAcquireWaitTimesOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	h, err := Acquire(path)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Release()

	start := time.Now()
	_, err = AcquireWait(path, 250*time.Millisecond)
	if !fractylerr.IsKind(err, fractylerr.KindBusy) {
		t.Fatalf("expected Busy on timeout, got %v", err)
	}
	if time.Since(start) < 200*time.Millisecond {
		t.Fatalf("returned too quickly: %s", time.Since(start))
	}
}

func TestReleaseOnlyOwnPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	h, err := Acquire(path)
	if err != nil {
		t.Fatal(err)
	}
	// Simulate another process reclaiming after a crash: rewrite the file
	// with a different pid, then make sure our stale handle won't unlink it.
	if err := os.WriteFile(path, []byte("999999999\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := h.Release(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("lock file should still exist: %v", err)
	}
}

// deadPIDForTest returns a pid number virtually certain not to be alive.
func deadPIDForTest() int {
	return 1 << 30
}
