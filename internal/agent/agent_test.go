package agent

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/andrewbudd/fractyl/internal/lock"
	"github.com/andrewbudd/fractyl/internal/objstore"
	"github.com/andrewbudd/fractyl/internal/repo"
	"github.com/andrewbudd/fractyl/internal/snapshot"
)

func TestWriteReadPIDRoundTrip(t *testing.T) {
	root := t.TempDir()
	paths, err := repo.Init(root)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := WritePID(paths, 4242, 90, true); err != nil {
		t.Fatalf("WritePID: %v", err)
	}
	info, ok, err := ReadPID(paths)
	if err != nil {
		t.Fatalf("ReadPID: %v", err)
	}
	if !ok {
		t.Fatalf("expected a pid file to be present")
	}
	if info.PID != 4242 || info.Interval != 90 || !info.WatchActive {
		t.Fatalf("got %+v, want pid=4242 interval=90 watch=true", info)
	}
}

func TestReadPIDMissingFile(t *testing.T) {
	root := t.TempDir()
	paths, err := repo.Init(root)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	_, ok, err := ReadPID(paths)
	if err != nil {
		t.Fatalf("ReadPID: %v", err)
	}
	if ok {
		t.Fatalf("expected no pid file present")
	}
}

func TestStatusDetectsLiveAndDeadPID(t *testing.T) {
	root := t.TempDir()
	paths, err := repo.Init(root)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := WritePID(paths, os.Getpid(), DefaultIntervalSeconds, true); err != nil {
		t.Fatalf("WritePID: %v", err)
	}
	_, running, err := Status(paths)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !running {
		t.Fatalf("expected self pid to be reported running")
	}

	if err := WritePID(paths, 1<<30, DefaultIntervalSeconds, true); err != nil {
		t.Fatalf("WritePID: %v", err)
	}
	_, running, err = Status(paths)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if running {
		t.Fatalf("expected an implausible pid to be reported not running")
	}
}

func TestRunCycleCreatesSnapshotAndReleasesLock(t *testing.T) {
	root := t.TempDir()
	paths, err := repo.Init(root)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	engine := &snapshot.Engine{Paths: paths, Store: objstore.NewLocal(paths.Objects())}

	var logBuf bytes.Buffer
	var held *lock.Handle
	runCycle(paths, engine, "default", &logBuf, &held)

	if held != nil {
		t.Fatalf("expected lock to be released after the cycle")
	}
	if _, err := os.Stat(paths.LockFile()); !os.IsNotExist(err) {
		t.Fatalf("expected lock file to be removed")
	}
	records, err := engine.List("default")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one auto-snapshot, got %d", len(records))
	}
}

func TestRunCycleSkipsWhenBusy(t *testing.T) {
	root := t.TempDir()
	paths, err := repo.Init(root)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	h, err := lock.Acquire(paths.LockFile())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer h.Release()

	engine := &snapshot.Engine{Paths: paths, Store: objstore.NewLocal(paths.Objects())}
	var logBuf bytes.Buffer
	var held *lock.Handle
	runCycle(paths, engine, "default", &logBuf, &held)

	if held != nil {
		t.Fatalf("expected no lock to be held by the cycle itself")
	}
	records, err := engine.List("default")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no snapshot while locked, got %d", len(records))
	}
}
