package main

import (
	"os"
	"path/filepath"
	"testing"
)

// chdir switches into dir for the duration of the test and restores the
// previous working directory on cleanup, mirroring the Chdir-then-restore
// pattern used by moby-moby's own CLI context tests.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestUnknownCommandIsBadArgument(t *testing.T) {
	if err := run([]string{"frobnicate"}); err == nil {
		t.Fatalf("expected an error for an unknown command")
	}
}

func TestNoArgsIsBadArgument(t *testing.T) {
	if err := run(nil); err == nil {
		t.Fatalf("expected an error when no command is given")
	}
}

func TestSnapshotListRestoreLifecycle(t *testing.T) {
	root := t.TempDir()
	chdir(t, root)

	if err := run([]string{"init"}); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := run([]string{"init"}); err != nil {
		t.Fatalf("init should be idempotent, got: %v", err)
	}

	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := run([]string{"snapshot", "-m", "one"}); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	// An unchanged tree produces no second snapshot.
	if err := run([]string{"snapshot", "-m", "two"}); err != nil {
		t.Fatalf("no-op snapshot: %v", err)
	}

	if err := os.WriteFile(filepath.Join(root, "b.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := run([]string{"snapshot", "-m", "dup"}); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	if err := run([]string{"list"}); err != nil {
		t.Fatalf("list: %v", err)
	}

	s, err := openSession()
	if err != nil {
		t.Fatalf("openSession: %v", err)
	}
	records, err := s.engine.List(s.branch)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(records))
	}
	var firstID string
	for _, rec := range records {
		if rec.Description == "one" {
			firstID = rec.ID
		}
	}
	if firstID == "" {
		t.Fatalf("expected a snapshot described %q among %+v", "one", records)
	}

	if err := run([]string{"restore", firstID}); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "b.txt")); !os.IsNotExist(err) {
		t.Fatalf("expected b.txt to be removed by restore, stat err = %v", err)
	}
	content, err := os.ReadFile(filepath.Join(root, "a.txt"))
	if err != nil || string(content) != "hi" {
		t.Fatalf("expected a.txt = hi after restore, got %q err=%v", content, err)
	}
}

func TestObjectsGCCheckReportsZeroWhenNothingDeleted(t *testing.T) {
	root := t.TempDir()
	chdir(t, root)

	if err := run([]string{"init"}); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := run([]string{"snapshot", "-m", "one"}); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if err := run([]string{"objects", "gc-check"}); err != nil {
		t.Fatalf("objects gc-check: %v", err)
	}
}

func TestAgentStatusNotRunningByDefault(t *testing.T) {
	root := t.TempDir()
	chdir(t, root)

	if err := run([]string{"init"}); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := run([]string{"agent", "status"}); err != nil {
		t.Fatalf("agent status: %v", err)
	}
}
