package walker

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/andrewbudd/fractyl/internal/ignore"
	"github.com/andrewbudd/fractyl/internal/repo"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWalkSkipsFractylAndVCSDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "a")
	writeFile(t, root, "sub/b.txt", "b")
	writeFile(t, root, filepath.Join(repo.DirName, "index"), "internal")
	writeFile(t, root, ".git/HEAD", "ref: refs/heads/main")

	var got []string
	_, err := Walk(root, nil, func(fi FileInfo) error {
		got = append(got, fi.RelPath)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	sort.Strings(got)
	want := []string{"a.txt", "sub/b.txt"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestWalkHonorsIgnoreMatcher(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.txt", "k")
	writeFile(t, root, "build/out.o", "o")

	m := ignore.New([]string{"build"})
	var got []string
	_, err := Walk(root, m, func(fi FileInfo) error {
		got = append(got, fi.RelPath)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(got) != 1 || got[0] != "keep.txt" {
		t.Fatalf("expected only keep.txt, got %v", got)
	}
}

func TestWalkPopulatesFingerprint(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "f.txt", "hello world")

	var found FileInfo
	_, err := Walk(root, nil, func(fi FileInfo) error {
		found = fi
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if found.Size != uint64(len("hello world")) {
		t.Fatalf("expected size %d, got %d", len("hello world"), found.Size)
	}
}
