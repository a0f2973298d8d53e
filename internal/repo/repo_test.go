package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/andrewbudd/fractyl/internal/fractylerr"
)

func TestFindRepoNotARepo(t *testing.T) {
	dir := t.TempDir()
	if _, err := FindRepo(dir); !fractylerr.IsKind(err, fractylerr.KindNotARepo) {
		t.Fatalf("expected NotARepo, got %v", err)
	}
}

func TestInitThenFind(t *testing.T) {
	root := t.TempDir()
	if _, err := Init(root); err != nil {
		t.Fatalf("Init: %v", err)
	}
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o750); err != nil {
		t.Fatal(err)
	}
	p, err := FindRepo(sub)
	if err != nil {
		t.Fatalf("FindRepo from subdirectory: %v", err)
	}
	if p.Root != root {
		t.Fatalf("Root = %q, want %q", p.Root, root)
	}
}

func TestInitIdempotent(t *testing.T) {
	root := t.TempDir()
	if _, err := Init(root); err != nil {
		t.Fatal(err)
	}
	if _, err := Init(root); err != nil {
		t.Fatalf("second Init should succeed: %v", err)
	}
}
