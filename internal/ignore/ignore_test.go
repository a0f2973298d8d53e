package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLiteralPrefixPrunesSubtree(t *testing.T) {
	m := New([]string{"build"})
	if !m.Match("build") {
		t.Fatalf("expected build to match")
	}
	if !m.Match("build/output.o") {
		t.Fatalf("expected build/output.o to match (subtree pruned)")
	}
	if m.Match("rebuild") {
		t.Fatalf("rebuild should not match literal prefix build")
	}
}

func TestGlobMatchesAnyDepth(t *testing.T) {
	m := New([]string{"*.tmp"})
	if !m.Match("a.tmp") {
		t.Fatalf("expected a.tmp to match")
	}
	if !m.Match("nested/dir/b.tmp") {
		t.Fatalf("expected nested/dir/b.tmp to match via base name")
	}
	if m.Match("a.tmp.bak") {
		t.Fatalf("a.tmp.bak should not match *.tmp")
	}
}

func TestNoPatternsMatchesNothing(t *testing.T) {
	m := New(nil)
	if m.Match("anything") {
		t.Fatalf("expected no match with empty pattern set")
	}
}

func TestLoadFileMissingYieldsEmptyMatcher(t *testing.T) {
	m, err := LoadFile(filepath.Join(t.TempDir(), ".fractylignore"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if m.Match("anything") {
		t.Fatalf("expected no match from a missing ignore file")
	}
}

func TestLoadFileSkipsBlankAndCommentLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".fractylignore")
	content := "build\n\n# a comment\n*.tmp\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !m.Match("build/x") || !m.Match("a.tmp") {
		t.Fatalf("expected loaded patterns to match")
	}
	if m.Match("# a comment") {
		t.Fatalf("comment line should not become a pattern")
	}
}
