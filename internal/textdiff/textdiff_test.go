package textdiff

import (
	"strings"
	"testing"
)

func TestUnifiedReportsChangedLine(t *testing.T) {
	out, err := Unified("a.txt", "b.txt", []byte("one\ntwo\nthree\n"), []byte("one\nTWO\nthree\n"))
	if err != nil {
		t.Fatalf("Unified: %v", err)
	}
	if !strings.Contains(out, "-two") || !strings.Contains(out, "+TWO") {
		t.Fatalf("expected unified diff to show the changed line, got:\n%s", out)
	}
}

func TestUnifiedIdenticalContentIsEmpty(t *testing.T) {
	out, err := Unified("a.txt", "a.txt", []byte("same\n"), []byte("same\n"))
	if err != nil {
		t.Fatalf("Unified: %v", err)
	}
	if out != "" {
		t.Fatalf("expected no diff output for identical content, got %q", out)
	}
}
