package branch

import (
	"testing"

	"github.com/andrewbudd/fractyl/internal/fractylerr"
)

func TestSanitizeReplacesSeparators(t *testing.T) {
	got, err := Sanitize("feature/foo")
	if err != nil {
		t.Fatalf("Sanitize: %v", err)
	}
	if got != "feature_foo" {
		t.Fatalf("got %q, want feature_foo", got)
	}
}

func TestSanitizeRejectsEmpty(t *testing.T) {
	if _, err := Sanitize(""); !fractylerr.IsKind(err, fractylerr.KindBadArgument) {
		t.Fatalf("expected BadArgument, got %v", err)
	}
}

func TestSanitizeRejectsDotAndDotDot(t *testing.T) {
	for _, name := range []string{".", ".."} {
		if _, err := Sanitize(name); !fractylerr.IsKind(err, fractylerr.KindBadArgument) {
			t.Fatalf("expected BadArgument for %q, got %v", name, err)
		}
	}
}

func TestSanitizePassesThroughPlainName(t *testing.T) {
	got, err := Sanitize("main")
	if err != nil {
		t.Fatalf("Sanitize: %v", err)
	}
	if got != "main" {
		t.Fatalf("got %q, want main", got)
	}
}
