// Package textdiff renders a unified diff between two byte streams.
//
// spec.md §1 scopes "third-party textual-diff rendering for the diff
// command" out of the core module as an external collaborator; this package
// is that collaborator, wired to github.com/pmezard/go-difflib (already a
// transitive dependency of the retrieval pack's test tooling, e.g.
// ethereum-go-ethereum's and moby-moby's go.mod both pull it in via
// testify) rather than hand-rolled line diffing.
package textdiff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Unified renders a unified diff between a and b's text content, labeled
// with fromFile/toFile, for one modified path reported by a snapshot.Diff
// (spec §6: "modified files emit a unified-diff via the external
// collaborator").
func Unified(fromFile, toFile string, a, b []byte) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a)),
		B:        difflib.SplitLines(string(b)),
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  3,
	}
	out, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}
