// Package vcs implements the current_branch() external collaborator
// spec.md scopes out of the core module: a best-effort lookup of the
// working tree's source-control branch, with branch.Default as the
// fallback when there is no VCS or the lookup fails for any reason.
package vcs

import (
	"os/exec"
	"strings"

	"github.com/andrewbudd/fractyl/internal/branch"
)

// CurrentBranch shells out to git, the only VCS this collaborator knows
// about, and falls back to branch.Default whenever git is absent, the
// directory isn't a git work tree, or HEAD is detached.
func CurrentBranch(dir string) string {
	cmd := exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return branch.Default
	}
	name := strings.TrimSpace(string(out))
	if name == "" || name == "HEAD" {
		return branch.Default
	}
	return name
}
