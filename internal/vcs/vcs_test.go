package vcs

import (
	"os/exec"
	"testing"

	"github.com/andrewbudd/fractyl/internal/branch"
)

func TestCurrentBranchFallsBackOutsideGitRepo(t *testing.T) {
	dir := t.TempDir()
	if got := CurrentBranch(dir); got != branch.Default {
		t.Fatalf("CurrentBranch outside a git repo = %q, want %q", got, branch.Default)
	}
}

func TestCurrentBranchReadsGitBranch(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("init", "-b", "trunk")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	run("commit", "--allow-empty", "-m", "initial")

	if got := CurrentBranch(dir); got != "trunk" {
		t.Fatalf("CurrentBranch = %q, want %q", got, "trunk")
	}
}
