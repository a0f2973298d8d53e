//go:build unix

package main

import (
	"os/exec"
	"syscall"
)

// detach configures cmd to start in its own session, surviving the parent
// CLI invocation's exit — the fork/daemonize half of agent lifecycle
// spec.md §1 scopes out of the core module as process scaffolding. Unix
// only: Setsid has no Windows equivalent (see agent_spawn_windows.go).
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
