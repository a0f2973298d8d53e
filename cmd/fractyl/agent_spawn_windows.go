//go:build windows

package main

import "os/exec"

// detach is a no-op on Windows: the spawned agent process still outlives
// this CLI invocation once it returns, since nothing waits on it, but
// Windows has no Setsid equivalent to fully detach its console.
func detach(cmd *exec.Cmd) {}
