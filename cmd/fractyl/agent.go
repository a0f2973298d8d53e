package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/andrewbudd/fractyl/internal/agent"
	"github.com/andrewbudd/fractyl/internal/branch"
	"github.com/andrewbudd/fractyl/internal/fractylerr"
	"github.com/andrewbudd/fractyl/internal/vcs"
)

// cmdAgent dispatches `fractyl agent start|stop|status|restart` (spec §6,
// §4.9). "run-loop" is an unexported fourth subcommand: the process
// cmdAgentStart spawns re-enters the binary with it to actually run
// agent.Loop, keeping the fork/daemonize half of lifecycle management
// (spec §1's out-of-scope "process-lifecycle scaffolding") a thin wrapper
// around the in-scope C9 loop rather than something this CLI reimplements.
func cmdAgent(args []string) error {
	if len(args) == 0 {
		return usageError("agent requires a subcommand (start, stop, status, restart)")
	}
	switch args[0] {
	case "start":
		return cmdAgentStart(args[1:])
	case "stop":
		return cmdAgentStop(args[1:])
	case "status":
		return cmdAgentStatus(args[1:])
	case "restart":
		return cmdAgentRestart(args[1:])
	case "run-loop":
		return cmdAgentRunLoop(args[1:])
	default:
		return usageError("unknown agent subcommand " + args[0])
	}
}

func parseInterval(fs *flag.FlagSet, args []string, defaultSeconds int) (int, error) {
	interval := fs.Int("i", defaultSeconds, "auto-snapshot interval in seconds")
	if err := fs.Parse(args); err != nil {
		return 0, usageError(err.Error())
	}
	if *interval <= 0 {
		return 0, usageError("interval must be a positive number of seconds")
	}
	return *interval, nil
}

func cmdAgentStart(args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("agent start", flag.ContinueOnError)
	interval, err := parseInterval(fs, args, s.cfg.AgentIntervalSeconds)
	if err != nil {
		return err
	}

	if info, running, err := agent.Status(s.paths); err != nil {
		return err
	} else if running {
		fmt.Printf("agent already running (pid=%d, interval=%d)\n", info.PID, info.Interval)
		return nil
	}

	logf, err := os.OpenFile(s.paths.AgentLogFile(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fractylerr.Wrap(fractylerr.KindIO, "open agent log file", err)
	}
	defer logf.Close()

	exe, err := os.Executable()
	if err != nil {
		return fractylerr.Wrap(fractylerr.KindIO, "resolve fractyl executable path", err)
	}
	cmd := exec.Command(exe, "agent", "run-loop", "-i", strconv.Itoa(interval))
	cmd.Dir = s.paths.Root
	cmd.Stdout = logf
	cmd.Stderr = logf
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return fractylerr.Wrap(fractylerr.KindIO, "start agent process", err)
	}
	if err := agent.WritePID(s.paths, cmd.Process.Pid, interval, false); err != nil {
		return err
	}
	fmt.Printf("agent started (pid=%d, interval=%d)\n", cmd.Process.Pid, interval)
	return nil
}

func cmdAgentStop(args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	if len(args) != 0 {
		return usageError("agent stop takes no arguments")
	}
	if err := agent.Stop(s.paths); err != nil {
		return err
	}
	fmt.Println("agent stopped")
	return nil
}

func cmdAgentStatus(args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	if len(args) != 0 {
		return usageError("agent status takes no arguments")
	}
	info, running, err := agent.Status(s.paths)
	if err != nil {
		return err
	}
	if !running {
		fmt.Println("not running")
		return nil
	}
	watch := "polling"
	if info.WatchActive {
		watch = "active"
	}
	fmt.Printf("running (pid=%d, interval=%d, watch=%s)\n", info.PID, info.Interval, watch)
	return nil
}

func cmdAgentRestart(args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	if _, running, statusErr := agent.Status(s.paths); statusErr == nil && running {
		if err := agent.Stop(s.paths); err != nil {
			return err
		}
	}
	return cmdAgentStart(args)
}

// cmdAgentRunLoop is the hidden entry point the detached child process
// re-enters the binary with; it owns nothing but running agent.Loop until a
// termination signal arrives.
func cmdAgentRunLoop(args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("agent run-loop", flag.ContinueOnError)
	interval, err := parseInterval(fs, args, agent.DefaultIntervalSeconds)
	if err != nil {
		return err
	}

	logf, err := os.OpenFile(s.paths.AgentLogFile(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fractylerr.Wrap(fractylerr.KindIO, "open agent log file", err)
	}
	defer logf.Close()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	stop := make(chan struct{})
	go func() {
		<-sigc
		close(stop)
	}()

	branchFn := func() string {
		raw := vcs.CurrentBranch(s.paths.Root)
		b, err := branch.Sanitize(raw)
		if err != nil {
			return branch.Default
		}
		return b
	}

	agent.Loop(s.paths, s.engine, branchFn, time.Duration(interval)*time.Second, logf, stop)
	_ = os.Remove(s.paths.AgentPIDFile())
	return nil
}
