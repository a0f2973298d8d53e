package main

import (
	"flag"
	"fmt"
)

// cmdObjects implements `fractyl objects gc-check` (SPEC_FULL.md's
// supplemented read-only companion to delete's reachability scan): report
// the number of stored objects unreachable from any surviving snapshot on
// any branch, without deleting anything.
func cmdObjects(args []string) error {
	if len(args) == 0 {
		return usageError("objects requires a subcommand (gc-check)")
	}
	switch args[0] {
	case "gc-check":
		return cmdObjectsGCCheck(args[1:])
	default:
		return usageError("unknown objects subcommand " + args[0])
	}
}

func cmdObjectsGCCheck(args []string) error {
	fs := flag.NewFlagSet("objects gc-check", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}

	s, err := openSession()
	if err != nil {
		return err
	}

	result, err := s.engine.GCCheck()
	if err != nil {
		return err
	}
	if !result.Supported {
		fmt.Println("backend does not support object listing; gc-check skipped")
		return nil
	}
	fmt.Printf("%d unreachable objects\n", result.Unreachable)
	return nil
}
