package main

import (
	"flag"
	"fmt"
)

// cmdDelete implements `fractyl delete <id_prefix>` (spec §6): delete a
// snapshot and garbage-collect objects no longer reachable from any
// surviving snapshot on any branch.
func cmdDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	rest := fs.Args()
	if len(rest) != 1 {
		return usageError("delete takes exactly one <id_prefix> argument")
	}
	idPrefix := rest[0]

	s, err := openSession()
	if err != nil {
		return err
	}

	var id string
	err = s.withLock(func() error {
		resolved, err := s.engine.Resolve(s.branch, idPrefix)
		if err != nil {
			return err
		}
		id = resolved
		return s.engine.Delete(s.branch, idPrefix)
	})
	if err != nil {
		return err
	}
	fmt.Printf("Deleted snapshot %s\n", id)
	return nil
}
