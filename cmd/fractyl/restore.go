package main

import (
	"flag"
	"fmt"

	"github.com/andrewbudd/fractyl/internal/snapshot"
)

// cmdRestore implements `fractyl restore <id_prefix>` (spec §6): materialize
// a snapshot into the working tree and print counts of restored/removed.
func cmdRestore(args []string) error {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	preserveOwner := fs.Bool("preserve-owner", false, "restore recorded uid/gid (platform-dependent)")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	rest := fs.Args()
	if len(rest) != 1 {
		return usageError("restore takes exactly one <id_prefix> argument")
	}
	idPrefix := rest[0]

	s, err := openSession()
	if err != nil {
		return err
	}

	opts := snapshot.RestoreOptions{PreserveOwner: *preserveOwner || s.cfg.PreserveOwner}
	var stats snapshot.RestoreStats
	err = s.withLock(func() error {
		var restoreErr error
		stats, restoreErr = s.engine.Restore(s.branch, idPrefix, opts)
		return restoreErr
	})
	if err != nil {
		return err
	}
	fmt.Printf("Restored %d files, removed %d files\n", stats.Restored, stats.Removed)
	return nil
}
