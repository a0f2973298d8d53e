package main

import (
	"flag"
	"fmt"
)

// cmdSnapshot implements `fractyl snapshot -m <msg>` (spec §6): create a
// snapshot, or report no-op if nothing changed, then list changed paths as
// "A|M|D path".
func cmdSnapshot(args []string) error {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	msg := fs.String("m", "", "snapshot description")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}

	s, err := openSession()
	if err != nil {
		return err
	}

	var skipped int
	err = s.withLock(func() error {
		result, err := s.engine.Snapshot(s.branch, *msg)
		if err != nil {
			return err
		}
		skipped = result.SkippedSymlinks
		if result.NoChange {
			fmt.Println("No changes detected")
			return nil
		}
		fmt.Printf("Created snapshot %s\n", result.Record.ID)
		for _, p := range result.Diff.Added {
			fmt.Printf("A %s\n", p)
		}
		for _, p := range result.Diff.Modified {
			fmt.Printf("M %s\n", p)
		}
		for _, p := range result.Diff.Removed {
			fmt.Printf("D %s\n", p)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if skipped > 0 {
		fmt.Printf("(skipped %d symlinks)\n", skipped)
	}
	return nil
}
