package main

import (
	"flag"
	"fmt"

	"github.com/andrewbudd/fractyl/internal/textdiff"
)

// cmdDiff implements `fractyl diff <a> <b>` (spec §6): report added/removed/
// modified paths between two snapshots, rendering a unified diff for each
// modified file via the textdiff external collaborator.
func cmdDiff(args []string) error {
	fs := flag.NewFlagSet("diff", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	rest := fs.Args()
	if len(rest) != 2 {
		return usageError("diff takes exactly two arguments: <a> <b>")
	}
	aPrefix, bPrefix := rest[0], rest[1]

	s, err := openSession()
	if err != nil {
		return err
	}

	d, err := s.engine.Diff(s.branch, aPrefix, bPrefix)
	if err != nil {
		return err
	}
	for _, p := range d.Added {
		fmt.Printf("A %s\n", p)
	}
	for _, p := range d.Removed {
		fmt.Printf("D %s\n", p)
	}
	if len(d.Modified) == 0 {
		return nil
	}

	aIdx, err := s.engine.LoadIndex(s.branch, aPrefix)
	if err != nil {
		return err
	}
	bIdx, err := s.engine.LoadIndex(s.branch, bPrefix)
	if err != nil {
		return err
	}
	store := s.objectStore()
	for _, p := range d.Modified {
		fmt.Printf("M %s\n", p)
		aEntry := aIdx.Lookup(p)
		bEntry := bIdx.Lookup(p)
		if aEntry == nil || bEntry == nil {
			continue
		}
		aContent, err := store.Get(aEntry.Digest)
		if err != nil {
			return err
		}
		bContent, err := store.Get(bEntry.Digest)
		if err != nil {
			return err
		}
		out, err := textdiff.Unified(p, p, aContent, bContent)
		if err != nil {
			return err
		}
		if out != "" {
			fmt.Println(out)
		}
	}
	return nil
}
