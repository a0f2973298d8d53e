package main

import (
	"flag"
	"fmt"

	"github.com/docker/go-units"
)

// cmdList implements `fractyl list` (spec §6): one line per snapshot, short
// id/timestamp/description, oldest first ("newest last"), plus a
// human-readable tree size via docker/go-units (SPEC_FULL.md DOMAIN STACK).
func cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}

	s, err := openSession()
	if err != nil {
		return err
	}

	records, err := s.engine.List(s.branch)
	if err != nil {
		return err
	}
	for _, rec := range records {
		size := "?"
		if idx, err := s.engine.LoadIndex(s.branch, rec.ID); err == nil {
			var total uint64
			for _, e := range idx.Entries() {
				total += e.Size
			}
			size = units.HumanSize(float64(total))
		}
		fmt.Printf("%s  %s  %-7s  %s\n", rec.ID, rec.CreatedAt, size, rec.Description)
	}
	return nil
}
