package main

import (
	"fmt"
	"os"

	"github.com/andrewbudd/fractyl/internal/config"
	"github.com/andrewbudd/fractyl/internal/repo"
)

// cmdInit implements `fractyl init` (spec §6): create .fractyl/ with its
// empty subdirectories, idempotently.
func cmdInit(args []string) error {
	if len(args) != 0 {
		return usageError("init takes no arguments")
	}
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	paths, err := repo.Init(cwd)
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(paths.ConfigFile()); os.IsNotExist(statErr) {
		if err := config.Save(paths.ConfigFile(), config.Default()); err != nil {
			return err
		}
	}
	fmt.Printf("Initialized empty fractyl repository in %s\n", paths.Meta())
	return nil
}
