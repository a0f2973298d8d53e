package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/andrewbudd/fractyl/internal/branch"
	"github.com/andrewbudd/fractyl/internal/config"
	"github.com/andrewbudd/fractyl/internal/fractylerr"
	"github.com/andrewbudd/fractyl/internal/ignore"
	"github.com/andrewbudd/fractyl/internal/lock"
	"github.com/andrewbudd/fractyl/internal/objstore"
	"github.com/andrewbudd/fractyl/internal/repo"
	"github.com/andrewbudd/fractyl/internal/snapshot"
	"github.com/andrewbudd/fractyl/internal/vcs"
)

// ignoreFileName is the per-repository ignore-rules file read by every
// command that walks the tree (SPEC_FULL.md: the CLI layer, not C10 itself,
// owns how patterns reach the matcher).
const ignoreFileName = ".fractylignore"

// session bundles everything a command needs once a repository is located:
// its paths, loaded config, object-store backend, ignore matcher, and the
// current branch name (already sanitized for use as a directory component).
type session struct {
	paths  repo.Paths
	cfg    config.Config
	engine *snapshot.Engine
	branch string
}

// openSession locates the repository containing the current directory and
// assembles everything a mutating or reading command needs.
func openSession() (*session, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fractylerr.Wrap(fractylerr.KindIO, "get working directory", err)
	}
	paths, err := repo.FindRepo(cwd)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(paths.ConfigFile())
	if err != nil {
		return nil, err
	}
	store, err := cfg.OpenBackend(paths.Objects())
	if err != nil {
		return nil, err
	}
	matcher, err := ignore.LoadFile(filepath.Join(paths.Root, ignoreFileName))
	if err != nil {
		return nil, fractylerr.Wrap(fractylerr.KindIO, "read "+ignoreFileName, err)
	}

	rawBranch := vcs.CurrentBranch(paths.Root)
	b, err := branch.Sanitize(rawBranch)
	if err != nil {
		b = branch.Default
	}

	return &session{
		paths: paths,
		cfg:   cfg,
		engine: &snapshot.Engine{
			Paths:  paths,
			Store:  store,
			Ignore: matcher,
		},
		branch: b,
	}, nil
}

// objectStore exposes the session's backend for commands (diff) that read
// object content directly rather than through the engine.
func (s *session) objectStore() objstore.Backend { return s.engine.Store }

// withLock acquires the repository lock with the configured interactive
// timeout, runs fn, and releases the lock on every path out, per spec §4.3
// ("interactive callers use acquire_wait(..., 30s)").
func (s *session) withLock(fn func() error) error {
	timeout := time.Duration(s.cfg.LockWaitSeconds) * time.Second
	h, err := lock.AcquireWait(s.paths.LockFile(), timeout)
	if err != nil {
		return err
	}
	defer func() { _ = h.Release() }()
	return fn()
}

func usageError(msg string) error {
	return fractylerr.New(fractylerr.KindBadArgument, msg)
}

func exitCode(err error) int {
	return fractylerr.ExitCode(err)
}
