// Package repo implements C2: locating the repository root and deriving
// canonical child paths.
//
// Grounded on storage/persistence-files.go's FileStorage{path} /
// FileFactory{Basepath} — a thin struct owning a root path and deriving
// child paths by string concatenation, nothing more.
package repo

import (
	"os"
	"path/filepath"

	"github.com/andrewbudd/fractyl/internal/fractylerr"
)

// DirName is the fractyl metadata directory name inside a repository.
const DirName = ".fractyl"

// Paths derives every canonical on-disk location under one repository root.
// None of its methods perform I/O except EnsureDirs, which creates the
// directories required before a first write.
type Paths struct {
	Root string // the directory containing .fractyl/
}

// FindRepo walks upward from startDir until a directory containing
// .fractyl/ is found, per spec §4.2.
func FindRepo(startDir string) (Paths, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return Paths{}, fractylerr.Wrap(fractylerr.KindIO, "resolve start directory", err)
	}
	for {
		candidate := filepath.Join(dir, DirName)
		if fi, err := os.Stat(candidate); err == nil && fi.IsDir() {
			return Paths{Root: dir}, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Paths{}, fractylerr.NotARepo(startDir)
		}
		dir = parent
	}
}

// Init creates .fractyl/ with its empty subdirectories. Idempotent: calling
// it on an already-initialized repository is a no-op success, per §6.
func Init(root string) (Paths, error) {
	p := Paths{Root: root}
	for _, dir := range []string{p.Meta(), p.Objects(), p.SnapshotsRoot()} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return Paths{}, fractylerr.Wrap(fractylerr.KindIO, "create "+dir, err)
		}
	}
	return p, nil
}

// Meta is the .fractyl directory itself.
func (p Paths) Meta() string { return filepath.Join(p.Root, DirName) }

// Objects is the content-addressed object store root.
func (p Paths) Objects() string { return filepath.Join(p.Meta(), "objects") }

// SnapshotsRoot is the parent of every branch's snapshot directory.
func (p Paths) SnapshotsRoot() string { return filepath.Join(p.Meta(), "snapshots") }

// SnapshotDir is the per-branch snapshot directory (C8 owns sanitization;
// this just joins the already-sanitized name).
func (p Paths) SnapshotDir(branch string) string { return filepath.Join(p.SnapshotsRoot(), branch) }

// HeadFile is the per-branch HEAD pointer file.
func (p Paths) HeadFile(branch string) string { return filepath.Join(p.SnapshotDir(branch), "HEAD") }

// SnapshotRecord is the path to one snapshot's JSON record.
func (p Paths) SnapshotRecord(branch, id string) string {
	return filepath.Join(p.SnapshotDir(branch), id+".json")
}

// IndexFile is the mutable current index, mirroring HEAD's index.
func (p Paths) IndexFile() string { return filepath.Join(p.Meta(), "index") }

// LockFile is the exclusive repository lock.
func (p Paths) LockFile() string { return filepath.Join(p.Meta(), "lock") }

// AgentPIDFile records the running background agent's pid and interval.
func (p Paths) AgentPIDFile() string { return filepath.Join(p.Meta(), "agent.pid") }

// AgentLogFile is the agent's append-only log.
func (p Paths) AgentLogFile() string { return filepath.Join(p.Meta(), "agent.log") }

// ConfigFile is the repository's persisted backend/tuning configuration.
func (p Paths) ConfigFile() string { return filepath.Join(p.Meta(), "config.json") }

// EnsureDirs creates the snapshot directory for branch, if missing.
func (p Paths) EnsureDirs(branch string) error {
	if err := os.MkdirAll(p.SnapshotDir(branch), 0o750); err != nil {
		return fractylerr.Wrap(fractylerr.KindIO, "create snapshot directory", err)
	}
	return nil
}
