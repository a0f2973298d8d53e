package snapshot

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/andrewbudd/fractyl/internal/fractylerr"
	"github.com/andrewbudd/fractyl/internal/repo"
	"github.com/andrewbudd/fractyl/internal/walker"
)

// RestoreStats reports what Restore did, per spec §6's "prints counts of
// restored/removed."
type RestoreStats struct {
	Restored int
	Removed  int
}

// RestoreOptions controls optional restore behavior beyond the baseline
// content-and-mode restoration.
type RestoreOptions struct {
	// PreserveOwner restores each file's recorded uid/gid (spec §4.7's
	// --preserve-owner flag). Off by default: chown requires privileges the
	// invoking user frequently lacks, and silently failing to restore
	// ownership would be a worse surprise than never attempting it.
	PreserveOwner bool
}

// Restore materializes the snapshot matching idPrefix on branch into the
// working tree: files present in the tree but absent from the target index
// are removed (directories pruned bottom-up), then every target-index
// entry is written from the object store (spec §4.7).
//
// Restore attempts every file even after an individual write fails,
// returning the first error once finished, with Restored/Removed counting
// only what actually succeeded — the tree is left partially restored on
// error, documented behavior the caller may retry (spec §4.7/§7).
func (e *Engine) Restore(branch, idPrefix string, opts RestoreOptions) (RestoreStats, error) {
	id, err := e.Resolve(branch, idPrefix)
	if err != nil {
		return RestoreStats{}, err
	}
	rec, err := e.loadRecord(branch, id)
	if err != nil {
		return RestoreStats{}, err
	}
	targetIdx, err := e.loadIndexByDigest(rec.IndexDigest)
	if err != nil {
		return RestoreStats{}, err
	}

	var stats RestoreStats
	var firstErr error
	note := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	present := map[string]bool{}
	_, walkErr := walker.Walk(e.Paths.Root, nil, func(fi walker.FileInfo) error {
		present[fi.RelPath] = true
		return nil
	})
	if walkErr != nil {
		return stats, fractylerr.Wrap(fractylerr.KindIO, "walk working tree", walkErr)
	}

	for relPath := range present {
		if targetIdx.Lookup(relPath) != nil {
			continue
		}
		abs := filepath.Join(e.Paths.Root, relPath)
		if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
			note(fractylerr.Wrap(fractylerr.KindIO, "remove "+relPath, err))
			continue
		}
		stats.Removed++
	}
	pruneEmptyDirs(e.Paths.Root)

	for _, entry := range targetIdx.Entries() {
		abs := filepath.Join(e.Paths.Root, entry.Path)
		if err := os.MkdirAll(filepath.Dir(abs), 0o750); err != nil {
			note(fractylerr.Wrap(fractylerr.KindIO, "create parent directory for "+entry.Path, err))
			continue
		}
		b, err := e.Store.Get(entry.Digest)
		if err != nil {
			note(err)
			continue
		}
		if err := atomicWrite(abs, b, fs.FileMode(entry.Mode)); err != nil {
			note(err)
			continue
		}
		if opts.PreserveOwner {
			if err := chownEntry(abs, int(entry.UID), int(entry.GID)); err != nil {
				note(err)
				continue
			}
		}
		stats.Restored++
	}

	if firstErr != nil {
		return stats, firstErr
	}

	var idxBuf bytes.Buffer
	if err := targetIdx.Save(&idxBuf); err != nil {
		return stats, err
	}
	if err := atomicWrite(e.Paths.IndexFile(), idxBuf.Bytes(), 0o644); err != nil {
		return stats, err
	}
	if err := atomicWrite(e.Paths.HeadFile(branch), []byte(id+"\n"), 0o644); err != nil {
		return stats, err
	}
	return stats, nil
}

// pruneEmptyDirs removes every directory under root (excluding root itself
// and the .fractyl metadata directory) that is left empty after file
// removal, walking bottom-up so nested empty directories collapse in one
// pass (spec §4.7: "directory pruning is bottom-up").
func pruneEmptyDirs(root string) {
	var dirs []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || path == root {
			return nil
		}
		if path == filepath.Join(root, repo.DirName) {
			return filepath.SkipDir
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	for i := len(dirs) - 1; i >= 0; i-- {
		_ = os.Remove(dirs[i]) // fails silently if not empty
	}
}
