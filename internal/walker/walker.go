// Package walker implements C6: a depth-first walk of a working tree that
// yields one FileInfo per regular file, skipping the repository's own
// .fractyl directory, common VCS metadata directories, symlinks, and
// anything the caller's ignore.Matcher excludes.
//
// Grounded on the teacher's plain path/filepath tree traversal style in
// storage/schema_fs.go (listSchemasOnDisk, schemaDir) — filepath.WalkDir is
// the standard library's own walker and no example repo in the retrieval
// pack brings a third-party directory-walking library, so stdlib is used
// here deliberately rather than by default.
package walker

import (
	"io/fs"
	"path/filepath"

	"github.com/andrewbudd/fractyl/internal/fractylerr"
	"github.com/andrewbudd/fractyl/internal/ignore"
	"github.com/andrewbudd/fractyl/internal/repo"
)

// skipDirs names directories pruned at any depth, besides the repo's own
// metadata directory (handled separately since it's rooted at the tree
// root, not matched by name everywhere).
var skipDirs = map[string]bool{
	".git":     true,
	".hg":      true,
	".svn":     true,
	".bzr":     true,
}

// FileInfo is one regular file discovered during a walk, with its relative
// path (forward-slash separated, relative to root) and raw stat fields.
type FileInfo struct {
	RelPath string
	Size    uint64
	MtimeS  int64
	MtimeNs uint32
	CtimeS  int64
	CtimeNs uint32
	Inode   uint64
	Mode    uint32
	UID     uint32
	GID     uint32
}

// Visit is called once per discovered regular file. Returning an error
// aborts the walk.
type Visit func(FileInfo) error

// Walk traverses root, calling visit for every regular file not pruned by
// ignoreMatcher, not under root/.fractyl, and not a VCS metadata directory.
// Symlinks are skipped entirely (spec Non-goal) and counted rather than
// logged individually, to avoid log spam on trees with many of them
// (SPEC_FULL.md). Unreadable entries are skipped rather than aborting the
// whole walk, matching the teacher's best-effort directory listing in
// listSchemasOnDisk.
func Walk(root string, ignoreMatcher *ignore.Matcher, visit Visit) (skippedSymlinks int, err error) {
	fractylDir := filepath.Join(root, repo.DirName)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entry: skip it and keep walking siblings.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		if path == fractylDir {
			return filepath.SkipDir
		}
		if d.IsDir() && skipDirs[d.Name()] {
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fractylerr.Wrap(fractylerr.KindIO, "compute relative path", err)
		}
		rel = filepath.ToSlash(rel)

		if ignoreMatcher != nil && ignoreMatcher.Match(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			skippedSymlinks++
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			// Raced with a deletion or permission change; skip.
			return nil
		}

		fi, ok := statFingerprint(info)
		if !ok {
			return nil
		}
		fi.RelPath = rel
		return visit(fi)
	})
	return skippedSymlinks, walkErr
}
