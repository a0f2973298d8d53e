// Package snapshot implements C7: the engine that composes the object
// store, index, and tree walker into snapshot/list/restore/delete/diff.
//
// Grounded on storage/schema_fs.go's Rebuild/CreateTable/DropTable
// orchestration style (load state under a lock, mutate, write back) and on
// storage/blob-refcount.go's reachability bookkeeping, reimagined here as a
// whole-repository reachable-digest scan (google/btree) rather than
// per-row refcounts, since fractyl's objects have no owning row to count
// against — only "is this digest reachable from any surviving snapshot."
package snapshot

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/btree"
	"github.com/google/uuid"

	"github.com/andrewbudd/fractyl/internal/digest"
	"github.com/andrewbudd/fractyl/internal/fractylerr"
	"github.com/andrewbudd/fractyl/internal/ignore"
	"github.com/andrewbudd/fractyl/internal/index"
	"github.com/andrewbudd/fractyl/internal/objstore"
	"github.com/andrewbudd/fractyl/internal/repo"
	"github.com/andrewbudd/fractyl/internal/walker"
)

// Engine ties the repository's paths, object store, and ignore rules
// together to implement the snapshot lifecycle. One Engine is scoped to one
// repository; the repository lock must already be held by the caller for
// every mutating method (Snapshot, Restore, Delete), per spec §4.7.
type Engine struct {
	Paths   repo.Paths
	Store   objstore.Backend
	Ignore  *ignore.Matcher
	// Now is the clock used to timestamp new snapshot records; overridable
	// in tests, defaults to time.Now when nil.
	Now func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Result describes what Snapshot did: either a new snapshot was created, or
// the tree was unchanged since the repository's current index was last
// written (spec §4.7 step 5).
type Result struct {
	Record          *Record
	Diff            index.Diff
	NoChange        bool
	SkippedSymlinks int
}

// Snapshot builds an index of the working tree under e.Paths.Root, diffs it
// against the repository's current index (the single mutable index file,
// shared by all branches), and — unless the diff is empty — writes a
// new snapshot record, advances HEAD, and overwrites the mutable index
// (spec §4.7, steps 1–10).
func (e *Engine) Snapshot(branch, description string) (Result, error) {
	if err := e.Paths.EnsureDirs(branch); err != nil {
		return Result{}, err
	}

	oldIdx, err := e.loadCurrentIndex()
	if err != nil {
		return Result{}, err
	}

	newIdx := index.New()
	skippedSymlinks, walkErr := walker.Walk(e.Paths.Root, e.Ignore, func(fi walker.FileInfo) error {
		fp := index.Fingerprint{
			Size: fi.Size, MtimeS: fi.MtimeS, MtimeNs: fi.MtimeNs,
			CtimeS: fi.CtimeS, CtimeNs: fi.CtimeNs, Inode: fi.Inode,
			Mode: fi.Mode, UID: fi.UID, GID: fi.GID,
		}

		var d digest.Digest
		if old := oldIdx.Lookup(fi.RelPath); old != nil && old.Fingerprint() == fp {
			d = old.Digest
		} else {
			d, err = e.hashAndStore(fi.RelPath, fi.Size)
			if err != nil {
				return err
			}
		}

		newIdx.Upsert(index.Entry{
			Path: fi.RelPath, Digest: d, Size: fi.Size,
			MtimeS: fi.MtimeS, MtimeNs: fi.MtimeNs,
			CtimeS: fi.CtimeS, CtimeNs: fi.CtimeNs,
			Inode: fi.Inode, Mode: fi.Mode, UID: fi.UID, GID: fi.GID,
		})
		return nil
	})
	if walkErr != nil {
		return Result{}, fractylerr.Wrap(fractylerr.KindIO, "walk working tree", walkErr)
	}

	diff := oldIdx.Diff(newIdx)
	if diff.IsEmpty() {
		return Result{Diff: diff, NoChange: true, SkippedSymlinks: skippedSymlinks}, nil
	}

	var idxBuf bytes.Buffer
	if err := newIdx.Save(&idxBuf); err != nil {
		return Result{}, err
	}
	indexDigest, err := e.Store.Put(idxBuf.Bytes())
	if err != nil {
		return Result{}, err
	}

	parent, err := e.readHead(branch)
	if err != nil {
		return Result{}, err
	}

	rec := newRecord(parent, branch, description, indexDigest.Hex(), e.now())

	recBytes, err := marshalRecord(rec)
	if err != nil {
		return Result{}, fractylerr.Wrap(fractylerr.KindIO, "marshal snapshot record", err)
	}
	if err := atomicWrite(e.Paths.SnapshotRecord(branch, rec.ID), recBytes, 0o644); err != nil {
		return Result{}, err
	}
	if err := atomicWrite(e.Paths.HeadFile(branch), []byte(rec.ID+"\n"), 0o644); err != nil {
		return Result{}, err
	}
	if err := atomicWrite(e.Paths.IndexFile(), idxBuf.Bytes(), 0o644); err != nil {
		return Result{}, err
	}

	return Result{Record: &rec, Diff: diff, SkippedSymlinks: skippedSymlinks}, nil
}

// hashAndStore reads the file at root-relative path and puts it into the
// object store, streaming if it is at or above objstore.StreamThreshold
// (spec §4.4/§9).
func (e *Engine) hashAndStore(relPath string, size uint64) (digest.Digest, error) {
	abs := filepath.Join(e.Paths.Root, relPath)
	if size < objstore.StreamThreshold {
		b, err := os.ReadFile(abs)
		if err != nil {
			return digest.Digest{}, fractylerr.Wrap(fractylerr.KindIO, "read "+relPath, err)
		}
		return e.Store.Put(b)
	}
	f, err := os.Open(abs)
	if err != nil {
		return digest.Digest{}, fractylerr.Wrap(fractylerr.KindIO, "open "+relPath, err)
	}
	defer f.Close()
	return e.Store.PutStream(f)
}

// List returns every snapshot record for branch, oldest first (spec §4.7).
// A record that vanishes mid-scan (concurrent delete) is elided, not
// reported, per spec §5's tolerant-read contract.
func (e *Engine) List(branch string) ([]Record, error) {
	dir := e.Paths.SnapshotDir(branch)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fractylerr.Wrap(fractylerr.KindIO, "list snapshot directory", err)
	}

	var out []Record
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".json") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, ent.Name()))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fractylerr.Wrap(fractylerr.KindIO, "read snapshot record", err)
		}
		rec, err := unmarshalRecord(b)
		if err != nil {
			return nil, fractylerr.Wrap(fractylerr.KindCorrupt, "parse snapshot record "+ent.Name(), err)
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, _ := time.Parse(time.RFC3339Nano, out[i].CreatedAt)
		tj, _ := time.Parse(time.RFC3339Nano, out[j].CreatedAt)
		return ti.Before(tj)
	})
	return out, nil
}

// Resolve finds the unique snapshot id on branch matching idPrefix.
func (e *Engine) Resolve(branch, idPrefix string) (string, error) {
	dir := e.Paths.SnapshotDir(branch)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fractylerr.New(fractylerr.KindNotFound, "no snapshots on branch "+branch)
		}
		return "", fractylerr.Wrap(fractylerr.KindIO, "list snapshot directory", err)
	}

	var matches []string
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(ent.Name(), ".json")
		if strings.HasPrefix(id, idPrefix) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", fractylerr.New(fractylerr.KindNotFound, "no snapshot matches "+idPrefix)
	case 1:
		return matches[0], nil
	default:
		return "", fractylerr.New(fractylerr.KindAmbiguous, fmt.Sprintf("prefix %q matches %d snapshots", idPrefix, len(matches)))
	}
}

func (e *Engine) loadRecord(branch, id string) (Record, error) {
	b, err := os.ReadFile(e.Paths.SnapshotRecord(branch, id))
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, fractylerr.New(fractylerr.KindNotFound, "snapshot "+id+" not found")
		}
		return Record{}, fractylerr.Wrap(fractylerr.KindIO, "read snapshot record", err)
	}
	rec, err := unmarshalRecord(b)
	if err != nil {
		return Record{}, fractylerr.Wrap(fractylerr.KindCorrupt, "parse snapshot record "+id, err)
	}
	return rec, nil
}

func (e *Engine) loadIndexByDigest(d string) (*index.Index, error) {
	digestVal, err := digest.Parse(d)
	if err != nil {
		return nil, fractylerr.Wrap(fractylerr.KindCorrupt, "parse index digest", err)
	}
	b, err := e.Store.Get(digestVal)
	if err != nil {
		return nil, err
	}
	idx, err := index.Load(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	return idx, nil
}

func (e *Engine) loadCurrentIndex() (*index.Index, error) {
	b, err := os.ReadFile(e.Paths.IndexFile())
	if err != nil {
		if os.IsNotExist(err) {
			return index.New(), nil
		}
		return nil, fractylerr.Wrap(fractylerr.KindIO, "read current index", err)
	}
	return index.Load(bytes.NewReader(b))
}

func (e *Engine) readHead(branch string) (*string, error) {
	b, err := os.ReadFile(e.Paths.HeadFile(branch))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fractylerr.Wrap(fractylerr.KindIO, "read HEAD", err)
	}
	id := strings.TrimSpace(string(b))
	if id == "" {
		return nil, nil
	}
	return &id, nil
}

// Diff resolves aPrefix and bPrefix on branch and reports added/removed/
// modified paths between their indices (spec §4.7).
func (e *Engine) Diff(branch, aPrefix, bPrefix string) (index.Diff, error) {
	aID, err := e.Resolve(branch, aPrefix)
	if err != nil {
		return index.Diff{}, err
	}
	bID, err := e.Resolve(branch, bPrefix)
	if err != nil {
		return index.Diff{}, err
	}
	aRec, err := e.loadRecord(branch, aID)
	if err != nil {
		return index.Diff{}, err
	}
	bRec, err := e.loadRecord(branch, bID)
	if err != nil {
		return index.Diff{}, err
	}
	aIdx, err := e.loadIndexByDigest(aRec.IndexDigest)
	if err != nil {
		return index.Diff{}, err
	}
	bIdx, err := e.loadIndexByDigest(bRec.IndexDigest)
	if err != nil {
		return index.Diff{}, err
	}
	return aIdx.Diff(bIdx), nil
}

// LoadIndex resolves idPrefix on branch and loads the full index it
// references, for callers outside this package that need per-entry content
// (e.g. the CLI's `diff` command rendering a unified diff for each modified
// path via the external textdiff collaborator, spec §6).
func (e *Engine) LoadIndex(branch, idPrefix string) (*index.Index, error) {
	id, err := e.Resolve(branch, idPrefix)
	if err != nil {
		return nil, err
	}
	rec, err := e.loadRecord(branch, id)
	if err != nil {
		return nil, err
	}
	return e.loadIndexByDigest(rec.IndexDigest)
}

// atomicWrite writes data to path via a uuid-named temp sibling and rename,
// the same idiom internal/objstore/local.go uses for object writes.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fractylerr.Wrap(fractylerr.KindIO, "create directory "+dir, err)
	}
	tmp := filepath.Join(dir, ".tmp-"+uuid.NewString())
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fractylerr.Wrap(fractylerr.KindIO, "write temp file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fractylerr.Wrap(fractylerr.KindIO, "rename into place", err)
	}
	return nil
}

// digestSetItem adapts a digest to btree.Item via its hex string ordering.
type digestSetItem string

func (d digestSetItem) Less(than btree.Item) bool {
	return string(d) < string(than.(digestSetItem))
}

// reachableDigests unions every entry digest plus every index_digest across
// every branch's every snapshot record — the whole-repository scan that
// replaces per-object refcounting (spec §4.7's delete step).
func (e *Engine) reachableDigests(excludeBranch, excludeID string) (*btree.BTree, error) {
	reachable := btree.New(32)

	branches, err := e.branchNames()
	if err != nil {
		return nil, err
	}
	for _, b := range branches {
		records, err := e.List(b)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			if b == excludeBranch && rec.ID == excludeID {
				continue
			}
			reachable.ReplaceOrInsert(digestSetItem(rec.IndexDigest))
			idx, err := e.loadIndexByDigest(rec.IndexDigest)
			if err != nil {
				// A record whose index vanished concurrently is skipped,
				// not fatal, matching the tolerant-read contract.
				continue
			}
			for _, entry := range idx.Entries() {
				reachable.ReplaceOrInsert(digestSetItem(entry.Digest.Hex()))
			}
		}
	}
	return reachable, nil
}

func (e *Engine) branchNames() ([]string, error) {
	entries, err := os.ReadDir(e.Paths.SnapshotsRoot())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fractylerr.Wrap(fractylerr.KindIO, "list branches", err)
	}
	var out []string
	for _, ent := range entries {
		if ent.IsDir() {
			out = append(out, ent.Name())
		}
	}
	return out, nil
}

// Delete resolves idPrefix on branch, removes its snapshot record, and
// garbage-collects every object no longer reachable from any surviving
// snapshot on any branch (spec §4.7). If the deleted snapshot was HEAD,
// HEAD is advanced to its parent (SPEC_FULL.md: dangling parent pointers on
// non-HEAD ancestors are preserved, not rewritten).
func (e *Engine) Delete(branch, idPrefix string) error {
	id, err := e.Resolve(branch, idPrefix)
	if err != nil {
		return err
	}

	reachable, err := e.reachableDigests(branch, id)
	if err != nil {
		return err
	}

	head, err := e.readHead(branch)
	if err != nil {
		return err
	}
	rec, err := e.loadRecord(branch, id)
	if err != nil {
		return err
	}

	if err := os.Remove(e.Paths.SnapshotRecord(branch, id)); err != nil && !os.IsNotExist(err) {
		return fractylerr.Wrap(fractylerr.KindIO, "remove snapshot record", err)
	}

	if head != nil && *head == id {
		if rec.Parent != nil {
			if err := atomicWrite(e.Paths.HeadFile(branch), []byte(*rec.Parent+"\n"), 0o644); err != nil {
				return err
			}
		} else if err := os.Remove(e.Paths.HeadFile(branch)); err != nil && !os.IsNotExist(err) {
			return fractylerr.Wrap(fractylerr.KindIO, "clear HEAD", err)
		}
	}

	lister, ok := e.Store.(objstore.Lister)
	if !ok {
		return nil
	}
	all, err := lister.ListDigests()
	if err != nil {
		return err
	}
	for _, d := range all {
		if reachable.Has(digestSetItem(d.Hex())) {
			continue
		}
		if err := e.Store.Delete(d); err != nil {
			return err
		}
	}
	return nil
}

// GCCheckResult reports what a garbage collection pass would do without
// doing it.
type GCCheckResult struct {
	// Unreachable is the number of stored objects reachable from no
	// surviving snapshot on any branch.
	Unreachable int
	// Supported is false when the backend doesn't implement objstore.Lister,
	// in which case Unreachable is always 0 and no scan was performed.
	Supported bool
}

// GCCheck computes, without deleting anything, how many stored objects are
// unreachable from every branch's every snapshot (spec §4.7's GC, read-only
// companion used by "fractyl objects gc-check").
func (e *Engine) GCCheck() (GCCheckResult, error) {
	lister, ok := e.Store.(objstore.Lister)
	if !ok {
		return GCCheckResult{}, nil
	}
	reachable, err := e.reachableDigests("", "")
	if err != nil {
		return GCCheckResult{}, err
	}
	all, err := lister.ListDigests()
	if err != nil {
		return GCCheckResult{}, err
	}
	var unreachable int
	for _, d := range all {
		if !reachable.Has(digestSetItem(d.Hex())) {
			unreachable++
		}
	}
	return GCCheckResult{Unreachable: unreachable, Supported: true}, nil
}
