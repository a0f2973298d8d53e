// Package index implements C5: the in-memory manifest of (path -> entry)
// with a compact binary on-disk form and stat-based staleness checking.
//
// The backing structure is github.com/launix-de/NonLockingReadMap, grounded
// on the teacher's third_party/NonLockingReadMap: read-heavy (lookup, diff,
// restore all read), written once per snapshot build — exactly its
// documented sweet spot ("use this map if you read often but write very
// seldom"). Binary encode/decode style is grounded on
// storage/persistence-s3.go's manual encoding/binary field writes.
package index

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	nlrm "github.com/launix-de/NonLockingReadMap"

	"github.com/andrewbudd/fractyl/internal/digest"
	"github.com/andrewbudd/fractyl/internal/fractylerr"
)

// Magic and Version identify the on-disk index format (spec §4.5).
var Magic = [4]byte{'F', 'R', 'I', 'X'}

const Version uint32 = 1

// Entry is one working-tree file's record (spec §3).
type Entry struct {
	Path    string
	Digest  digest.Digest
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

// GetKey satisfies nlrm.KeyGetter[string]: entries are ordered by path.
func (e *Entry) GetKey() string { return e.Path }

// ComputeSize satisfies nlrm.Sizable with a rough byte-size estimate; used
// only by the map's own bookkeeping, not by fractyl's logic.
func (e *Entry) ComputeSize() uint {
	return uint(len(e.Path)) + digest.Size + 8*6 + 4*3
}

// Fingerprint is every Entry field except Path — the cheap proxy for
// content equality (spec §3/GLOSSARY).
type Fingerprint struct {
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

// Fingerprint extracts e's stat fingerprint.
func (e *Entry) Fingerprint() Fingerprint {
	return Fingerprint{e.Size, e.MtimeS, e.MtimeNs, e.CtimeS, e.CtimeNs, e.Inode, e.Mode, e.UID, e.GID}
}

// Index is the ordered, path-keyed manifest of one tree state.
type Index struct {
	m nlrm.NonLockingReadMap[Entry, string]
}

// New returns an empty index.
func New() *Index {
	idx := &Index{m: nlrm.New[Entry, string]()}
	return idx
}

// Lookup returns the entry at path, or nil if absent.
func (idx *Index) Lookup(path string) *Entry {
	return idx.m.Get(path)
}

// Upsert inserts or replaces the entry for e.Path.
func (idx *Index) Upsert(e Entry) {
	idx.m.Set(&e)
}

// Remove deletes the entry at path, if present.
func (idx *Index) Remove(path string) {
	idx.m.Remove(path)
}

// Entries returns every entry, sorted by path (the map already maintains
// this order internally; this just exposes it as a plain slice).
func (idx *Index) Entries() []*Entry {
	all := idx.m.GetAll()
	out := make([]*Entry, len(all))
	copy(out, all)
	return out
}

// Len reports the number of entries.
func (idx *Index) Len() int { return len(idx.m.GetAll()) }

// Diff reports added/removed/modified paths between idx (the "old" side)
// and other (the "new" side). Modified means same path, different content
// digest (spec §4.5).
type Diff struct {
	Added    []string
	Removed  []string
	Modified []string
}

// IsEmpty reports whether the diff carries no changes at all.
func (d Diff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Modified) == 0
}

func (idx *Index) Diff(other *Index) Diff {
	var d Diff
	oldEntries := idx.Entries()
	newEntries := other.Entries()

	oldByPath := make(map[string]*Entry, len(oldEntries))
	for _, e := range oldEntries {
		oldByPath[e.Path] = e
	}
	newByPath := make(map[string]*Entry, len(newEntries))
	for _, e := range newEntries {
		newByPath[e.Path] = e
	}

	for _, e := range newEntries {
		old, ok := oldByPath[e.Path]
		if !ok {
			d.Added = append(d.Added, e.Path)
		} else if old.Digest != e.Digest {
			d.Modified = append(d.Modified, e.Path)
		}
	}
	for _, e := range oldEntries {
		if _, ok := newByPath[e.Path]; !ok {
			d.Removed = append(d.Removed, e.Path)
		}
	}
	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Strings(d.Modified)
	return d
}

// Save writes idx in the binary format documented in spec §4.5:
// magic(4) + version(u32) + count(u32) + entries, all little-endian.
func (idx *Index) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(Magic[:]); err != nil {
		return fractylerr.Wrap(fractylerr.KindIO, "write index magic", err)
	}
	entries := idx.Entries()
	if err := binary.Write(bw, binary.LittleEndian, Version); err != nil {
		return fractylerr.Wrap(fractylerr.KindIO, "write index version", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(entries))); err != nil {
		return fractylerr.Wrap(fractylerr.KindIO, "write index count", err)
	}
	for _, e := range entries {
		if err := writeEntry(bw, e); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return fractylerr.Wrap(fractylerr.KindIO, "flush index", err)
	}
	return nil
}

func writeEntry(w io.Writer, e *Entry) error {
	pathBytes := []byte(e.Path)
	fields := []any{
		uint32(len(pathBytes)),
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return fractylerr.Wrap(fractylerr.KindIO, "write entry path length", err)
		}
	}
	if _, err := w.Write(pathBytes); err != nil {
		return fractylerr.Wrap(fractylerr.KindIO, "write entry path", err)
	}
	rest := []any{
		e.Digest,
		e.Size,
		e.MtimeS,
		e.MtimeNs,
		e.CtimeS,
		e.CtimeNs,
		e.Inode,
		e.Mode,
		e.UID,
		e.GID,
	}
	for _, f := range rest {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return fractylerr.Wrap(fractylerr.KindIO, "write entry field", err)
		}
	}
	return nil
}

// Load parses the binary form written by Save. It rejects unknown versions
// and guards against a corrupt path length driving the cursor past
// end-of-buffer (spec §4.5).
func Load(r io.Reader) (*Index, error) {
	br := bufio.NewReader(r)
	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, fractylerr.Wrap(fractylerr.KindCorrupt, "read index magic", err)
	}
	if magic != Magic {
		return nil, fractylerr.New(fractylerr.KindCorrupt, "not a fractyl index file")
	}
	var version uint32
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, fractylerr.Wrap(fractylerr.KindCorrupt, "read index version", err)
	}
	if version != Version {
		return nil, fractylerr.New(fractylerr.KindCorrupt, fmt.Sprintf("unsupported index version %d", version))
	}
	var count uint32
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return nil, fractylerr.Wrap(fractylerr.KindCorrupt, "read index count", err)
	}

	idx := New()
	for i := uint32(0); i < count; i++ {
		e, err := readEntry(br)
		if err != nil {
			return nil, err
		}
		idx.Upsert(e)
	}
	return idx, nil
}

// maxPathLen guards against a corrupt length field requesting an absurd
// allocation before any bytes have even been validated.
const maxPathLen = 1 << 20

func readEntry(r io.Reader) (Entry, error) {
	var e Entry
	var pathLen uint32
	if err := binary.Read(r, binary.LittleEndian, &pathLen); err != nil {
		return e, fractylerr.Wrap(fractylerr.KindCorrupt, "read entry path length", err)
	}
	if pathLen > maxPathLen {
		return e, fractylerr.New(fractylerr.KindCorrupt, "entry path length exceeds maximum")
	}
	pathBytes := make([]byte, pathLen)
	if _, err := io.ReadFull(r, pathBytes); err != nil {
		return e, fractylerr.Wrap(fractylerr.KindCorrupt, "read entry path (truncated index)", err)
	}
	e.Path = string(pathBytes)

	if err := binary.Read(r, binary.LittleEndian, &e.Digest); err != nil {
		return e, fractylerr.Wrap(fractylerr.KindCorrupt, "read entry digest", err)
	}
	for _, target := range []any{&e.Size, &e.MtimeS, &e.MtimeNs, &e.CtimeS, &e.CtimeNs, &e.Inode, &e.Mode, &e.UID, &e.GID} {
		if err := binary.Read(r, binary.LittleEndian, target); err != nil {
			return e, fractylerr.Wrap(fractylerr.KindCorrupt, "read entry field (truncated index)", err)
		}
	}
	return e, nil
}
