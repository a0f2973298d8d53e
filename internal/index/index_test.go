package index

import (
	"bytes"
	"testing"

	"github.com/andrewbudd/fractyl/internal/digest"
	"github.com/andrewbudd/fractyl/internal/fractylerr"
)

func sampleEntry(path, content string) Entry {
	return Entry{
		Path:    path,
		Digest:  digest.Sum([]byte(content)),
		Size:    uint64(len(content)),
		MtimeS:  100,
		MtimeNs: 1,
		CtimeS:  100,
		CtimeNs: 1,
		Inode:   42,
		Mode:    0644,
		UID:     1000,
		GID:     1000,
	}
}

func TestUpsertLookupRemove(t *testing.T) {
	idx := New()
	idx.Upsert(sampleEntry("a.txt", "hello"))
	e := idx.Lookup("a.txt")
	if e == nil {
		t.Fatalf("expected entry")
	}
	if e.Digest != digest.Sum([]byte("hello")) {
		t.Fatalf("digest mismatch")
	}
	idx.Remove("a.txt")
	if idx.Lookup("a.txt") != nil {
		t.Fatalf("expected entry removed")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	idx := New()
	idx.Upsert(sampleEntry("a.txt", "hello"))
	idx.Upsert(sampleEntry("b/c.txt", "world"))

	var buf bytes.Buffer
	if err := idx.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", got.Len())
	}
	e := got.Lookup("b/c.txt")
	if e == nil || e.Digest != digest.Sum([]byte("world")) {
		t.Fatalf("round-trip mismatch for b/c.txt")
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("NOPE-not-an-index-file")
	_, err := Load(buf)
	if !fractylerr.IsKind(err, fractylerr.KindCorrupt) {
		t.Fatalf("expected Corrupt, got %v", err)
	}
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	idx := New()
	idx.Upsert(sampleEntry("a.txt", "hello"))
	var buf bytes.Buffer
	if err := idx.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw := buf.Bytes()
	// Version is the 4 bytes right after the magic, little-endian.
	raw[4] = 0xFF
	raw[5] = 0xFF

	_, err := Load(bytes.NewReader(raw))
	if !fractylerr.IsKind(err, fractylerr.KindCorrupt) {
		t.Fatalf("expected Corrupt for unknown version, got %v", err)
	}
}

func TestLoadRejectsTruncatedPath(t *testing.T) {
	idx := New()
	idx.Upsert(sampleEntry("a.txt", "hello"))
	var buf bytes.Buffer
	if err := idx.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw := buf.Bytes()
	// Path length field sits right after magic(4)+version(4)+count(4).
	raw[12] = 0xFF
	raw[13] = 0xFF
	raw[14] = 0xFF
	raw[15] = 0x7F

	_, err := Load(bytes.NewReader(raw))
	if !fractylerr.IsKind(err, fractylerr.KindCorrupt) {
		t.Fatalf("expected Corrupt for runaway path length, got %v", err)
	}
}

func TestDiffAddedRemovedModified(t *testing.T) {
	oldIdx := New()
	oldIdx.Upsert(sampleEntry("keep.txt", "same"))
	oldIdx.Upsert(sampleEntry("gone.txt", "bye"))
	oldIdx.Upsert(sampleEntry("change.txt", "before"))

	newIdx := New()
	newIdx.Upsert(sampleEntry("keep.txt", "same"))
	newIdx.Upsert(sampleEntry("change.txt", "after"))
	newIdx.Upsert(sampleEntry("new.txt", "fresh"))

	d := oldIdx.Diff(newIdx)
	if len(d.Added) != 1 || d.Added[0] != "new.txt" {
		t.Fatalf("unexpected Added: %v", d.Added)
	}
	if len(d.Removed) != 1 || d.Removed[0] != "gone.txt" {
		t.Fatalf("unexpected Removed: %v", d.Removed)
	}
	if len(d.Modified) != 1 || d.Modified[0] != "change.txt" {
		t.Fatalf("unexpected Modified: %v", d.Modified)
	}
}

func TestDiffEmptyWhenIdentical(t *testing.T) {
	a := New()
	a.Upsert(sampleEntry("x.txt", "same"))
	b := New()
	b.Upsert(sampleEntry("x.txt", "same"))
	if !a.Diff(b).IsEmpty() {
		t.Fatalf("expected empty diff")
	}
}
