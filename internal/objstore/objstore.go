// Package objstore implements C4: content-addressed blob storage.
//
// The Backend interface is grounded on storage/persistence.go's
// PersistenceEngine; the default Local implementation is grounded on
// storage/persistence-files.go's FileStorage (temp-file-then-rename writes,
// os.MkdirAll before first write). Optional remote backends (S3, Ceph) live
// in s3.go and ceph.go, grounded on storage/persistence-s3.go and
// storage/persistence-ceph.go respectively.
package objstore

import (
	"io"

	"github.com/andrewbudd/fractyl/internal/digest"
)

// StreamThreshold is the policy boundary past which writers MUST stream
// through the hasher into a temp file instead of buffering fully in memory
// (spec §4.4/§9: files >= 1 MiB).
const StreamThreshold = 1 << 20

// Backend is the pluggable storage surface for objects (spec §4.4). Local is
// the only backend exercised end to end by the CLI; S3 and Ceph implement
// the same interface for off-host storage (SPEC_FULL.md DOMAIN STACK).
type Backend interface {
	// Put stores b under its content digest, returning the digest. If an
	// object with that digest already exists, no write occurs.
	Put(b []byte) (digest.Digest, error)

	// PutStream stores the content of r under its content digest without
	// buffering it fully in memory. Required for files >= StreamThreshold.
	PutStream(r io.Reader) (digest.Digest, error)

	// Get returns the full content addressed by d.
	Get(d digest.Digest) ([]byte, error)

	// Open returns a reader over the content addressed by d. Caller must
	// Close it.
	Open(d digest.Digest) (io.ReadCloser, error)

	// Exists reports whether d resolves to stored content.
	Exists(d digest.Digest) bool

	// Delete unlinks the object addressed by d. Callers must have already
	// proved it is unreachable from every surviving snapshot.
	Delete(d digest.Digest) error
}

// Lister is implemented by backends that can enumerate every stored digest,
// the primitive the snapshot engine's delete-time garbage collector needs to
// find objects unreferenced by any surviving snapshot (spec §4.7's
// whole-repository reachability scan). Not every Backend can do this
// cheaply: a remote object store may choose not to implement it, in which
// case delete skips garbage collection and only removes the snapshot
// record.
type Lister interface {
	ListDigests() ([]digest.Digest, error)
}
