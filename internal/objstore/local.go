package objstore

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/andrewbudd/fractyl/internal/digest"
	"github.com/andrewbudd/fractyl/internal/fractylerr"
)

// Local is the on-disk object store: objects/<aa>/<rest-of-hex>, two-level
// fanout by leading byte (spec §3). Grounded on
// storage/persistence-files.go's FileStorage.
type Local struct {
	root string
}

// NewLocal returns a Backend rooted at dir (the repository's objects/ path).
// dir is created lazily on first write, matching FileStorage.WriteSchema's
// os.MkdirAll-on-write pattern.
func NewLocal(dir string) *Local {
	return &Local{root: dir}
}

func (l *Local) pathFor(d digest.Digest) string {
	hex := d.Hex()
	return filepath.Join(l.root, hex[:2], hex[2:])
}

func (l *Local) Put(b []byte) (digest.Digest, error) {
	d := digest.Sum(b)
	if l.Exists(d) {
		return d, nil
	}
	if err := l.writeAtomic(d, bytes.NewReader(b)); err != nil {
		return digest.Digest{}, err
	}
	return d, nil
}

func (l *Local) PutStream(r io.Reader) (digest.Digest, error) {
	// Hash and buffer to a temp file simultaneously: we don't know the
	// digest (hence the final path) until the stream is exhausted, so the
	// temp file must live under a name independent of content, per spec
	// §4.4/§9's "unique per writer" requirement.
	tmpDir := l.root
	if err := os.MkdirAll(tmpDir, 0o750); err != nil {
		return digest.Digest{}, fractylerr.Wrap(fractylerr.KindIO, "create objects dir", err)
	}
	tmpPath := filepath.Join(tmpDir, ".tmp-"+uuid.NewString())
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return digest.Digest{}, fractylerr.Wrap(fractylerr.KindIO, "create temp object", err)
	}
	defer os.Remove(tmpPath) // no-op once renamed

	h := digest.NewHasher()
	mw := io.MultiWriter(f, h)
	if _, err := io.Copy(mw, r); err != nil {
		f.Close()
		return digest.Digest{}, fractylerr.Wrap(fractylerr.KindIO, "stream object content", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return digest.Digest{}, fractylerr.Wrap(fractylerr.KindIO, "sync temp object", err)
	}
	if err := f.Close(); err != nil {
		return digest.Digest{}, fractylerr.Wrap(fractylerr.KindIO, "close temp object", err)
	}

	d := h.Finish()
	final := l.pathFor(d)
	if _, statErr := os.Stat(final); statErr == nil {
		// Already present: identical content, discard our temp copy.
		return d, nil
	}
	if err := os.MkdirAll(filepath.Dir(final), 0o750); err != nil {
		return digest.Digest{}, fractylerr.Wrap(fractylerr.KindIO, "create fanout dir", err)
	}
	if err := os.Chmod(tmpPath, 0o444); err != nil {
		return digest.Digest{}, fractylerr.Wrap(fractylerr.KindIO, "set object permissions", err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		return digest.Digest{}, fractylerr.Wrap(fractylerr.KindIO, "rename temp object into place", err)
	}
	return d, nil
}

func (l *Local) writeAtomic(d digest.Digest, r io.Reader) error {
	final := l.pathFor(d)
	dir := filepath.Dir(final)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fractylerr.Wrap(fractylerr.KindIO, "create fanout dir", err)
	}
	tmpPath := filepath.Join(dir, ".tmp-"+uuid.NewString())
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fractylerr.Wrap(fractylerr.KindIO, "create temp object", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fractylerr.Wrap(fractylerr.KindIO, "write object content", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fractylerr.Wrap(fractylerr.KindIO, "sync temp object", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fractylerr.Wrap(fractylerr.KindIO, "close temp object", err)
	}
	if err := os.Chmod(tmpPath, 0o444); err != nil {
		os.Remove(tmpPath)
		return fractylerr.Wrap(fractylerr.KindIO, "set object permissions", err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return fractylerr.Wrap(fractylerr.KindIO, "rename temp object into place", err)
	}
	return nil
}

func (l *Local) Get(d digest.Digest) ([]byte, error) {
	b, err := os.ReadFile(l.pathFor(d))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fractylerr.New(fractylerr.KindNotFound, "object "+d.Hex()+" not found")
		}
		return nil, fractylerr.Wrap(fractylerr.KindIO, "read object", err)
	}
	return b, nil
}

func (l *Local) Open(d digest.Digest) (io.ReadCloser, error) {
	f, err := os.Open(l.pathFor(d))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fractylerr.New(fractylerr.KindNotFound, "object "+d.Hex()+" not found")
		}
		return nil, fractylerr.Wrap(fractylerr.KindIO, "open object", err)
	}
	return f, nil
}

func (l *Local) Exists(d digest.Digest) bool {
	_, err := os.Stat(l.pathFor(d))
	return err == nil
}

func (l *Local) Delete(d digest.Digest) error {
	err := os.Remove(l.pathFor(d))
	if err != nil && !os.IsNotExist(err) {
		return fractylerr.Wrap(fractylerr.KindIO, "delete object", err)
	}
	return nil
}

// ListDigests walks the two-level fanout directory tree and parses every
// leaf file name back into a digest, satisfying Lister.
func (l *Local) ListDigests() ([]digest.Digest, error) {
	var out []digest.Digest
	fanoutDirs, err := os.ReadDir(l.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fractylerr.Wrap(fractylerr.KindIO, "list objects root", err)
	}
	for _, fanout := range fanoutDirs {
		if !fanout.IsDir() || len(fanout.Name()) != 2 {
			continue
		}
		leaves, err := os.ReadDir(filepath.Join(l.root, fanout.Name()))
		if err != nil {
			return nil, fractylerr.Wrap(fractylerr.KindIO, "list fanout directory", err)
		}
		for _, leaf := range leaves {
			if leaf.IsDir() {
				continue
			}
			d, err := digest.Parse(fanout.Name() + leaf.Name())
			if err != nil {
				continue // not a digest-shaped entry; skip
			}
			out = append(out, d)
		}
	}
	return out, nil
}
