package objstore

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/andrewbudd/fractyl/internal/digest"
	"github.com/andrewbudd/fractyl/internal/fractylerr"
)

func TestLocalPutGet(t *testing.T) {
	l := NewLocal(filepath.Join(t.TempDir(), "objects"))
	d, err := l.Put([]byte("hello"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if d != digest.Sum([]byte("hello")) {
		t.Fatalf("digest mismatch")
	}
	got, err := l.Get(d)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("content mismatch: %q", got)
	}
}

func TestLocalDedup(t *testing.T) {
	l := NewLocal(filepath.Join(t.TempDir(), "objects"))
	d1, _ := l.Put([]byte("same"))
	d2, _ := l.Put([]byte("same"))
	if d1 != d2 {
		t.Fatalf("expected same digest for same content")
	}
	// Only one object file should exist on disk for this content.
	count := 0
	filepath.Walk(l.root, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			count++
		}
		return nil
	})
	if count != 1 {
		t.Fatalf("expected 1 object file, got %d", count)
	}
}

func TestLocalNotFound(t *testing.T) {
	l := NewLocal(filepath.Join(t.TempDir(), "objects"))
	_, err := l.Get(digest.Sum([]byte("absent")))
	if !fractylerr.IsKind(err, fractylerr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestLocalPutStreamMatchesPut(t *testing.T) {
	l := NewLocal(filepath.Join(t.TempDir(), "objects"))
	content := bytes.Repeat([]byte("x"), 5000)
	d1, err := l.PutStream(bytes.NewReader(content))
	if err != nil {
		t.Fatalf("PutStream: %v", err)
	}
	d2, err := l.Put(content)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if d1 != d2 {
		t.Fatalf("PutStream and Put disagree on digest")
	}
	rc, err := l.Open(d1)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("streamed content mismatch")
	}
}

func TestLocalDeleteThenExists(t *testing.T) {
	l := NewLocal(filepath.Join(t.TempDir(), "objects"))
	d, _ := l.Put([]byte("gone soon"))
	if !l.Exists(d) {
		t.Fatalf("expected object to exist")
	}
	if err := l.Delete(d); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if l.Exists(d) {
		t.Fatalf("expected object to be gone")
	}
}
