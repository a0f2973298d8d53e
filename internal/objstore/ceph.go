//go:build ceph

package objstore

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/ceph/go-ceph/rados"

	"github.com/andrewbudd/fractyl/internal/digest"
	"github.com/andrewbudd/fractyl/internal/fractylerr"
)

// CephConfig describes a RADOS pool used as an object-store backend.
// Grounded on storage/persistence-ceph.go's CephFactory.
type CephConfig struct {
	UserName    string `json:"user_name,omitempty"`    // e.g. "client.admin" or "client.fractyl"
	ClusterName string `json:"cluster_name,omitempty"` // often "ceph"
	ConfFile    string `json:"conf_file,omitempty"`    // optional
	Pool        string `json:"pool,omitempty"`
	Prefix      string `json:"prefix,omitempty"`
}

// Ceph is an object store backend on top of a RADOS pool. Objects are
// named <prefix>/<hex digest>, one RADOS object per blob (no sharding: a
// content-addressed blob is already minimal, unlike the teacher's sharded
// columns).
type Ceph struct {
	cfg CephConfig

	mu    sync.Mutex
	conn  *rados.Conn
	ioctx *rados.IOContext
	open  bool
}

// NewCeph returns an unopened Ceph backend; the connection opens lazily on
// first use, matching CephStorage's ensureOpen pattern.
func NewCeph(cfg CephConfig) *Ceph {
	return &Ceph{cfg: cfg}
}

func (c *Ceph) ensureOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open {
		return nil
	}
	conn, err := rados.NewConnWithClusterAndUser(c.cfg.ClusterName, c.cfg.UserName)
	if err != nil {
		return fractylerr.Wrap(fractylerr.KindIO, "create rados connection", err)
	}
	if c.cfg.ConfFile != "" {
		if err := conn.ReadConfigFile(c.cfg.ConfFile); err != nil {
			return fractylerr.Wrap(fractylerr.KindIO, "read ceph conf file", err)
		}
	} else if err := conn.ReadDefaultConfigFile(); err != nil {
		return fractylerr.Wrap(fractylerr.KindIO, "read default ceph conf", err)
	}
	if err := conn.Connect(); err != nil {
		return fractylerr.Wrap(fractylerr.KindIO, "connect to ceph cluster", err)
	}
	ioctx, err := conn.OpenIOContext(c.cfg.Pool)
	if err != nil {
		conn.Shutdown()
		return fractylerr.Wrap(fractylerr.KindIO, "open ceph pool", err)
	}
	c.conn = conn
	c.ioctx = ioctx
	c.open = true
	return nil
}

func (c *Ceph) obj(d digest.Digest) string {
	if c.cfg.Prefix == "" {
		return d.Hex()
	}
	return c.cfg.Prefix + "/" + d.Hex()
}

func (c *Ceph) Put(b []byte) (digest.Digest, error) {
	d := digest.Sum(b)
	if c.Exists(d) {
		return d, nil
	}
	if err := c.ensureOpen(); err != nil {
		return digest.Digest{}, err
	}
	if err := c.ioctx.WriteFull(c.obj(d), b); err != nil {
		return digest.Digest{}, fractylerr.Wrap(fractylerr.KindIO, "write rados object", err)
	}
	return d, nil
}

func (c *Ceph) PutStream(r io.Reader) (digest.Digest, error) {
	// RADOS has no append primitive usable here without pre-knowing the
	// digest (the final object name); buffer then WriteFull, same tradeoff
	// as the S3 backend.
	b, err := io.ReadAll(r)
	if err != nil {
		return digest.Digest{}, fractylerr.Wrap(fractylerr.KindIO, "read stream for ceph put", err)
	}
	return c.Put(b)
}

func (c *Ceph) Get(d digest.Digest) ([]byte, error) {
	if err := c.ensureOpen(); err != nil {
		return nil, err
	}
	stat, err := c.ioctx.Stat(c.obj(d))
	if err != nil {
		return nil, fractylerr.New(fractylerr.KindNotFound, "object "+d.Hex()+" not found")
	}
	data := make([]byte, stat.Size)
	n, err := c.ioctx.Read(c.obj(d), data, 0)
	if err != nil {
		return nil, fractylerr.Wrap(fractylerr.KindIO, "read rados object", err)
	}
	return data[:n], nil
}

func (c *Ceph) Open(d digest.Digest) (io.ReadCloser, error) {
	b, err := c.Get(d)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (c *Ceph) Exists(d digest.Digest) bool {
	if err := c.ensureOpen(); err != nil {
		return false
	}
	_, err := c.ioctx.Stat(c.obj(d))
	return err == nil
}

func (c *Ceph) Delete(d digest.Digest) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	if err := c.ioctx.Delete(c.obj(d)); err != nil {
		return fractylerr.Wrap(fractylerr.KindIO, "delete rados object", err)
	}
	return nil
}

// ListDigests iterates the pool's object names and parses each one back
// into a digest, satisfying Lister for Ceph-backed repos.
func (c *Ceph) ListDigests() ([]digest.Digest, error) {
	if err := c.ensureOpen(); err != nil {
		return nil, err
	}
	iter, err := c.ioctx.Iter()
	if err != nil {
		return nil, fractylerr.Wrap(fractylerr.KindIO, "iterate rados pool", err)
	}
	defer iter.Close()

	pfx := c.cfg.Prefix
	if pfx != "" {
		pfx += "/"
	}
	var out []digest.Digest
	for iter.Next() {
		name := iter.Value()
		hex := strings.TrimPrefix(name, pfx)
		d, err := digest.Parse(hex)
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}
