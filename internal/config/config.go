// Package config holds fractyl's repository-wide settings, following the
// shape of the teacher's storage.SettingsT: a flat struct with sane zero
// values, no generic config-file loader. The one addition over the
// teacher's in-memory-only settings is a JSON file under .fractyl/, used to
// record a repository's chosen object-store backend (SPEC_FULL.md's DOMAIN
// STACK: "selectable by repository config").
package config

import (
	"encoding/json"
	"os"

	"github.com/andrewbudd/fractyl/internal/fractylerr"
	"github.com/andrewbudd/fractyl/internal/objstore"
)

// Config is the set of tunables a repository operates under. Flags parsed by
// cmd/fractyl populate the in-memory fields; Backend is the one field
// persisted to disk, since it must be consistent across every invocation
// against a repository, not just the one that ran `init`.
type Config struct {
	// AgentIntervalSeconds is the cadence between auto-snapshot attempts.
	AgentIntervalSeconds int

	// PreserveOwner gates restoring uid/gid from an index entry (§9 Open
	// Question: platform-dependent, off by default).
	PreserveOwner bool

	// LockWaitSeconds bounds how long an interactive command polls for the
	// repository lock before giving up.
	LockWaitSeconds int

	// Backend selects and configures the object store (local by default).
	Backend BackendConfig
}

// BackendKind names one of objstore's Backend implementations.
type BackendKind string

const (
	BackendLocal BackendKind = "local"
	BackendS3    BackendKind = "s3"
	BackendCeph  BackendKind = "ceph"
)

// BackendConfig is the persisted, JSON-serializable subset of a repository's
// backend choice. Only the fields for the selected Kind are meaningful.
// objstore.CephConfig has the same field shape whether or not the "ceph"
// build tag is set (objstore/ceph_stub.go mirrors it), so this compiles
// either way.
type BackendConfig struct {
	Kind BackendKind        `json:"kind"`
	S3   objstore.S3Config  `json:"s3,omitempty"`
	Ceph objstore.CephConfig `json:"ceph,omitempty"`
}

// DefaultAgentIntervalSeconds is the cadence used when -i is not given.
const DefaultAgentIntervalSeconds = 180

// DefaultLockWaitSeconds is how long interactive commands wait for the lock.
const DefaultLockWaitSeconds = 30

// Default returns the zero-configuration settings used by interactive
// commands and by `agent start` when no flags override them.
func Default() Config {
	return Config{
		AgentIntervalSeconds: DefaultAgentIntervalSeconds,
		PreserveOwner:        false,
		LockWaitSeconds:      DefaultLockWaitSeconds,
		Backend:              BackendConfig{Kind: BackendLocal},
	}
}

// Load reads path's backend configuration, if present, layering it over
// Default(). A missing file is not an error: a freshly `init`ed repository
// has none and runs against the local backend.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fractylerr.Wrap(fractylerr.KindIO, "read config file", err)
	}
	if err := json.Unmarshal(b, &cfg.Backend); err != nil {
		return cfg, fractylerr.Wrap(fractylerr.KindCorrupt, "parse config file", err)
	}
	return cfg, nil
}

// OpenBackend builds the objstore.Backend the configuration selects.
// localDir is used for BackendLocal and ignored otherwise.
func (c Config) OpenBackend(localDir string) (objstore.Backend, error) {
	switch c.Backend.Kind {
	case "", BackendLocal:
		return objstore.NewLocal(localDir), nil
	case BackendS3:
		return objstore.NewS3(c.Backend.S3), nil
	case BackendCeph:
		return objstore.NewCeph(c.Backend.Ceph), nil
	default:
		return nil, fractylerr.New(fractylerr.KindBadArgument, "unknown backend kind "+string(c.Backend.Kind))
	}
}

// Save writes cfg's backend selection to path as JSON.
func Save(path string, cfg Config) error {
	b, err := json.MarshalIndent(cfg.Backend, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
