package snapshot

import (
	"encoding/json"
	"time"

	"github.com/andrewbudd/fractyl/internal/digest"
)

// Record is the immutable snapshot document (spec §3). Field order in the
// marshaled JSON on disk is whatever encoding/json's struct field order
// produces; only the id computation requires the stricter canonical form
// built by canonicalBytes.
type Record struct {
	ID               string  `json:"id"`
	Parent           *string `json:"parent"`
	Branch           *string `json:"branch"`
	CreatedAt        string  `json:"created_at"`
	Description      string  `json:"description"`
	IndexDigest      string  `json:"index_digest"`
	SourceVCSCommit  *string `json:"source_vcs_commit,omitempty"`
}

// newRecord builds a Record with its id computed from every other field,
// per spec §3/§6: "canonicalize by sorting keys lexicographically and
// UTF-8 encoding without insignificant whitespace when computing id."
func newRecord(parent *string, branch string, description, indexDigest string, createdAt time.Time) Record {
	r := Record{
		Parent:      parent,
		Branch:      &branch,
		CreatedAt:   createdAt.UTC().Format(time.RFC3339Nano),
		Description: description,
		IndexDigest: indexDigest,
	}
	r.ID = digest.Sum(canonicalBytes(r)).Short()
	return r
}

// canonicalBytes renders every field of r except ID as a JSON object with
// lexicographically sorted keys and no insignificant whitespace.
//
// encoding/json.Marshal of a map[string]any sorts string keys and never
// inserts whitespace, which is exactly the canonical form the spec asks
// for — no custom encoder is needed.
func canonicalBytes(r Record) []byte {
	m := map[string]any{
		"parent":       r.Parent,
		"branch":       r.Branch,
		"created_at":   r.CreatedAt,
		"description":  r.Description,
		"index_digest": r.IndexDigest,
	}
	if r.SourceVCSCommit != nil {
		m["source_vcs_commit"] = *r.SourceVCSCommit
	}
	b, err := json.Marshal(m)
	if err != nil {
		// Only non-marshalable types (channels, funcs) fail here, and
		// Record never carries one.
		panic(err)
	}
	return b
}

func marshalRecord(r Record) ([]byte, error) {
	return json.Marshal(r)
}

func unmarshalRecord(b []byte) (Record, error) {
	var r Record
	err := json.Unmarshal(b, &r)
	return r, err
}
