//go:build unix

package snapshot

import "os"

// chownEntry applies a restored file's recorded uid/gid (spec §4.7's
// --preserve-owner flag).
func chownEntry(path string, uid, gid int) error {
	return os.Chown(path, uid, gid)
}
