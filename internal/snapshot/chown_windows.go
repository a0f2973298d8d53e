//go:build windows

package snapshot

// chownEntry is a no-op on Windows: POSIX uid/gid ownership has no direct
// equivalent in the Windows ACL model, so --preserve-owner restores mode
// bits only there (mirrors walker's windows fingerprint fallback).
func chownEntry(path string, uid, gid int) error {
	return nil
}
