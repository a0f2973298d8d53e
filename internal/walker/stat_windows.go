//go:build windows

package walker

import "io/fs"

// statFingerprint on Windows has no inode/uid/gid/ctime equivalent exposed
// by os.FileInfo; those fields are left zero and change detection falls
// back to size+mtime, matching the weaker guarantee documented for the
// Windows lock probe in internal/lock/probe_windows.go.
func statFingerprint(info fs.FileInfo) (FileInfo, bool) {
	mtime := info.ModTime()
	return FileInfo{
		Size:    uint64(info.Size()),
		MtimeS:  mtime.Unix(),
		MtimeNs: uint32(mtime.Nanosecond()),
		Mode:    uint32(info.Mode().Perm()),
	}, true
}
