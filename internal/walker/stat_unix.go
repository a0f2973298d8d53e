//go:build unix

package walker

import (
	"io/fs"
	"syscall"
)

// statFingerprint extracts the full stat fingerprint (spec §3) from info,
// including inode/ctime/uid/gid which only syscall.Stat_t exposes.
func statFingerprint(info fs.FileInfo) (FileInfo, bool) {
	sys, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return FileInfo{}, false
	}
	mtime := info.ModTime()
	return FileInfo{
		Size:    uint64(info.Size()),
		MtimeS:  mtime.Unix(),
		MtimeNs: uint32(mtime.Nanosecond()),
		CtimeS:  int64(sys.Ctim.Sec),
		CtimeNs: uint32(sys.Ctim.Nsec),
		Inode:   sys.Ino,
		Mode:    uint32(info.Mode().Perm()),
		UID:     sys.Uid,
		GID:     sys.Gid,
	}, true
}
