//go:build unix

package scp

import (
	"os"
	"syscall"
	"time"
)

// accessTime reads the POSIX atime off the underlying syscall.Stat_t,
// falling back to false (caller uses mtime) when the platform doesn't
// expose it through os.FileInfo.Sys().
func accessTime(info os.FileInfo) (time.Time, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(stat.Atim.Sec, stat.Atim.Nsec), true
}
