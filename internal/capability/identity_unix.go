//go:build unix

package capability

import (
	"fmt"
	"io/fs"

	"golang.org/x/sys/unix"
)

func fileIdentity(path string, info fs.FileInfo) string {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return fallbackIdentity(info)
	}
	return fmt.Sprintf("%d:%d", uint64(st.Dev), uint64(st.Ino))
}

func readable(path string) error {
	return unix.Access(path, unix.R_OK)
}
