package capability

import (
	"fmt"
	"io/fs"
)

// fallbackIdentity is used where no device/inode pair is available.
// Directory mtimes move whenever entries change, so directories only
// record that they are directories.
func fallbackIdentity(info fs.FileInfo) string {
	if info.IsDir() {
		return "dir"
	}
	return fmt.Sprintf("%d:%d", info.Size(), info.ModTime().UnixNano())
}
