//go:build !unix

package capability

import (
	"io/fs"
	"os"
)

func fileIdentity(_ string, info fs.FileInfo) string {
	return fallbackIdentity(info)
}

func readable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}
