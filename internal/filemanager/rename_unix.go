//go:build !windows

package filemanager

import "os"

func atomicRename(src, dst string) error {
	return os.Rename(src, dst)
}
