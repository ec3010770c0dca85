//go:build windows

package filemanager

import (
	"errors"
	"os"
	"syscall"
	"time"
)

// atomicRename retries once after removing dst when Windows reports the
// destination as busy or existing.
func atomicRename(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}

	var errno syscall.Errno
	if errors.As(err, &errno) && (errno == 5 || errno == 183) {
		_ = os.Remove(dst)
		time.Sleep(10 * time.Millisecond)
		return os.Rename(src, dst)
	}
	return err
}
