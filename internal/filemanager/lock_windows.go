//go:build windows

package filemanager

import (
	"os"
	"time"

	"github.com/gofrs/flock"
)

// createLock uses a sidecar lock file; Windows refuses to rename over a
// file that has an open handle.
func createLock(path string) *flock.Flock {
	return flock.New(lockPath(path))
}

func lockPath(path string) string {
	return path + ".lock"
}

// cleanupLockFile removes stale sidecar locks left by crashed writers.
func cleanupLockFile(path string) {
	info, err := os.Stat(lockPath(path))
	if err == nil && time.Since(info.ModTime()) > 5*time.Second {
		_ = os.Remove(lockPath(path))
	}
}
