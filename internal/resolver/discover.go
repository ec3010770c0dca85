package resolver

import (
	"os/exec"
	"path/filepath"

	"github.com/aki/weblaunch/internal/core/config"
)

// Discover looks for the runtime and package runner on PATH and then in the
// platform's usual install locations. Entries that cannot be found stay empty.
func Discover() config.Paths {
	return config.Paths{
		Runtime:       discoverOne(runtimeNames()),
		PackageRunner: discoverOne(runnerNames()),
	}
}

func discoverOne(names []string) string {
	for _, name := range names {
		if p, err := exec.LookPath(name); err == nil {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	for _, dir := range FallbackDirs() {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if isExecutable(candidate) {
				return candidate
			}
		}
	}
	return ""
}
