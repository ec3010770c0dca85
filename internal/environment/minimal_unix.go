//go:build !windows

package environment

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/aki/weblaunch/internal/resolver"
)

const pathKey = "PATH"

// Minimal builds an explicit environment for execPath without consulting
// any shell.
func Minimal(execPath string) map[string]string {
	home, _ := os.UserHomeDir()
	username := os.Getenv("USER")
	if username == "" {
		if u, err := user.Current(); err == nil {
			username = u.Username
		}
	}
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	tmp := os.TempDir()

	dirs := []string{}
	if execPath != "" {
		dirs = append(dirs, filepath.Dir(execPath))
	}
	dirs = append(dirs, resolver.FallbackDirs()...)

	cache := os.Getenv("XDG_CACHE_HOME")
	if cache == "" && home != "" {
		cache = filepath.Join(home, ".cache")
	}

	env := map[string]string{
		pathKey:   strings.Join(dedupe(dirs), string(os.PathListSeparator)),
		"HOME":    home,
		"USER":    username,
		"LOGNAME": username,
		"SHELL":   shell,
		"TMPDIR":  tmp,
		"LANG":    "en_US.UTF-8",
	}
	if cache != "" {
		env["XDG_CACHE_HOME"] = cache
	}
	if home != "" {
		env["npm_config_cache"] = filepath.Join(home, ".npm")
	}
	return env
}
