//go:build windows

package environment

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/aki/weblaunch/internal/resolver"
)

const pathKey = "Path"

// Minimal builds an explicit environment for execPath without consulting
// any shell.
func Minimal(execPath string) map[string]string {
	home, _ := os.UserHomeDir()

	dirs := []string{}
	if execPath != "" {
		dirs = append(dirs, filepath.Dir(execPath))
	}
	dirs = append(dirs, resolver.FallbackDirs()...)

	env := map[string]string{
		pathKey:       strings.Join(dedupe(dirs), string(os.PathListSeparator)),
		"USERPROFILE": home,
		"HOMEDRIVE":   filepath.VolumeName(home),
		"USERNAME":    os.Getenv("USERNAME"),
		"TEMP":        os.TempDir(),
		"TMP":         os.TempDir(),
		"ComSpec":     os.Getenv("ComSpec"),
		"PATHEXT":     ".COM;.EXE;.BAT;.CMD",
	}
	for _, key := range []string{"SystemRoot", "APPDATA", "LOCALAPPDATA", "ProgramFiles"} {
		if v := os.Getenv(key); v != "" {
			env[key] = v
		}
	}
	if local := os.Getenv("LOCALAPPDATA"); local != "" {
		env["npm_config_cache"] = filepath.Join(local, "npm-cache")
	}
	return env
}
