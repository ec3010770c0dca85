package resolver

import (
	"os"
	"path/filepath"
	"strings"
)

// ShimManager describes where a version manager keeps its shims and the
// real installations they redirect to.
type ShimManager struct {
	// Name identifies the manager, e.g. "volta"
	Name string
	// HomeEnv is the variable that overrides the manager home
	HomeEnv string
	// DefaultHome returns the home directory when HomeEnv is unset
	DefaultHome func(userHome string) string
	// ShimSubdir is the shim directory relative to the home
	ShimSubdir string
	// VersionsRoot returns the directory holding one subdirectory per
	// installed version of tool
	VersionsRoot func(home, tool string) string
	// BinSubdir is where binaries live inside a version directory
	BinSubdir string
}

// ShimInfo records that a path is a shim and where it led.
type ShimInfo struct {
	Manager string `json:"manager"`
	HomeEnv string `json:"home_env,omitempty"`
	Home    string `json:"home"`
	ShimDir string `json:"shim_dir"`
	// Version is the selected version, empty when resolution fell back
	Version string `json:"version,omitempty"`
}

func (m ShimManager) home(userHome string) string {
	if m.HomeEnv != "" {
		if h := os.Getenv(m.HomeEnv); h != "" {
			return h
		}
	}
	return m.DefaultHome(userHome)
}

// DefaultShimManagers returns the managers known out of the box.
func DefaultShimManagers() []ShimManager {
	return []ShimManager{voltaManager(), asdfManager()}
}

func asdfManager() ShimManager {
	return ShimManager{
		Name:    "asdf",
		HomeEnv: "ASDF_DATA_DIR",
		DefaultHome: func(userHome string) string {
			return filepath.Join(userHome, ".asdf")
		},
		ShimSubdir: "shims",
		VersionsRoot: func(home, tool string) string {
			return filepath.Join(home, "installs", asdfPluginName(tool))
		},
		BinSubdir: "bin",
	}
}

// asdfPluginName maps a tool to the asdf plugin that installs it.
func asdfPluginName(tool string) string {
	if tool == "node" {
		return "nodejs"
	}
	return tool
}

func isUnder(path, dir string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// listVersions returns the version-like subdirectories of root, newest first.
func listVersions(root string) []string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	var versions []string
	for _, e := range entries {
		if e.IsDir() && IsVersionDir(e.Name()) {
			versions = append(versions, e.Name())
		}
	}
	SortVersionsDesc(versions)
	return versions
}
