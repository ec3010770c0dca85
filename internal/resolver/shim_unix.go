//go:build !windows

package resolver

import "path/filepath"

func voltaManager() ShimManager {
	return ShimManager{
		Name:    "volta",
		HomeEnv: "VOLTA_HOME",
		DefaultHome: func(userHome string) string {
			return filepath.Join(userHome, ".volta")
		},
		ShimSubdir: "bin",
		VersionsRoot: func(home, tool string) string {
			return filepath.Join(home, "tools", "image", tool)
		},
		BinSubdir: "bin",
	}
}
