//go:build windows

package resolver

import (
	"os"
	"path/filepath"
)

func voltaManager() ShimManager {
	return ShimManager{
		Name:    "volta",
		HomeEnv: "VOLTA_HOME",
		DefaultHome: func(userHome string) string {
			if local := os.Getenv("LOCALAPPDATA"); local != "" {
				return filepath.Join(local, "Volta")
			}
			return filepath.Join(userHome, "AppData", "Local", "Volta")
		},
		ShimSubdir: "bin",
		VersionsRoot: func(home, tool string) string {
			return filepath.Join(home, "tools", "image", tool)
		},
		// node.exe and npx.cmd sit at the top of the version directory
		BinSubdir: "",
	}
}
