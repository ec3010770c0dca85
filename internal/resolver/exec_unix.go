//go:build !windows

package resolver

import "os"

// FallbackDirs lists directories searched when PATH is minimal, as it is
// for applications started from a desktop environment.
func FallbackDirs() []string {
	return []string{
		"/opt/homebrew/bin",
		"/usr/local/bin",
		"/usr/bin",
		"/bin",
		"/usr/sbin",
		"/sbin",
	}
}

func runtimeNames() []string { return []string{"node"} }

func runnerNames() []string { return []string{"npx"} }

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}
