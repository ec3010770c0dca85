//go:build windows

package resolver

import (
	"os"
	"path/filepath"
	"strings"
)

// FallbackDirs lists directories searched when PATH is incomplete.
func FallbackDirs() []string {
	var dirs []string
	if pf := os.Getenv("ProgramFiles"); pf != "" {
		dirs = append(dirs, filepath.Join(pf, "nodejs"))
	}
	if appData := os.Getenv("APPDATA"); appData != "" {
		dirs = append(dirs, filepath.Join(appData, "npm"))
	}
	if root := os.Getenv("SystemRoot"); root != "" {
		dirs = append(dirs, filepath.Join(root, "System32"))
	}
	return dirs
}

func runtimeNames() []string { return []string{"node.exe", "node"} }

func runnerNames() []string { return []string{"npx.cmd", "npx.exe", "npx"} }

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".exe", ".cmd", ".bat", ".com":
		return true
	}
	return false
}
