//go:build windows

package config

// defaultResidualPatterns is empty on Windows: the sweep there matches image
// names, and the package runs inside node.exe which is shared with every other
// node program.
func defaultResidualPatterns(string) []string {
	return []string{}
}
