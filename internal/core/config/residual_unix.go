//go:build !windows

package config

import "regexp"

// defaultResidualPatterns matches only processes started through the package
// runner: the npm exec wrapper and node running the package from the npx
// cache. A bare package name would match unrelated processes.
func defaultResidualPatterns(pkg string) []string {
	if pkg == "" {
		return []string{}
	}
	q := regexp.QuoteMeta(pkg)
	return []string{
		"npm exec .*" + q,
		"node .*/_npx/.*" + q,
	}
}
