package resolver

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// versionDirPattern matches directory names like 20.11.1, v18, 2.0.0-beta.
var versionDirPattern = regexp.MustCompile(`^v?\d+(\.\d+)*([-+].*)?$`)

// IsVersionDir reports whether name looks like an installed version.
func IsVersionDir(name string) bool {
	return versionDirPattern.MatchString(name)
}

func versionComponents(v string) []int {
	parts := strings.Split(strings.TrimPrefix(v, "v"), ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		// "0-beta" and friends count as 0
		n, err := strconv.Atoi(p)
		if err != nil {
			n = 0
		}
		out[i] = n
	}
	return out
}

// CompareVersions compares a and b component by component. Missing and
// non-numeric components are 0. It returns -1, 0 or 1.
func CompareVersions(a, b string) int {
	ca, cb := versionComponents(a), versionComponents(b)
	n := len(ca)
	if len(cb) > n {
		n = len(cb)
	}
	for i := 0; i < n; i++ {
		var x, y int
		if i < len(ca) {
			x = ca[i]
		}
		if i < len(cb) {
			y = cb[i]
		}
		switch {
		case x > y:
			return 1
		case x < y:
			return -1
		}
	}
	return 0
}

// SortVersionsDesc orders versions newest first. Equal versions keep a
// lexical order so the result is deterministic.
func SortVersionsDesc(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		if c := CompareVersions(versions[i], versions[j]); c != 0 {
			return c > 0
		}
		return versions[i] < versions[j]
	})
}
