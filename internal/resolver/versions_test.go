package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortVersionsDesc(t *testing.T) {
	versions := []string{"1.2.0", "1.10.0", "2.0.0-beta"}
	SortVersionsDesc(versions)
	assert.Equal(t, []string{"2.0.0-beta", "1.10.0", "1.2.0"}, versions)
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.10.0", "1.2.0", 1},
		{"1.2", "1.2.0", 0},
		{"v20.1.0", "18.19.1", 1},
		{"2.0.0-beta", "2.0.0", 0},
		{"1.0.x", "1.0.1", -1},
		{"3", "3.0.1", -1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareVersions(tt.a, tt.b))
		})
	}
}

func TestIsVersionDir(t *testing.T) {
	for _, name := range []string{"20.11.1", "v18", "2.0.0-beta", "1.2.3+build"} {
		assert.True(t, IsVersionDir(name), name)
	}
	for _, name := range []string{"current", "lts", ".DS_Store", "node-20"} {
		assert.False(t, IsVersionDir(name), name)
	}
}
