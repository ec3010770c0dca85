package environment

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/aki/weblaunch/internal/core/config"
	"github.com/aki/weblaunch/internal/resolver"
)

// Request describes the process an environment is built for.
type Request struct {
	// Mode is config.EnvModeShell or config.EnvModeMinimal
	Mode string
	// ExecPath is the executable being launched
	ExecPath string
	// Port, when set, is exported through the port variable
	Port *int
	// Shim is the version manager the executable was configured through
	Shim *resolver.ShimInfo
	// Extra variables applied before the launcher's own overrides
	Extra map[string]string
}

// Builder assembles child environments.
type Builder struct {
	snapshot     *Snapshotter
	portEnv      string
	browserEnv   string
	browserValue string
}

// NewBuilder creates a Builder. portEnv names the variable that carries the
// requested port; browserEnv=browserValue suppresses the server's own
// browser launch.
func NewBuilder(snapshot *Snapshotter, portEnv, browserEnv, browserValue string) *Builder {
	if snapshot == nil {
		snapshot = NewSnapshotter()
	}
	return &Builder{
		snapshot:     snapshot,
		portEnv:      portEnv,
		browserEnv:   browserEnv,
		browserValue: browserValue,
	}
}

// Build returns the environment as sorted KEY=VALUE pairs.
func (b *Builder) Build(ctx context.Context, req Request) []string {
	var env map[string]string
	if req.Mode == config.EnvModeMinimal {
		env = Minimal(req.ExecPath)
	} else {
		env = b.snapshot.Snapshot(ctx)
	}

	for k, v := range req.Extra {
		env[k] = v
	}

	key := findKey(env, pathKey)
	var prepend []string
	if req.ExecPath != "" {
		prepend = append(prepend, filepath.Dir(req.ExecPath))
	}
	if req.Shim != nil {
		if req.Shim.HomeEnv != "" {
			env[req.Shim.HomeEnv] = req.Shim.Home
		}
		prepend = append(prepend, req.Shim.ShimDir)
	}
	env[key] = PrependPath(env[key], prepend...)

	if b.browserEnv != "" {
		env[b.browserEnv] = b.browserValue
	}
	if req.Port != nil && b.portEnv != "" {
		env[b.portEnv] = strconv.Itoa(*req.Port)
	}

	return Flatten(env)
}

// PrependPath puts dirs in front of list and drops duplicates, keeping the
// first occurrence.
func PrependPath(list string, dirs ...string) string {
	sep := string(os.PathListSeparator)
	entries := append([]string{}, dirs...)
	if list != "" {
		entries = append(entries, strings.Split(list, sep)...)
	}
	return strings.Join(dedupe(entries), sep)
}

// Flatten turns env into sorted KEY=VALUE pairs.
func Flatten(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

func dedupe(entries []string) []string {
	seen := make(map[string]struct{}, len(entries))
	out := entries[:0:0]
	for _, e := range entries {
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

// findKey returns the existing spelling of name in env. Windows treats
// variable names case-insensitively, so "Path" and "PATH" are one variable.
func findKey(env map[string]string, name string) string {
	if _, ok := env[name]; ok {
		return name
	}
	for k := range env {
		if strings.EqualFold(k, name) {
			return k
		}
	}
	return name
}
