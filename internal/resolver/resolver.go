// Package resolver turns configured executable locations into concrete
// paths, following version-manager shims to the binaries they stand for.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aki/weblaunch/internal/core/config"
	"github.com/aki/weblaunch/internal/core/logger"
)

// ErrPathsNotConfigured means the runtime or package runner has not been set
var ErrPathsNotConfigured = errors.New("executable paths are not configured")

// DefaultRuntimeTool names the runtime whose version directories hold both
// executables.
const DefaultRuntimeTool = "node"

// PathSource supplies the user-configured executable paths.
type PathSource interface {
	GetExecutablePaths(ctx context.Context) (config.Paths, error)
}

// ExecutableRef is a logical tool and the path chosen for it.
type ExecutableRef struct {
	Name string `json:"name"`
	// Configured is the path as the user set it
	Configured string `json:"configured"`
	// Path is the path to execute; equal to Configured when no shim applied
	Path string `json:"path"`
	// Resolved is true when Path existed and was executable at resolution time
	Resolved bool `json:"resolved"`
	// Shim is set when Configured lives in a version manager's shim directory
	Shim *ShimInfo `json:"shim,omitempty"`
}

// Paths holds the two executables the launcher needs.
type Paths struct {
	Runtime       ExecutableRef `json:"runtime"`
	PackageRunner ExecutableRef `json:"package_runner"`
}

// Resolver resolves executable paths.
type Resolver struct {
	source   PathSource
	managers []ShimManager
	userHome string
	tool     string
	logger   logger.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithShimManagers replaces the known version managers.
func WithShimManagers(managers ...ShimManager) Option {
	return func(r *Resolver) { r.managers = managers }
}

// WithUserHome overrides the user's home directory.
func WithUserHome(dir string) Option {
	return func(r *Resolver) { r.userHome = dir }
}

// WithRuntimeTool sets the tool name used to locate version directories.
func WithRuntimeTool(tool string) Option {
	return func(r *Resolver) { r.tool = tool }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) { r.logger = logger.Component(l, "resolver") }
}

// New creates a Resolver reading configured paths from source.
func New(source PathSource, opts ...Option) *Resolver {
	home, _ := os.UserHomeDir()
	r := &Resolver{
		source:   source,
		managers: DefaultShimManagers(),
		userHome: home,
		tool:     DefaultRuntimeTool,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DetectShim reports which version manager owns path, if any.
func (r *Resolver) DetectShim(path string) (*ShimInfo, bool) {
	if path == "" {
		return nil, false
	}
	for _, m := range r.managers {
		home := m.home(r.userHome)
		shimDir := filepath.Join(home, m.ShimSubdir)
		if isUnder(path, shimDir) {
			return &ShimInfo{
				Manager: m.Name,
				HomeEnv: m.HomeEnv,
				Home:    home,
				ShimDir: shimDir,
			}, true
		}
	}
	return nil, false
}

// ResolveShim returns the real binary behind configuredPath when it is a
// version-manager shim, choosing the highest installed version of toolName.
// Anything that cannot be resolved yields configuredPath unchanged.
func (r *Resolver) ResolveShim(configuredPath, toolName string) string {
	path, _ := r.resolveShim(configuredPath, toolName)
	return path
}

func (r *Resolver) resolveShim(configuredPath, toolName string) (string, *ShimInfo) {
	info, ok := r.DetectShim(configuredPath)
	if !ok {
		return configuredPath, nil
	}

	var m ShimManager
	for _, candidate := range r.managers {
		if candidate.Name == info.Manager {
			m = candidate
			break
		}
	}

	root := m.VersionsRoot(info.Home, toolName)
	versions := listVersions(root)
	if len(versions) == 0 {
		r.logger.Debug("no installed versions behind shim", "path", configuredPath, "root", root)
		return configuredPath, info
	}

	candidate := filepath.Join(root, versions[0], m.BinSubdir, filepath.Base(configuredPath))
	if _, err := os.Stat(candidate); err != nil {
		r.logger.Debug("shim target missing", "path", configuredPath, "candidate", candidate)
		return configuredPath, info
	}

	info.Version = versions[0]
	r.logger.Debug("resolved shim", "manager", info.Manager, "version", info.Version, "path", candidate)
	return candidate, info
}

// Resolve builds an ExecutableRef for one configured path.
func (r *Resolver) Resolve(name, configuredPath string) ExecutableRef {
	path, shim := r.resolveShim(configuredPath, r.tool)
	return ExecutableRef{
		Name:       name,
		Configured: configuredPath,
		Path:       path,
		Resolved:   isExecutable(path),
		Shim:       shim,
	}
}

// GetExecutablePaths reads both configured paths and resolves them. It fails
// with ErrPathsNotConfigured when either is unset.
func (r *Resolver) GetExecutablePaths(ctx context.Context) (Paths, error) {
	configured, err := r.source.GetExecutablePaths(ctx)
	if err != nil {
		return Paths{}, fmt.Errorf("failed to read executable paths: %w", err)
	}
	switch {
	case configured.Runtime == "" && configured.PackageRunner == "":
		return Paths{}, ErrPathsNotConfigured
	case configured.Runtime == "":
		return Paths{}, fmt.Errorf("runtime: %w", ErrPathsNotConfigured)
	case configured.PackageRunner == "":
		return Paths{}, fmt.Errorf("package runner: %w", ErrPathsNotConfigured)
	}

	return Paths{
		Runtime:       r.Resolve("runtime", configured.Runtime),
		PackageRunner: r.Resolve("package-runner", configured.PackageRunner),
	}, nil
}
