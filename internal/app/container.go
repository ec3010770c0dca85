// Package app provides dependency injection container for the application
package app

import (
	"context"
	"fmt"

	"github.com/aki/weblaunch/internal/core/config"
	"github.com/aki/weblaunch/internal/core/logger"
	"github.com/aki/weblaunch/internal/environment"
	"github.com/aki/weblaunch/internal/process"
	"github.com/aki/weblaunch/internal/resolver"
	"github.com/aki/weblaunch/internal/supervisor"
)

// Container holds the launcher components and their dependencies
type Container struct {
	// ConfigDir is the directory holding config.yaml
	ConfigDir string

	// Config as loaded when the container was built
	Config *config.Config

	ConfigManager *config.Manager
	Resolver      *resolver.Resolver
	Environment   *environment.Builder
	TreeKiller    process.TreeKiller
	Supervisor    *supervisor.Supervisor

	Logger logger.Logger
}

// NewContainer loads the configuration in configDir and wires every
// component in dependency order. An empty configDir uses config.DefaultDir.
func NewContainer(ctx context.Context, configDir string, log logger.Logger) (*Container, error) {
	if configDir == "" {
		dir, err := config.DefaultDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}
	if log == nil {
		log = logger.Nop()
	}

	c := &Container{
		ConfigDir: configDir,
		Logger:    log,
	}

	// Config first; everything else is derived from it
	c.ConfigManager = config.NewManager(configDir)
	cfg, err := c.ConfigManager.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg

	c.Resolver = resolver.New(c.ConfigManager, resolver.WithLogger(log))

	snapshot := environment.NewSnapshotter(environment.WithSnapshotLogger(log))
	c.Environment = environment.NewBuilder(snapshot,
		cfg.Server.PortEnv, cfg.Server.BrowserEnv, cfg.Server.BrowserEnvValue)

	// Platform implementation is chosen by build tags
	c.TreeKiller = process.NewTreeKiller(log)

	c.Supervisor = supervisor.New(c.Resolver, c.Environment, c.TreeKiller, supervisor.Options{
		Args:             cfg.Server.Invocation(),
		StartupTimeout:   cfg.Server.StartupTimeout.Duration,
		GracePeriod:      cfg.Server.GracePeriod.Duration,
		EnvMode:          cfg.Environment.Mode,
		ExtraEnv:         cfg.Environment.Extra,
		ResidualPatterns: cfg.Server.ResidualPatterns,
		Logger:           log,
	})

	return c, nil
}

// NewConfigOnly creates a container with only the config manager. Commands
// that edit the configuration use it so an invalid file can still be fixed.
func NewConfigOnly(configDir string) (*Container, error) {
	if configDir == "" {
		dir, err := config.DefaultDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}
	return &Container{
		ConfigDir:     configDir,
		ConfigManager: config.NewManager(configDir),
		Logger:        logger.Nop(),
	}, nil
}
