// Package config stores the launcher settings: the two executable paths,
// the last port used and how the web server is invoked.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aki/weblaunch/internal/filemanager"
)

const (
	// AppDir is the directory name under the user config directory
	AppDir = "weblaunch"
	// ConfigFile is the configuration filename
	ConfigFile = "config.yaml"
	// DirEnv overrides the configuration directory
	DirEnv = "WEBLAUNCH_CONFIG_DIR"
)

// Manager loads and persists the configuration file.
type Manager struct {
	configPath string
	files      *filemanager.Manager[Config]
}

// NewManager creates a Manager for the configuration in dir.
func NewManager(dir string) *Manager {
	return &Manager{
		configPath: filepath.Join(dir, ConfigFile),
		files:      filemanager.NewManager[Config](filemanager.WithValidator(ValidateYAML)),
	}
}

// DefaultDir returns $WEBLAUNCH_CONFIG_DIR, or weblaunch under the user
// config directory.
func DefaultDir() (string, error) {
	if dir := os.Getenv(DirEnv); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(base, AppDir), nil
}

// GetConfigPath returns the configuration file path.
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// Load reads the configuration. A missing file yields the defaults.
func (m *Manager) Load(ctx context.Context) (*Config, error) {
	cfg, _, err := m.files.Read(ctx, m.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("invalid configuration %s: %w", m.configPath, err)
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", m.configPath, err)
	}
	return cfg, nil
}

// Save writes cfg after validating it.
func (m *Manager) Save(ctx context.Context, cfg *Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if err := m.files.Write(ctx, m.configPath, cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (m *Manager) update(ctx context.Context, fn func(cfg *Config) error) error {
	return m.files.Update(ctx, m.configPath, func(cfg *Config) error {
		applyDefaults(cfg)
		if err := fn(cfg); err != nil {
			return err
		}
		return Validate(cfg)
	})
}

// GetExecutablePaths returns the configured runtime and package runner.
// Unset entries are empty.
func (m *Manager) GetExecutablePaths(ctx context.Context) (Paths, error) {
	cfg, err := m.Load(ctx)
	if err != nil {
		return Paths{}, err
	}
	return cfg.Paths, nil
}

// PersistPaths stores both executable paths.
func (m *Manager) PersistPaths(ctx context.Context, runtimePath, packageRunner string) error {
	return m.update(ctx, func(cfg *Config) error {
		cfg.Paths = Paths{Runtime: runtimePath, PackageRunner: packageRunner}
		return nil
	})
}

// GetLastPort returns the last port a server was started on, if any.
func (m *Manager) GetLastPort(ctx context.Context) (int, bool, error) {
	cfg, err := m.Load(ctx)
	if err != nil {
		return 0, false, err
	}
	return cfg.LastPort, cfg.LastPort != 0, nil
}

// SetLastPort records the port for the next run.
func (m *Manager) SetLastPort(ctx context.Context, port int) error {
	return m.update(ctx, func(cfg *Config) error {
		cfg.LastPort = port
		return nil
	})
}
