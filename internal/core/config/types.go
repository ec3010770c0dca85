package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment modes
const (
	// EnvModeShell captures the login shell environment once per run
	EnvModeShell = "shell"
	// EnvModeMinimal builds an explicit environment from scratch
	EnvModeMinimal = "minimal"
)

// Config is the on-disk launcher configuration.
type Config struct {
	Version     string            `yaml:"version"`
	Paths       Paths             `yaml:"paths"`
	LastPort    int               `yaml:"last_port,omitempty"`
	Server      ServerConfig      `yaml:"server"`
	Environment EnvironmentConfig `yaml:"environment"`
}

// Paths holds the two user-configured executables. Empty means unset.
type Paths struct {
	Runtime       string `yaml:"runtime,omitempty"`
	PackageRunner string `yaml:"package_runner,omitempty"`
}

// Complete reports whether both executables are configured.
func (p Paths) Complete() bool {
	return p.Runtime != "" && p.PackageRunner != ""
}

// ServerConfig describes how the web server is invoked and supervised.
type ServerConfig struct {
	// Package is the package the runner executes
	Package string `yaml:"package"`
	// RunnerArgs precede the package name, e.g. "-y" to skip install prompts
	RunnerArgs []string `yaml:"runner_args,omitempty"`
	// Args follow the package name
	Args             []string `yaml:"args,omitempty"`
	StartupTimeout   Duration `yaml:"startup_timeout,omitempty"`
	GracePeriod      Duration `yaml:"grace_period,omitempty"`
	PortEnv          string   `yaml:"port_env,omitempty"`
	BrowserEnv       string   `yaml:"browser_env,omitempty"`
	BrowserEnvValue  string   `yaml:"browser_env_value,omitempty"`
	ResidualPatterns []string `yaml:"residual_patterns,omitempty"`
}

// Invocation returns the runner arguments: runner args, package, then args.
func (s ServerConfig) Invocation() []string {
	out := make([]string, 0, len(s.RunnerArgs)+1+len(s.Args))
	out = append(out, s.RunnerArgs...)
	out = append(out, s.Package)
	return append(out, s.Args...)
}

// EnvironmentConfig controls how the child environment is built.
type EnvironmentConfig struct {
	Mode  string            `yaml:"mode,omitempty"`
	Extra map[string]string `yaml:"extra,omitempty"`
}

// Duration is a time.Duration that reads and writes as "60s" in YAML.
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string like \"60s\": %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	if d.Duration == 0 {
		return nil, nil
	}
	return d.Duration.String(), nil
}

// Defaults applied by Load.
const (
	DefaultPackage         = "http-server"
	DefaultStartupTimeout  = 60 * time.Second
	DefaultGracePeriod     = 4 * time.Second
	DefaultPortEnv         = "PORT"
	DefaultBrowserEnv      = "BROWSER"
	DefaultBrowserEnvValue = "none"
)

// DefaultConfig returns a configuration with no executables set.
func DefaultConfig() *Config {
	cfg := &Config{Version: "1.0"}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == "" {
		cfg.Version = "1.0"
	}
	s := &cfg.Server
	if s.Package == "" {
		s.Package = DefaultPackage
	}
	if s.RunnerArgs == nil {
		s.RunnerArgs = []string{"-y"}
	}
	if s.StartupTimeout.Duration == 0 {
		s.StartupTimeout.Duration = DefaultStartupTimeout
	}
	if s.GracePeriod.Duration == 0 {
		s.GracePeriod.Duration = DefaultGracePeriod
	}
	if s.PortEnv == "" {
		s.PortEnv = DefaultPortEnv
	}
	if s.BrowserEnv == "" {
		s.BrowserEnv = DefaultBrowserEnv
	}
	if s.BrowserEnvValue == "" {
		s.BrowserEnvValue = DefaultBrowserEnvValue
	}
	if s.ResidualPatterns == nil {
		s.ResidualPatterns = defaultResidualPatterns(s.Package)
	}
	if cfg.Environment.Mode == "" {
		cfg.Environment.Mode = EnvModeShell
	}
}
