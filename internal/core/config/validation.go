package config

import (
	"fmt"
	"time"
)

// Validate checks semantic constraints the schema cannot express.
func Validate(cfg *Config) error {
	if cfg.LastPort < 0 || cfg.LastPort > 65535 {
		return fmt.Errorf("last_port %d out of range", cfg.LastPort)
	}
	if cfg.Server.Package == "" {
		return fmt.Errorf("server.package must not be empty")
	}
	if t := cfg.Server.StartupTimeout.Duration; t < time.Second {
		return fmt.Errorf("server.startup_timeout %s is shorter than 1s", t)
	}
	if g := cfg.Server.GracePeriod.Duration; g < 100*time.Millisecond || g > time.Minute {
		return fmt.Errorf("server.grace_period %s must be between 100ms and 1m", g)
	}
	switch cfg.Environment.Mode {
	case EnvModeShell, EnvModeMinimal:
	default:
		return fmt.Errorf("environment.mode %q must be %q or %q", cfg.Environment.Mode, EnvModeShell, EnvModeMinimal)
	}
	return nil
}
