//go:build !windows

package environment

import (
	"context"
	"os/exec"
)

// loginShellCommand runs the shell as an interactive login shell so both
// profile and rc files are sourced, then dumps the environment.
func loginShellCommand(ctx context.Context, shell string) (*exec.Cmd, error) {
	return exec.CommandContext(ctx, shell, "-ilc", "env"), nil
}
