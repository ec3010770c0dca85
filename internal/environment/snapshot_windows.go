//go:build windows

package environment

import (
	"context"
	"errors"
	"os/exec"
)

var errNoLoginShell = errors.New("login shell snapshot not supported on windows")

// loginShellCommand is unsupported; GUI processes on Windows already see
// the user environment from the registry.
func loginShellCommand(context.Context, string) (*exec.Cmd, error) {
	return nil, errNoLoginShell
}
