//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup puts the child in a new process group so the whole
// tree can be signalled through its pid.
func configureProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}
