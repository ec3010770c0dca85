//go:build windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup starts the child in its own process group without a
// console window; taskkill /T handles the tree.
func configureProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.HideWindow = true
	cmd.SysProcAttr.CreationFlags |= syscall.CREATE_NEW_PROCESS_GROUP
}
