//go:build windows

package process

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"github.com/aki/weblaunch/internal/core/logger"
)

// windowsTreeKiller delegates to taskkill, which walks the tree itself.
type windowsTreeKiller struct {
	logger logger.Logger
}

// NewTreeKiller returns the TreeKiller for this platform.
func NewTreeKiller(l logger.Logger) TreeKiller {
	return &windowsTreeKiller{logger: logger.Component(l, "process")}
}

// taskkill exits 128 when the process does not exist.
const taskkillNotFound = 128

func (k *windowsTreeKiller) Terminate(pid int) error {
	return k.taskkill(pid, false)
}

func (k *windowsTreeKiller) Kill(pid int) error {
	return k.taskkill(pid, true)
}

// KillGroup has nothing to address on Windows once the group leader is gone:
// taskkill only walks trees from a live pid.
func (k *windowsTreeKiller) KillGroup(pgid int) error {
	if pgid <= 0 {
		return ErrNoProcess
	}
	k.logger.Debug("no process group to kill", "pgid", pgid)
	return nil
}

func (k *windowsTreeKiller) taskkill(pid int, force bool) error {
	if pid <= 0 {
		return ErrNoProcess
	}
	args := []string{"/PID", strconv.Itoa(pid), "/T"}
	if force {
		args = append(args, "/F")
	}
	cmd := exec.Command("taskkill", args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == taskkillNotFound {
			return nil
		}
		return fmt.Errorf("taskkill %v: %w", args, err)
	}
	return nil
}

func (k *windowsTreeKiller) Sweep(patterns []string) error {
	var errs []error
	for _, p := range patterns {
		name := strings.TrimSpace(p)
		if name == "" {
			continue
		}
		if !strings.Contains(name, ".") {
			name += ".exe"
		}
		cmd := exec.Command("taskkill", "/F", "/T", "/IM", name)
		cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
		if err := cmd.Run(); err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) && exitErr.ExitCode() == taskkillNotFound {
				continue
			}
			errs = append(errs, fmt.Errorf("taskkill /IM %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Descendants walks the parent links reported by wmic-free PowerShell.
func (k *windowsTreeKiller) Descendants(pid int) ([]int, error) {
	script := "Get-CimInstance Win32_Process | ForEach-Object { \"$($_.ProcessId) $($_.ParentProcessId)\" }"
	cmd := exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	children := map[int][]int{}
	for _, line := range strings.Split(string(output), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		child, err1 := strconv.Atoi(fields[0])
		parent, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil || child == parent {
			continue
		}
		children[parent] = append(children[parent], child)
	}

	var out []int
	seen := map[int]bool{pid: true}
	queue := []int{pid}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		for _, c := range children[parent] {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
				queue = append(queue, c)
			}
		}
	}
	return out, nil
}
