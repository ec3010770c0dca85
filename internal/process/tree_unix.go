//go:build !windows

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

// unixTreeKiller enumerates descendants with pgrep and signals each one,
// plus the process group the root leads.
type unixTreeKiller struct {
	logger logger.Logger
}

// NewTreeKiller returns the TreeKiller for this platform.
func NewTreeKiller(l logger.Logger) TreeKiller {
	return &unixTreeKiller{logger: logger.Component(l, "process")}
}

func (k *unixTreeKiller) Terminate(pid int) error {
	return k.signalTree(pid, syscall.SIGTERM)
}

func (k *unixTreeKiller) Kill(pid int) error {
	return k.signalTree(pid, syscall.SIGKILL)
}

func (k *unixTreeKiller) KillGroup(pgid int) error {
	if pgid <= 0 {
		return ErrNoProcess
	}
	if err := signal(-pgid, syscall.SIGKILL); err != nil {
		return fmt.Errorf("signal process group %d: %w", pgid, err)
	}
	return nil
}

func (k *unixTreeKiller) signalTree(pid int, sig syscall.Signal) error {
	if pid <= 0 {
		return ErrNoProcess
	}

	// Enumerate before signalling: once the root dies its children are
	// reparented and no longer reachable through pgrep -P.
	desc, err := k.Descendants(pid)
	if err != nil {
		k.logger.Warn("failed to enumerate descendants", "pid", pid, "error", err)
	}

	var errs []error
	if err := signal(-pid, sig); err != nil {
		errs = append(errs, fmt.Errorf("signal process group %d: %w", pid, err))
	}
	for _, child := range desc {
		if err := signal(child, sig); err != nil {
			errs = append(errs, fmt.Errorf("signal descendant %d: %w", child, err))
		}
	}
	if err := signal(pid, sig); err != nil {
		errs = append(errs, fmt.Errorf("signal process %d: %w", pid, err))
	}

	k.logger.Debug("signalled process tree", "pid", pid, "signal", sig.String(), "descendants", len(desc))
	return errors.Join(errs...)
}

// signal treats an already-gone process as success.
func signal(pid int, sig syscall.Signal) error {
	err := syscall.Kill(pid, sig)
	if err == nil || errors.Is(err, syscall.ESRCH) {
		return nil
	}
	// EPERM on a group id usually means the group no longer has members
	// we own; the per-pid signals cover the rest.
	if pid < 0 && errors.Is(err, syscall.EPERM) {
		return nil
	}
	return err
}

func (k *unixTreeKiller) Descendants(pid int) ([]int, error) {
	var out []int
	seen := map[int]bool{pid: true}
	queue := []int{pid}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]

		children, err := childrenOf(parent)
		if err != nil {
			return out, err
		}
		for _, c := range children {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out, nil
}

// childrenOf lists direct children with pgrep -P. pgrep exits 1 when
// nothing matches.
func childrenOf(pid int) ([]int, error) {
	output, err := exec.Command("pgrep", "-P", strconv.Itoa(pid)).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list children of %d: %w", pid, err)
	}
	return parsePids(string(output)), nil
}

func parsePids(output string) []int {
	var pids []int
	for _, field := range strings.Fields(output) {
		if n, err := strconv.Atoi(field); err == nil && n > 0 {
			pids = append(pids, n)
		}
	}
	return pids
}

func (k *unixTreeKiller) Sweep(patterns []string) error {
	var errs []error
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		err := exec.Command("pkill", "-KILL", "-f", p).Run()
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
				continue
			}
			errs = append(errs, fmt.Errorf("pkill %q: %w", p, err))
			continue
		}
		k.logger.Info("swept residual processes", "pattern", p)
	}
	return errors.Join(errs...)
}
