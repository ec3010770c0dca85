// Package process terminates process trees. A supervised package runner
// usually forks the real server, so signalling only the direct child
// leaves orphans behind.
package process

import "errors"

// ErrNoProcess is returned for a pid that does not identify a process
var ErrNoProcess = errors.New("no such process")

// TreeKiller signals a process and all of its descendants.
type TreeKiller interface {
	// Terminate asks the tree rooted at pid to exit.
	Terminate(pid int) error
	// Kill forcefully ends the tree rooted at pid.
	Kill(pid int) error
	// KillGroup forcefully ends the process group led by pgid without
	// touching pgid itself as a process id.
	KillGroup(pgid int) error
	// Sweep forcefully ends processes whose command line matches any of
	// patterns. It is a best-effort cleanup for workers that escaped the tree.
	Sweep(patterns []string) error
	// Descendants lists the live descendants of pid, children first.
	Descendants(pid int) ([]int, error)
}

// HasChildren reports whether pid has at least one live child.
func HasChildren(k TreeKiller, pid int) (bool, error) {
	desc, err := k.Descendants(pid)
	if err != nil {
		return false, err
	}
	return len(desc) > 0, nil
}
