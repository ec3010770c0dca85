//go:build !windows

package process

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aki/weblaunch/internal/core/logger"
)

func requireTools(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			t.Skipf("%s not available", name)
		}
	}
}

// startTree starts a shell in its own process group that forks a
// background sleeper and writes its pid to a file.
func startTree(t *testing.T, trapTerm bool) (*exec.Cmd, int) {
	t.Helper()
	pidFile := filepath.Join(t.TempDir(), "child.pid")
	script := "sleep 60 & echo $! > " + pidFile + "; wait"
	if trapTerm {
		script = "trap '' TERM; " + script
	}
	cmd := exec.Command("/bin/sh", "-c", script)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	require.NoError(t, cmd.Start())

	var childPid int
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(pidFile)
		if err != nil {
			return false
		}
		childPid, err = strconv.Atoi(strings.TrimSpace(string(data)))
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	t.Cleanup(func() {
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		_ = syscall.Kill(childPid, syscall.SIGKILL)
		_, _ = cmd.Process.Wait()
	})
	return cmd, childPid
}

func alive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

func waitExit(t *testing.T, cmd *exec.Cmd) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}
}

func TestUnixTreeKiller_Descendants(t *testing.T) {
	requireTools(t, "pgrep")
	k := NewTreeKiller(logger.Nop())

	cmd, childPid := startTree(t, false)

	desc, err := k.Descendants(cmd.Process.Pid)
	require.NoError(t, err)
	assert.Contains(t, desc, childPid)

	has, err := HasChildren(k, cmd.Process.Pid)
	require.NoError(t, err)
	assert.True(t, has)

	// a pid that does not exist has no children
	none, err := k.Descendants(999999)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUnixTreeKiller_TerminateReachesGrandchildren(t *testing.T) {
	requireTools(t, "pgrep")
	k := NewTreeKiller(logger.Nop())

	cmd, childPid := startTree(t, false)
	require.NoError(t, k.Terminate(cmd.Process.Pid))

	waitExit(t, cmd)
	assert.Eventually(t, func() bool { return !alive(childPid) }, 5*time.Second, 20*time.Millisecond)
}

func TestUnixTreeKiller_KillIgnoresTrap(t *testing.T) {
	requireTools(t, "pgrep")
	k := NewTreeKiller(logger.Nop())

	cmd, childPid := startTree(t, true)
	require.NoError(t, k.Kill(cmd.Process.Pid))

	waitExit(t, cmd)
	assert.Eventually(t, func() bool { return !alive(childPid) }, 5*time.Second, 20*time.Millisecond)
}

func TestUnixTreeKiller_KillGroupAfterLeaderReaped(t *testing.T) {
	k := NewTreeKiller(logger.Nop())

	pidFile := filepath.Join(t.TempDir(), "orphan.pid")
	cmd := exec.Command("/bin/sh", "-c", "sleep 60 > /dev/null 2>&1 & echo $! > "+pidFile)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	require.NoError(t, cmd.Run())

	data, err := os.ReadFile(pidFile)
	require.NoError(t, err)
	orphan, err := strconv.Atoi(strings.TrimSpace(string(data)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = syscall.Kill(orphan, syscall.SIGKILL) })
	require.True(t, alive(orphan))

	require.NoError(t, k.KillGroup(cmd.Process.Pid))
	assert.Eventually(t, func() bool { return !alive(orphan) }, 5*time.Second, 20*time.Millisecond)

	// an empty group is not an error
	assert.NoError(t, k.KillGroup(cmd.Process.Pid))
	assert.ErrorIs(t, k.KillGroup(0), ErrNoProcess)
}

func TestUnixTreeKiller_GoneProcessIsNotAnError(t *testing.T) {
	requireTools(t, "pgrep")
	k := NewTreeKiller(logger.Nop())

	cmd := exec.Command("/bin/sh", "-c", "exit 0")
	require.NoError(t, cmd.Run())

	assert.NoError(t, k.Terminate(cmd.Process.Pid))
	assert.NoError(t, k.Kill(cmd.Process.Pid))
	assert.ErrorIs(t, k.Kill(0), ErrNoProcess)
}

func TestUnixTreeKiller_Sweep(t *testing.T) {
	requireTools(t, "pkill")
	k := NewTreeKiller(logger.Nop())

	marker := "weblaunch-sweep-" + strconv.Itoa(os.Getpid())
	cmd := exec.Command("/bin/sh", "-c", "sleep 60; echo "+marker)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	require.NoError(t, cmd.Start())
	t.Cleanup(func() { _ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL) })

	require.NoError(t, k.Sweep([]string{marker, "  "}))
	waitExit(t, cmd)

	// nothing left to match
	assert.NoError(t, k.Sweep([]string{marker}))
}

func TestParsePids(t *testing.T) {
	assert.Equal(t, []int{12, 34}, parsePids("12\n34\nabc\n-1\n"))
	assert.Empty(t, parsePids(""))
}
