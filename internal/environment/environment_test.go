package environment

import (
	"context"
	"os"
	"path/filepath"
	stdruntime "runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aki/weblaunch/internal/core/config"
	"github.com/aki/weblaunch/internal/resolver"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if stdruntime.GOOS == "windows" {
		t.Skip("login shell snapshots are unix only")
	}
}

// fakeShell writes a script that ignores its arguments, records each call
// in calls, and runs body.
func fakeShell(t *testing.T, body string) (shell, calls string) {
	t.Helper()
	dir := t.TempDir()
	shell = filepath.Join(dir, "fakesh")
	calls = filepath.Join(dir, "calls")
	script := "#!/bin/sh\necho x >> " + calls + "\n" + body + "\n"
	require.NoError(t, os.WriteFile(shell, []byte(script), 0o755))
	return shell, calls
}

func callCount(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	return strings.Count(string(data), "x\n")
}

func envMap(pairs []string) map[string]string {
	return ParseEnviron(pairs)
}

func TestParseDump(t *testing.T) {
	out := []byte("Welcome to zsh!\nPATH=/usr/bin:/bin\nEMPTY=\nURL=http://x/?a=b\n=bogus\n1BAD=x\nCRLF=yes\r\n")
	env := ParseDump(out)

	assert.Equal(t, "/usr/bin:/bin", env["PATH"])
	assert.Equal(t, "", env["EMPTY"])
	assert.Equal(t, "http://x/?a=b", env["URL"])
	assert.Equal(t, "yes", env["CRLF"])
	assert.NotContains(t, env, "1BAD")
	assert.Len(t, env, 4)
}

func TestSnapshotter_CachesFirstCapture(t *testing.T) {
	skipOnWindows(t)
	shell, calls := fakeShell(t, "echo SNAP_MARKER=from-shell\necho PATH=/shell/bin")

	s := NewSnapshotter(WithShell(shell))
	first := s.Snapshot(context.Background())
	second := s.Snapshot(context.Background())

	assert.Equal(t, "from-shell", first["SNAP_MARKER"])
	assert.Equal(t, first, second)
	assert.True(t, s.FromShell())
	assert.Equal(t, 1, callCount(t, calls))

	// callers get copies
	first["SNAP_MARKER"] = "mutated"
	assert.Equal(t, "from-shell", s.Snapshot(context.Background())["SNAP_MARKER"])
}

func TestSnapshotter_CancelledCallerStillCaptures(t *testing.T) {
	skipOnWindows(t)
	shell, calls := fakeShell(t, "sleep 0.2\necho SNAP_MARKER=from-shell")
	s := NewSnapshotter(WithShell(shell))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	env := s.Snapshot(ctx)

	assert.Equal(t, "from-shell", env["SNAP_MARKER"])
	assert.True(t, s.FromShell())
	assert.Equal(t, "from-shell", s.Snapshot(context.Background())["SNAP_MARKER"])
	assert.Equal(t, 1, callCount(t, calls))
}

func TestSnapshotter_FromShellDuringCapture(t *testing.T) {
	skipOnWindows(t)
	shell, _ := fakeShell(t, "sleep 0.2\necho SNAP_MARKER=from-shell")
	s := NewSnapshotter(WithShell(shell))

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Snapshot(context.Background())
	}()
	for range 20 {
		_ = s.FromShell()
		time.Sleep(5 * time.Millisecond)
	}
	<-done
	assert.True(t, s.FromShell())
}

func TestSnapshotter_FallsBackOnFailure(t *testing.T) {
	skipOnWindows(t)
	t.Setenv("WEBLAUNCH_OWN_ENV", "own")

	t.Run("non-zero exit", func(t *testing.T) {
		shell, _ := fakeShell(t, "echo SNAP_MARKER=from-shell\nexit 3")
		s := NewSnapshotter(WithShell(shell))
		env := s.Snapshot(context.Background())
		assert.False(t, s.FromShell())
		assert.Equal(t, "own", env["WEBLAUNCH_OWN_ENV"])
		assert.NotContains(t, env, "SNAP_MARKER")
	})

	t.Run("missing shell", func(t *testing.T) {
		s := NewSnapshotter(WithShell(filepath.Join(t.TempDir(), "nope")))
		env := s.Snapshot(context.Background())
		assert.False(t, s.FromShell())
		assert.Equal(t, "own", env["WEBLAUNCH_OWN_ENV"])
	})

	t.Run("timeout", func(t *testing.T) {
		shell, calls := fakeShell(t, "sleep 5\necho SNAP_MARKER=late")
		s := NewSnapshotter(WithShell(shell), WithTimeout(200*time.Millisecond))

		start := time.Now()
		env := s.Snapshot(context.Background())
		assert.Less(t, time.Since(start), 3*time.Second)
		assert.NotContains(t, env, "SNAP_MARKER")

		// the fallback is cached too
		s.Snapshot(context.Background())
		assert.Equal(t, 1, callCount(t, calls))
	})
}

func TestBuilder_ShellMode(t *testing.T) {
	skipOnWindows(t)
	shell, _ := fakeShell(t, "echo PATH=/usr/bin:/opt/tools/bin\necho HOME=/home/someone")
	b := NewBuilder(NewSnapshotter(WithShell(shell)), "PORT", "BROWSER", "none")

	port := 4321
	env := envMap(b.Build(context.Background(), Request{
		Mode:     config.EnvModeShell,
		ExecPath: "/opt/node/bin/npx",
		Port:     &port,
	}))

	assert.Equal(t, "/opt/node/bin:/usr/bin:/opt/tools/bin", env["PATH"])
	assert.Equal(t, "/home/someone", env["HOME"])
	assert.Equal(t, "none", env["BROWSER"])
	assert.Equal(t, "4321", env["PORT"])
}

func TestBuilder_NoPortWhenNotRequested(t *testing.T) {
	skipOnWindows(t)
	shell, _ := fakeShell(t, "echo PATH=/usr/bin")
	b := NewBuilder(NewSnapshotter(WithShell(shell)), "PORT", "BROWSER", "none")

	env := envMap(b.Build(context.Background(), Request{Mode: config.EnvModeShell, ExecPath: "/usr/bin/npx"}))
	assert.NotContains(t, env, "PORT")
	assert.Equal(t, "/usr/bin", env["PATH"])
}

func TestBuilder_MinimalModeWithShim(t *testing.T) {
	skipOnWindows(t)
	b := NewBuilder(nil, "PORT", "BROWSER", "none")

	env := envMap(b.Build(context.Background(), Request{
		Mode:     config.EnvModeMinimal,
		ExecPath: "/home/u/.volta/tools/image/node/20.0.0/bin/npx",
		Shim: &resolver.ShimInfo{
			Manager: "volta",
			HomeEnv: "VOLTA_HOME",
			Home:    "/home/u/.volta",
			ShimDir: "/home/u/.volta/bin",
		},
		Extra: map[string]string{"NODE_ENV": "production"},
	}))

	entries := strings.Split(env["PATH"], ":")
	require.GreaterOrEqual(t, len(entries), 3)
	assert.Equal(t, "/home/u/.volta/tools/image/node/20.0.0/bin", entries[0])
	assert.Equal(t, "/home/u/.volta/bin", entries[1])
	assert.Contains(t, entries, "/usr/bin")
	assert.Equal(t, "/home/u/.volta", env["VOLTA_HOME"])
	assert.Equal(t, "production", env["NODE_ENV"])
	assert.NotEmpty(t, env["TMPDIR"])
	assert.NotEmpty(t, env["SHELL"])
	assert.Equal(t, "none", env["BROWSER"])
}

func TestPrependPath(t *testing.T) {
	sep := string(os.PathListSeparator)
	got := PrependPath("/a"+sep+"/b"+sep+"/a", "/b", "/c")
	assert.Equal(t, "/b"+sep+"/c"+sep+"/a", got)
	assert.Equal(t, "/x", PrependPath("", "/x", ""))
}

func TestFlattenSorted(t *testing.T) {
	assert.Equal(t, []string{"A=1", "B=2"}, Flatten(map[string]string{"B": "2", "A": "1"}))
}
