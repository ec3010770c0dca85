// Package environment builds the environment the supervised server runs
// with. Applications started from a desktop shell inherit a bare
// environment, so the user's login shell is consulted once per run.
package environment

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aki/weblaunch/internal/core/logger"
)

// DefaultSnapshotTimeout bounds the login shell invocation.
const DefaultSnapshotTimeout = 5 * time.Second

var envKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Snapshotter captures the login shell environment once and serves copies
// of it afterwards.
type Snapshotter struct {
	shell   string
	timeout time.Duration
	logger  logger.Logger

	once sync.Once
	env  map[string]string
	// fromShell is false when the snapshot fell back to os.Environ
	fromShell atomic.Bool
}

// SnapshotOption configures a Snapshotter.
type SnapshotOption func(*Snapshotter)

// WithShell overrides the shell; the default is $SHELL, then /bin/sh.
func WithShell(path string) SnapshotOption {
	return func(s *Snapshotter) { s.shell = path }
}

// WithTimeout overrides the 5s capture timeout.
func WithTimeout(d time.Duration) SnapshotOption {
	return func(s *Snapshotter) { s.timeout = d }
}

// WithSnapshotLogger sets the logger.
func WithSnapshotLogger(l logger.Logger) SnapshotOption {
	return func(s *Snapshotter) { s.logger = logger.Component(l, "environment") }
}

// NewSnapshotter creates a Snapshotter. Nothing runs until Snapshot.
func NewSnapshotter(opts ...SnapshotOption) *Snapshotter {
	s := &Snapshotter{
		shell:   os.Getenv("SHELL"),
		timeout: DefaultSnapshotTimeout,
		logger:  logger.Nop(),
	}
	if s.shell == "" {
		s.shell = "/bin/sh"
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the cached environment, capturing it on first
// use. Failures are not errors: the launcher's own environment is used.
// The capture outlives a cancelled ctx since its result is cached for every
// later caller; only the capture timeout bounds it.
func (s *Snapshotter) Snapshot(ctx context.Context) map[string]string {
	s.once.Do(func() {
		env, err := s.capture(context.WithoutCancel(ctx))
		if err != nil {
			s.logger.Debug("login shell environment unavailable, using own environment", "shell", s.shell, "error", err)
			s.env = ParseEnviron(os.Environ())
			return
		}
		s.env = env
		s.fromShell.Store(true)
		s.logger.Debug("captured login shell environment", "shell", s.shell, "vars", len(env))
	})
	return copyEnv(s.env)
}

// FromShell reports whether the cached snapshot came from the login shell.
func (s *Snapshotter) FromShell() bool {
	return s.fromShell.Load()
}

func (s *Snapshotter) capture(ctx context.Context) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd, err := loginShellCommand(ctx, s.shell)
	if err != nil {
		return nil, err
	}
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	// an rc file that backgrounds something must not hold us past the timeout
	cmd.WaitDelay = 500 * time.Millisecond

	if err := cmd.Run(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return ParseDump(stdout.Bytes()), nil
}

// ParseDump parses `env` output. Lines without a valid KEY= prefix, such as
// banners printed by rc files, are skipped.
func ParseDump(out []byte) map[string]string {
	env := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), "=")
		if !ok || !envKeyPattern.MatchString(key) {
			continue
		}
		env[key] = strings.TrimRight(value, "\r")
	}
	return env
}

// ParseEnviron converts os.Environ style pairs to a map.
func ParseEnviron(pairs []string) map[string]string {
	env := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

func copyEnv(env map[string]string) map[string]string {
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}
