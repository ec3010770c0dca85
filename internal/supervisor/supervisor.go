// Package supervisor owns the lifecycle of the single web server process:
// spawn, readiness detection from its output, and termination of the whole
// process tree.
package supervisor

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aki/weblaunch/internal/core/config"
	"github.com/aki/weblaunch/internal/core/logger"
	"github.com/aki/weblaunch/internal/environment"
	"github.com/aki/weblaunch/internal/process"
	"github.com/aki/weblaunch/internal/resolver"
)

// State is the supervisor lifecycle state.
type State string

// Supervisor states
const (
	StateIdle        State = "idle"
	StateStarting    State = "starting"
	StateReady       State = "ready"
	StateTerminating State = "terminating"
)

const (
	// waitDelay bounds how long a grandchild holding our pipes can delay
	// observing the child's exit.
	waitDelay = 2 * time.Second
	// reapTimeout bounds waiting for exit after the final sweep.
	reapTimeout = 5 * time.Second
)

// PathResolver supplies the executables to run.
type PathResolver interface {
	GetExecutablePaths(ctx context.Context) (resolver.Paths, error)
}

// EnvironmentBuilder builds the child environment.
type EnvironmentBuilder interface {
	Build(ctx context.Context, req environment.Request) []string
}

// Options tunes a Supervisor. Zero values take the defaults from config.
type Options struct {
	// Args are passed to the package runner
	Args             []string
	StartupTimeout   time.Duration
	GracePeriod      time.Duration
	EnvMode          string
	ExtraEnv         map[string]string
	ResidualPatterns []string
	// WorkDir defaults to the user's home directory
	WorkDir string
	Logger  logger.Logger
}

// StartOptions are per-start parameters.
type StartOptions struct {
	// Port, when set, is exported to the server through the environment
	Port *int
}

// Info is a point-in-time view of the supervisor.
type Info struct {
	State     State
	RunID     string
	PID       int
	URL       string
	StartedAt time.Time
}

// run is one supervised child process.
type run struct {
	id      string
	cmd     *exec.Cmd
	pid     int
	started time.Time
	gate    *readyGate
	stdout  *tailBuffer
	stderr  *tailBuffer
	exited  chan struct{}
	// exitCode is valid once exited is closed
	exitCode int
	waitErr  error
}

func (r *run) wait() {
	r.waitErr = r.cmd.Wait()
	if r.cmd.ProcessState != nil {
		r.exitCode = r.cmd.ProcessState.ExitCode()
	} else {
		r.exitCode = -1
	}
	close(r.exited)
}

func (r *run) hasExited() bool {
	select {
	case <-r.exited:
		return true
	default:
		return false
	}
}

// Supervisor runs at most one server process at a time.
type Supervisor struct {
	resolver PathResolver
	env      EnvironmentBuilder
	killer   process.TreeKiller
	opts     Options
	logger   logger.Logger

	mu       sync.Mutex
	state    State
	current  *run
	pending  *pendingStart
	url      string
	stopping chan struct{}
}

// pendingStart is a Start that has not spawned its child yet.
type pendingStart struct {
	cancel  context.CancelFunc
	stopped bool
	// done is closed once the start either spawned or gave up
	done chan struct{}
}

// New creates an idle Supervisor.
func New(paths PathResolver, env EnvironmentBuilder, killer process.TreeKiller, opts Options) *Supervisor {
	if opts.StartupTimeout <= 0 {
		opts.StartupTimeout = config.DefaultStartupTimeout
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = config.DefaultGracePeriod
	}
	if opts.EnvMode == "" {
		opts.EnvMode = config.EnvModeShell
	}
	if opts.WorkDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			opts.WorkDir = home
		}
	}
	return &Supervisor{
		resolver: paths,
		env:      env,
		killer:   killer,
		opts:     opts,
		logger:   logger.Component(opts.Logger, "supervisor"),
		state:    StateIdle,
	}
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsRunning reports whether a child exists and has not been seen to exit.
func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && !s.current.hasExited()
}

// ServiceURL returns the address reported by the running server.
func (s *Supervisor) ServiceURL() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url, s.url != ""
}

// Done returns a channel closed when the current child exits. With no child
// the channel is already closed.
func (s *Supervisor) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return s.current.exited
}

// Info returns a snapshot for status displays.
func (s *Supervisor) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := Info{State: s.state, URL: s.url}
	if s.current != nil {
		info.RunID = s.current.id
		info.PID = s.current.pid
		info.StartedAt = s.current.started
	}
	return info
}

// abandonLocked ends a start that never spawned. It reports whether Stop
// asked for it.
func (s *Supervisor) abandonLocked(p *pendingStart) bool {
	if s.pending == p {
		s.pending = nil
		s.state = StateIdle
	}
	close(p.done)
	return p.stopped
}

func (s *Supervisor) abandon(p *pendingStart) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.abandonLocked(p)
}

// Start launches the server and blocks until it reports its address, exits,
// times out or ctx is cancelled. Every failure leaves the supervisor idle.
func (s *Supervisor) Start(ctx context.Context, opts StartOptions) (string, error) {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return "", ErrAlreadyRunning
	}
	s.state = StateStarting
	prepCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	p := &pendingStart{cancel: cancel, done: make(chan struct{})}
	s.pending = p
	s.mu.Unlock()

	paths, err := s.resolver.GetExecutablePaths(prepCtx)
	if err != nil {
		if s.abandon(p) {
			return "", stoppedError()
		}
		return "", pathsError(err)
	}

	runner := paths.PackageRunner
	shim := runner.Shim
	if shim == nil {
		shim = paths.Runtime.Shim
	}
	env := s.env.Build(prepCtx, environment.Request{
		Mode:     s.opts.EnvMode,
		ExecPath: runner.Path,
		Port:     opts.Port,
		Shim:     shim,
		Extra:    s.opts.ExtraEnv,
	})

	r := &run{
		id:     uuid.NewString(),
		gate:   newReadyGate(),
		stdout: newTailBuffer(tailSize),
		stderr: newTailBuffer(tailSize),
		exited: make(chan struct{}),
	}
	log := s.logger.With("run_id", r.id)

	cmd := exec.Command(runner.Path, s.opts.Args...)
	cmd.Dir = s.opts.WorkDir
	cmd.Env = env
	cmd.Stdout = &streamWriter{name: "stdout", tail: r.stdout, gate: r.gate, logger: log}
	cmd.Stderr = &streamWriter{name: "stderr", tail: r.stderr, gate: r.gate, logger: log}
	cmd.WaitDelay = waitDelay
	configureProcessGroup(cmd)
	r.cmd = cmd

	// spawn under the lock so Stop either sees the child or cancels the start
	s.mu.Lock()
	if p.stopped {
		s.abandonLocked(p)
		s.mu.Unlock()
		log.Info("start abandoned before spawn")
		return "", stoppedError()
	}
	if err := cmd.Start(); err != nil {
		s.abandonLocked(p)
		s.mu.Unlock()
		log.Error("failed to spawn server", "path", runner.Path, "error", err)
		return "", spawnError(runner.Path, err)
	}
	r.pid = cmd.Process.Pid
	r.started = time.Now()
	s.current = r
	s.pending = nil
	close(p.done)
	s.mu.Unlock()

	go r.wait()
	go s.watch(r)

	log.Info("server starting", "path", runner.Path, "args", s.opts.Args, "pid", r.pid, "dir", cmd.Dir)

	timer := time.NewTimer(s.opts.StartupTimeout)
	defer timer.Stop()

	select {
	case url := <-r.gate.ch:
		s.mu.Lock()
		if s.current != r || s.state != StateStarting {
			s.mu.Unlock()
			return "", s.awaitExternalStop()
		}
		if r.hasExited() {
			s.current, s.url, s.state = nil, "", StateIdle
			s.mu.Unlock()
			log.Warn("server exited right after reporting its address", "exit_code", r.exitCode)
			return "", earlyExitError(r.exitCode, r.stderr.String(), r.stdout.String())
		}
		s.state = StateReady
		s.url = url
		s.mu.Unlock()
		log.Info("server ready", "url", url, "elapsed", time.Since(r.started).Round(time.Millisecond))
		return url, nil

	case <-r.exited:
		s.mu.Lock()
		if s.current != r || s.state != StateStarting {
			s.mu.Unlock()
			return "", s.awaitExternalStop()
		}
		s.current, s.url, s.state = nil, "", StateIdle
		s.mu.Unlock()
		e := earlyExitError(r.exitCode, r.stderr.String(), r.stdout.String())
		log.Warn("server exited before it was ready", "exit_code", r.exitCode, "reason", e.Reason)
		return "", e

	case <-timer.C:
		if !s.beginTerminate(r) {
			return "", s.awaitExternalStop()
		}
		log.Warn("server did not become ready in time", "timeout", s.opts.StartupTimeout)
		s.terminate(r)
		return "", timeoutError(s.opts.StartupTimeout)

	case <-ctx.Done():
		if !s.beginTerminate(r) {
			return "", s.awaitExternalStop()
		}
		log.Info("startup cancelled")
		s.terminate(r)
		return "", ctx.Err()
	}
}

// awaitExternalStop waits for a concurrent Stop to finish tearing down the
// child Start was waiting on.
func (s *Supervisor) awaitExternalStop() error {
	s.mu.Lock()
	ch := s.stopping
	s.mu.Unlock()
	if ch != nil {
		<-ch
	}
	return stoppedError()
}

// watch returns the supervisor to idle when a ready server dies on its own.
func (s *Supervisor) watch(r *run) {
	<-r.exited
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != r || s.state != StateReady {
		return
	}
	s.logger.Warn("server exited", "run_id", r.id, "exit_code", r.exitCode)
	s.current, s.url, s.state = nil, "", StateIdle
}

// beginTerminate claims the teardown of r. It returns false when r is no
// longer current or another caller is already tearing it down.
func (s *Supervisor) beginTerminate(r *run) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != r || s.state == StateTerminating {
		return false
	}
	s.state = StateTerminating
	s.stopping = make(chan struct{})
	return true
}

// Stop terminates the server and every descendant. It is safe to call at any
// time and never fails; problems are logged and covered by the final forced
// sweep. A start that has not spawned yet is cancelled instead. ctx only
// bounds waiting on a teardown or a cancelled start already in progress.
func (s *Supervisor) Stop(ctx context.Context) {
	s.mu.Lock()
	r := s.current
	switch {
	case r == nil && s.pending != nil:
		p := s.pending
		p.stopped = true
		p.cancel()
		s.mu.Unlock()
		select {
		case <-p.done:
		case <-ctx.Done():
		}
		return
	case r == nil:
		s.mu.Unlock()
		return
	case s.state == StateTerminating:
		ch := s.stopping
		s.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
		}
		return
	}
	s.state = StateTerminating
	s.stopping = make(chan struct{})
	s.mu.Unlock()

	s.terminate(r)
}

// terminate sends a graceful signal to the tree, waits for the first of
// exit or the grace period, then always runs the forced sweep.
func (s *Supervisor) terminate(r *run) {
	log := s.logger.With("run_id", r.id, "pid", r.pid)

	// children that moved to their own process group are only reachable
	// through this list once the root is gone
	var desc []int
	if !r.hasExited() {
		var err error
		if desc, err = s.killer.Descendants(r.pid); err != nil {
			log.Warn("failed to enumerate descendants", "error", err)
		}
	}

	if !r.hasExited() {
		if err := s.killer.Terminate(r.pid); err != nil {
			log.Warn("graceful termination failed", "error", err)
		}
	}

	grace := time.NewTimer(s.opts.GracePeriod)
	select {
	case <-r.exited:
		grace.Stop()
		log.Debug("server exited within grace period")
	case <-grace.C:
		log.Warn("server ignored termination, forcing", "grace_period", s.opts.GracePeriod)
	}

	s.sweep(r, desc, log)

	reap := time.NewTimer(reapTimeout)
	select {
	case <-r.exited:
		reap.Stop()
	case <-reap.C:
		log.Error("server did not exit after forced termination")
	}

	s.mu.Lock()
	if s.current == r {
		s.current = nil
		s.url = ""
	}
	s.state = StateIdle
	close(s.stopping)
	s.stopping = nil
	s.mu.Unlock()

	if r.hasExited() {
		log.Info("server stopped", "exit_code", r.exitCode)
	}
}

// sweep forcefully kills the tree, the descendants seen before the graceful
// signal, and anything matching the residual patterns. Once the root has been
// reaped its pid may be reused, so only the group it led is addressed.
func (s *Supervisor) sweep(r *run, desc []int, log logger.Logger) {
	var errs []error
	if r.hasExited() {
		if err := s.killer.KillGroup(r.pid); err != nil {
			errs = append(errs, err)
		}
	} else if err := s.killer.Kill(r.pid); err != nil {
		errs = append(errs, err)
	}
	for _, pid := range desc {
		if err := s.killer.Kill(pid); err != nil {
			errs = append(errs, err)
		}
	}
	if len(s.opts.ResidualPatterns) > 0 {
		if err := s.killer.Sweep(s.opts.ResidualPatterns); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		log.Warn("forced sweep reported errors", "error", err)
	}
}
