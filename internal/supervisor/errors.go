package supervisor

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aki/weblaunch/internal/resolver"
)

var (
	// ErrPathsNotConfigured means the runtime or package runner is unset
	ErrPathsNotConfigured = resolver.ErrPathsNotConfigured

	// ErrSpawnFailure means the child could not be started at all
	ErrSpawnFailure = errors.New("failed to spawn server")

	// ErrStartupTimeout means no URL was reported within the startup timeout
	ErrStartupTimeout = errors.New("server startup timed out")

	// ErrEarlyExit means the child exited before reporting a URL
	ErrEarlyExit = errors.New("server exited before it was ready")

	// ErrAlreadyRunning is returned by Start when a server is starting or running
	ErrAlreadyRunning = errors.New("server is already running")
)

// ExitReason classifies an early exit.
type ExitReason string

// Early exit classifications
const (
	ReasonNone         ExitReason = ""
	ReasonPortInUse    ExitReason = "port_in_use"
	ReasonToolNotFound ExitReason = "tool_not_found"
	ReasonStopped      ExitReason = "stopped"
	ReasonUnknown      ExitReason = "unknown"
)

// StartError is returned by Start. Kind is one of the sentinel errors above,
// so callers can use errors.Is; Message is meant for the user.
type StartError struct {
	Kind     error
	Reason   ExitReason
	Message  string
	ExitCode int
	Err      error
}

func (e *StartError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Is matches the error kind.
func (e *StartError) Is(target error) bool {
	return target == e.Kind
}

func (e *StartError) Unwrap() error {
	return e.Err
}

const maxDiagnosticLen = 500

var (
	portInUsePattern = regexp.MustCompile(`(?i)EADDRINUSE|address already in use|port \d+ is (already )?in use`)
	notFoundPattern  = regexp.MustCompile(`(?i)command not found|ENOENT|No such file or directory|is not recognized as an internal or external command|could not determine executable to run|E404`)
)

func pathsError(err error) *StartError {
	return &StartError{
		Kind:    ErrPathsNotConfigured,
		Message: "Runtime and package runner paths are not configured. Run 'weblaunch config discover' or 'weblaunch config set-paths'",
		Err:     err,
	}
}

func spawnError(path string, err error) *StartError {
	return &StartError{
		Kind:    ErrSpawnFailure,
		Message: fmt.Sprintf("Could not launch %s. Check that the package runner path is correct and executable", path),
		Err:     err,
	}
}

func timeoutError(after time.Duration) *StartError {
	return &StartError{
		Kind: ErrStartupTimeout,
		Message: fmt.Sprintf("The server did not report an address within %s. "+
			"The first run downloads the package, so check your network or registry access and try again", after),
	}
}

func stoppedError() *StartError {
	return &StartError{
		Kind:    ErrEarlyExit,
		Reason:  ReasonStopped,
		Message: "The server was stopped before it became ready",
	}
}

// earlyExitError classifies an exit before readiness from the captured
// output. stderr is checked first; stdout is used for the generic message
// when stderr is empty.
func earlyExitError(code int, stderr, stdout string) *StartError {
	e := &StartError{Kind: ErrEarlyExit, ExitCode: code}

	switch {
	case portInUsePattern.MatchString(stderr):
		e.Reason = ReasonPortInUse
		e.Message = "The port is already in use. Stop the program using it or start the server on a different port"
	case notFoundPattern.MatchString(stderr):
		e.Reason = ReasonToolNotFound
		e.Message = "The server package or a tool it needs could not be found. Check the configured package and that the runtime is installed"
	default:
		e.Reason = ReasonUnknown
		diag := strings.TrimSpace(stderr)
		if diag == "" {
			diag = strings.TrimSpace(stdout)
		}
		e.Message = fmt.Sprintf("The server exited with code %d", code)
		if diag != "" {
			e.Message += ": " + truncateTail(diag, maxDiagnosticLen)
		}
	}
	return e
}

// truncateTail keeps the last n bytes of s, where the useful error usually is.
func truncateTail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[len(s)-n:]
	// don't start in the middle of a UTF-8 sequence
	for len(cut) > 0 && cut[0]&0xC0 == 0x80 {
		cut = cut[1:]
	}
	return "..." + cut
}
