// Package instance keeps a single launcher per configuration directory in
// charge of a server. The holder publishes what it is running so other
// invocations can report it.
package instance

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockFile  = "instance.lock"
	stateFile = "instance.json"
)

// ErrHeld means another process holds the instance lock
var ErrHeld = errors.New("another weblaunch instance is running")

// Record describes the server the lock holder is running.
type Record struct {
	PID       int       `json:"pid"`
	ServerPID int       `json:"server_pid,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	URL       string    `json:"url,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// HeldError is returned by Acquire when the lock is taken. Record is nil
// when the holder has not published yet.
type HeldError struct {
	Record *Record
}

func (e *HeldError) Error() string {
	if e.Record == nil || e.Record.URL == "" {
		return ErrHeld.Error()
	}
	return fmt.Sprintf("%s: serving %s (pid %d)", ErrHeld, e.Record.URL, e.Record.PID)
}

// Is matches ErrHeld.
func (e *HeldError) Is(target error) bool {
	return target == ErrHeld
}

// Lock is the per-directory instance lock.
type Lock struct {
	dir   string
	mu    sync.Mutex
	flock *flock.Flock
	held  bool
}

// New returns the lock for dir. Nothing is created until Acquire.
func New(dir string) *Lock {
	return &Lock{
		dir:   dir,
		flock: flock.New(filepath.Join(dir, lockFile)),
	}
}

// Acquire takes the lock without blocking.
func (l *Lock) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held {
		return nil
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	ok, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire instance lock: %w", err)
	}
	if !ok {
		rec, _ := Read(l.dir)
		return &HeldError{Record: rec}
	}

	l.held = true
	// anything left over belongs to a holder that died
	_ = os.Remove(filepath.Join(l.dir, stateFile))
	return nil
}

// Publish records what the holder is running.
func (l *Lock) Publish(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return errors.New("instance lock not held")
	}

	content, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal instance record: %w", err)
	}

	path := filepath.Join(l.dir, stateFile)
	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, content, 0o644); err != nil {
		return fmt.Errorf("failed to write instance record: %w", err)
	}
	if err := os.Rename(tempFile, path); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to save instance record: %w", err)
	}
	return nil
}

// Release removes the record and drops the lock. Safe to call repeatedly.
func (l *Lock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return nil
	}
	l.held = false

	_ = os.Remove(filepath.Join(l.dir, stateFile))
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release instance lock: %w", err)
	}
	return nil
}

// Read returns the published record in dir, or nil if there is none.
func Read(dir string) (*Record, error) {
	content, err := os.ReadFile(filepath.Join(dir, stateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read instance record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(content, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse instance record: %w", err)
	}
	return &rec, nil
}

// Running returns the record of a live holder in dir. A record without a
// lock holder is stale and reported as nil.
func Running(dir string) (*Record, error) {
	probe := flock.New(filepath.Join(dir, lockFile))
	ok, err := probe.TryLock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to probe instance lock: %w", err)
	}
	if ok {
		_ = probe.Unlock()
		return nil, nil
	}
	return Read(dir)
}
