// Package filemanager reads and writes YAML documents with file locks so the
// launcher and a concurrently running CLI invocation never clobber each
// other's settings.
package filemanager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

// ErrConcurrentModification is returned when a file changed between read and write
var ErrConcurrentModification = errors.New("file was modified concurrently")

// ErrLockTimeout is returned when a file lock cannot be acquired in time
var ErrLockTimeout = errors.New("timeout acquiring file lock")

// FileInfo records what a Read observed, for compare-and-swap writes
type FileInfo struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// Validator inspects raw file contents before they are decoded.
type Validator func(raw []byte) error

// UpdateFunc mutates a decoded document in place.
type UpdateFunc[T any] func(data *T) error

// Manager reads and writes documents of type T.
type Manager[T any] struct {
	lockTimeout time.Duration
	validate    Validator
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	lockTimeout time.Duration
	validate    Validator
}

// WithLockTimeout bounds how long lock acquisition may take.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) { o.lockTimeout = d }
}

// WithValidator runs v on the raw bytes of every Read.
func WithValidator(v Validator) Option {
	return func(o *options) { o.validate = v }
}

// NewManager creates a Manager. The default lock timeout is five seconds.
func NewManager[T any](opts ...Option) *Manager[T] {
	o := options{lockTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager[T]{lockTimeout: o.lockTimeout, validate: o.validate}
}

func (m *Manager[T]) lock(ctx context.Context, path string, shared bool) (*flock.Flock, error) {
	lk := createLock(path)

	lockCtx, cancel := context.WithTimeout(ctx, m.lockTimeout)
	defer cancel()

	var (
		locked bool
		err    error
	)
	if shared {
		locked, err = lk.TryRLockContext(lockCtx, 50*time.Millisecond)
	} else {
		locked, err = lk.TryLockContext(lockCtx, 50*time.Millisecond)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLockTimeout
		}
		return nil, fmt.Errorf("failed to acquire lock on %s: %w", path, err)
	}
	if !locked {
		return nil, ErrLockTimeout
	}
	return lk, nil
}

// Read decodes the document at path under a shared lock. A missing file is
// reported with an error satisfying os.IsNotExist.
func (m *Manager[T]) Read(ctx context.Context, path string) (*T, *FileInfo, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil, err
	}

	lk, err := m.lock(ctx, path, true)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = lk.Unlock()
		cleanupLockFile(path)
	}()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	stat, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if m.validate != nil {
		if err := m.validate(raw); err != nil {
			return nil, nil, err
		}
	}

	var doc T
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return &doc, &FileInfo{Path: path, ModTime: stat.ModTime(), Size: stat.Size()}, nil
}

// Write replaces the document at path unconditionally.
func (m *Manager[T]) Write(ctx context.Context, path string, data *T) error {
	return m.write(ctx, path, data, nil)
}

// WriteWithCAS replaces the document only if it still matches expected.
func (m *Manager[T]) WriteWithCAS(ctx context.Context, path string, data *T, expected *FileInfo) error {
	return m.write(ctx, path, data, expected)
}

func (m *Manager[T]) write(ctx context.Context, path string, data *T, expected *FileInfo) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	lk, err := m.lock(ctx, path, false)
	if err != nil {
		return err
	}
	defer func() {
		_ = lk.Unlock()
		cleanupLockFile(path)
	}()

	if expected != nil {
		stat, err := os.Stat(path)
		switch {
		case err == nil:
			if !stat.ModTime().Equal(expected.ModTime) || stat.Size() != expected.Size {
				return ErrConcurrentModification
			}
		case !os.IsNotExist(err):
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}

	encoded, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}

	tmp := fmt.Sprintf("%s.%d.%d.tmp", path, os.Getpid(), time.Now().UnixNano())
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.Write(encoded); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	_ = f.Sync()
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := atomicRename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

// Update reads the document, applies fn and writes it back, retrying when
// another writer got there first. A missing file starts from the zero value.
func (m *Manager[T]) Update(ctx context.Context, path string, fn UpdateFunc[T]) error {
	const maxRetries = 10

	for i := 0; i < maxRetries; i++ {
		data, info, err := m.Read(ctx, path)
		if err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			data = new(T)
			info = nil
		}

		if err := fn(data); err != nil {
			return fmt.Errorf("update function failed: %w", err)
		}

		err = m.WriteWithCAS(ctx, path, data, info)
		if errors.Is(err, ErrConcurrentModification) {
			continue
		}
		return err
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, ErrConcurrentModification)
}
