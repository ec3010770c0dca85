package filemanager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settings struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func TestManager_ReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	mgr := NewManager[settings]()

	require.NoError(t, mgr.Write(context.Background(), path, &settings{Name: "web", Count: 1}))

	got, info, err := mgr.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "web", got.Name)
	assert.Equal(t, 1, got.Count)
	assert.Equal(t, path, info.Path)
}

func TestManager_ReadMissing(t *testing.T) {
	mgr := NewManager[settings]()
	_, _, err := mgr.Read(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestManager_Validator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: web\n"), 0o644))

	errInvalid := errors.New("invalid")
	mgr := NewManager[settings](WithValidator(func(raw []byte) error {
		return errInvalid
	}))

	_, _, err := mgr.Read(context.Background(), path)
	assert.ErrorIs(t, err, errInvalid)
}

func TestManager_WriteWithCAS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	mgr := NewManager[settings]()
	ctx := context.Background()

	require.NoError(t, mgr.Write(ctx, path, &settings{Count: 1}))
	_, info, err := mgr.Read(ctx, path)
	require.NoError(t, err)

	// Someone else writes in between.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, mgr.Write(ctx, path, &settings{Count: 22}))

	err = mgr.WriteWithCAS(ctx, path, &settings{Count: 3}, info)
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestManager_UpdateCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	mgr := NewManager[settings]()

	err := mgr.Update(context.Background(), path, func(s *settings) error {
		s.Name = "created"
		return nil
	})
	require.NoError(t, err)

	got, _, err := mgr.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "created", got.Name)
}

func TestManager_UpdateError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	mgr := NewManager[settings]()

	errBoom := errors.New("boom")
	err := mgr.Update(context.Background(), path, func(*settings) error { return errBoom })
	assert.ErrorIs(t, err, errBoom)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestManager_ConcurrentUpdates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	mgr := NewManager[settings]()
	ctx := context.Background()
	require.NoError(t, mgr.Write(ctx, path, &settings{}))

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mgr.Update(ctx, path, func(s *settings) error {
				s.Count++
				return nil
			})
		}()
	}
	wg.Wait()

	got, _, err := mgr.Read(ctx, path)
	require.NoError(t, err)
	assert.Positive(t, got.Count)
	assert.LessOrEqual(t, got.Count, workers)
}
