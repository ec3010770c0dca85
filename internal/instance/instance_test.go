package instance

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock_AcquireRelease(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)

	require.NoError(t, l.Acquire())
	// re-acquiring an owned lock is a no-op
	require.NoError(t, l.Acquire())

	require.NoError(t, l.Release())
	require.NoError(t, l.Release())

	// usable again after release
	require.NoError(t, l.Acquire())
	require.NoError(t, l.Release())
}

func TestLock_SecondHolderSeesRecord(t *testing.T) {
	dir := t.TempDir()
	first := New(dir)
	require.NoError(t, first.Acquire())
	defer first.Release()

	second := New(dir)
	err := second.Acquire()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHeld))

	var held *HeldError
	require.ErrorAs(t, err, &held)
	assert.Nil(t, held.Record)

	rec := Record{
		PID:       os.Getpid(),
		ServerPID: 1234,
		RunID:     "run-1",
		URL:       "http://localhost:8080",
		StartedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, first.Publish(rec))

	err = second.Acquire()
	require.ErrorAs(t, err, &held)
	require.NotNil(t, held.Record)
	assert.Equal(t, rec, *held.Record)
	assert.Contains(t, err.Error(), "http://localhost:8080")
}

func TestLock_PublishRequiresLock(t *testing.T) {
	l := New(t.TempDir())
	assert.Error(t, l.Publish(Record{PID: 1}))
}

func TestLock_ReleaseRemovesRecord(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)
	require.NoError(t, l.Acquire())
	require.NoError(t, l.Publish(Record{PID: os.Getpid(), URL: "http://localhost:1"}))

	rec, err := Read(dir)
	require.NoError(t, err)
	require.NotNil(t, rec)

	require.NoError(t, l.Release())
	rec, err = Read(dir)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRunning(t *testing.T) {
	dir := t.TempDir()

	rec, err := Running(dir)
	require.NoError(t, err)
	assert.Nil(t, rec)

	l := New(dir)
	require.NoError(t, l.Acquire())
	require.NoError(t, l.Publish(Record{PID: os.Getpid(), URL: "http://localhost:2"}))

	rec, err = Running(dir)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "http://localhost:2", rec.URL)

	require.NoError(t, l.Release())
}

func TestRunning_StaleRecordIgnored(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, stateFile), []byte(`{"pid": 99999, "url": "http://localhost:3"}`), 0o644))

	rec, err := Running(dir)
	require.NoError(t, err)
	assert.Nil(t, rec)
}
