package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aki/weblaunch/internal/instance"
	"github.com/aki/weblaunch/internal/supervisor"
)

type fakeController struct {
	url      string
	err      error
	info     supervisor.Info
	lastOpts supervisor.StartOptions
	stops    int
}

func (f *fakeController) Start(_ context.Context, opts supervisor.StartOptions) (string, error) {
	f.lastOpts = opts
	if f.err != nil {
		return "", f.err
	}
	f.info = supervisor.Info{
		State:     supervisor.StateReady,
		URL:       f.url,
		PID:       4242,
		RunID:     "run-1",
		StartedAt: time.Now(),
	}
	return f.url, nil
}

func (f *fakeController) Stop(context.Context) {
	f.stops++
	f.info = supervisor.Info{State: supervisor.StateIdle}
}

func (f *fakeController) Info() supervisor.Info {
	return f.info
}

type fakePorts struct {
	ports []int
}

func (f *fakePorts) SetLastPort(_ context.Context, port int) error {
	f.ports = append(f.ports, port)
	return nil
}

type fakePublisher struct {
	records []instance.Record
}

func (f *fakePublisher) Publish(rec instance.Record) error {
	f.records = append(f.records, rec)
	return nil
}

func setupTestServer(t *testing.T, ctrl *fakeController, opts ...Option) *Server {
	t.Helper()
	if ctrl.info.State == "" {
		ctrl.info.State = supervisor.StateIdle
	}
	s, err := NewServer(ctrl, "test", opts...)
	require.NoError(t, err)
	return s
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestStartServer(t *testing.T) {
	ctrl := &fakeController{url: "http://localhost:8080"}
	ports := &fakePorts{}
	s := setupTestServer(t, ctrl, WithPortStore(ports))

	result, err := s.handleStartServer(context.Background(), callRequest("start_server", map[string]interface{}{
		"port": float64(8080),
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var resp statusResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	assert.Equal(t, "http://localhost:8080", resp.URL)
	assert.Equal(t, "ready", resp.State)
	assert.True(t, resp.Running)
	assert.Equal(t, 4242, resp.PID)

	require.NotNil(t, ctrl.lastOpts.Port)
	assert.Equal(t, 8080, *ctrl.lastOpts.Port)
	assert.Equal(t, []int{8080}, ports.ports)
}

func TestStartServer_NoPort(t *testing.T) {
	ctrl := &fakeController{url: "http://127.0.0.1:3000"}
	ports := &fakePorts{}
	s := setupTestServer(t, ctrl, WithPortStore(ports))

	result, err := s.handleStartServer(context.Background(), callRequest("start_server", map[string]interface{}{}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Nil(t, ctrl.lastOpts.Port)
	assert.Empty(t, ports.ports)
}

func TestStartServer_InvalidPort(t *testing.T) {
	ctrl := &fakeController{}
	s := setupTestServer(t, ctrl)

	result, err := s.handleStartServer(context.Background(), callRequest("start_server", map[string]interface{}{
		"port": float64(70000),
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "invalid port")
}

func TestStartServer_Failures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
		hint    string
	}{
		{
			name:    "already running",
			err:     supervisor.ErrAlreadyRunning,
			message: "already running",
			hint:    "stop_server",
		},
		{
			name: "paths not configured",
			err: &supervisor.StartError{
				Kind:    supervisor.ErrPathsNotConfigured,
				Message: "Runtime and package runner paths are not configured",
			},
			message: "not configured",
			hint:    "config discover",
		},
		{
			name: "port in use",
			err: &supervisor.StartError{
				Kind:    supervisor.ErrEarlyExit,
				Reason:  supervisor.ReasonPortInUse,
				Message: "The port is already in use",
			},
			message: "already in use",
			hint:    "different port",
		},
		{
			name: "timeout",
			err: &supervisor.StartError{
				Kind:    supervisor.ErrStartupTimeout,
				Message: "The server did not report an address within 1m0s",
			},
			message: "did not report",
			hint:    "Retry",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestServer(t, &fakeController{err: tt.err})

			result, err := s.handleStartServer(context.Background(), callRequest("start_server", nil))
			require.NoError(t, err)
			assert.True(t, result.IsError)

			text := resultText(t, result)
			assert.Contains(t, text, tt.message)
			assert.Contains(t, text, tt.hint)
		})
	}
}

func TestStopServer(t *testing.T) {
	ctrl := &fakeController{url: "http://localhost:8080"}
	s := setupTestServer(t, ctrl)

	result, err := s.handleStopServer(context.Background(), callRequest("stop_server", nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "No server was running")

	_, err = ctrl.Start(context.Background(), supervisor.StartOptions{})
	require.NoError(t, err)

	result, err = s.handleStopServer(context.Background(), callRequest("stop_server", nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "pid 4242")
	assert.Equal(t, 2, ctrl.stops)
}

func TestServerStatus(t *testing.T) {
	ctrl := &fakeController{url: "http://localhost:9000"}
	s := setupTestServer(t, ctrl)

	result, err := s.handleServerStatus(context.Background(), callRequest("server_status", nil))
	require.NoError(t, err)

	var resp statusResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	assert.Equal(t, "idle", resp.State)
	assert.False(t, resp.Running)
	assert.Empty(t, resp.URL)

	_, err = ctrl.Start(context.Background(), supervisor.StartOptions{})
	require.NoError(t, err)

	result, err = s.handleServerStatus(context.Background(), callRequest("server_status", nil))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	assert.Equal(t, "http://localhost:9000", resp.URL)
	assert.Equal(t, "run-1", resp.RunID)
	assert.NotEmpty(t, resp.StartedAt)
}

func TestStartFailure_PassesThroughUnknownErrors(t *testing.T) {
	err := errors.New("boom")
	assert.Same(t, err, StartFailure(err))
}

func TestPublishesInstanceRecord(t *testing.T) {
	ctrl := &fakeController{url: "http://localhost:8080"}
	pub := &fakePublisher{}
	s := setupTestServer(t, ctrl, WithPublisher(pub))

	_, err := s.handleStartServer(context.Background(), callRequest("start_server", nil))
	require.NoError(t, err)
	_, err = s.handleStopServer(context.Background(), callRequest("stop_server", nil))
	require.NoError(t, err)

	require.Len(t, pub.records, 2)
	assert.Equal(t, "http://localhost:8080", pub.records[0].URL)
	assert.Equal(t, 4242, pub.records[0].ServerPID)
	assert.NotZero(t, pub.records[0].PID)
	assert.Empty(t, pub.records[1].URL)
	assert.False(t, pub.records[1].StartedAt.IsZero())
}
