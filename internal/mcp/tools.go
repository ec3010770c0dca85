package mcp

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/aki/weblaunch/internal/instance"
	"github.com/aki/weblaunch/internal/supervisor"
)

// statusResponse is the JSON shape of server_status and start_server
type statusResponse struct {
	State     string `json:"state"`
	Running   bool   `json:"running"`
	URL       string `json:"url,omitempty"`
	PID       int    `json:"pid,omitempty"`
	RunID     string `json:"run_id,omitempty"`
	StartedAt string `json:"started_at,omitempty"`
	Uptime    string `json:"uptime,omitempty"`
}

func newStatusResponse(info supervisor.Info) statusResponse {
	resp := statusResponse{
		State:   string(info.State),
		Running: info.State == supervisor.StateReady || info.State == supervisor.StateStarting,
		URL:     info.URL,
		PID:     info.PID,
		RunID:   info.RunID,
	}
	if !info.StartedAt.IsZero() {
		resp.StartedAt = info.StartedAt.Format(time.RFC3339)
		resp.Uptime = time.Since(info.StartedAt).Round(time.Second).String()
	}
	return resp
}

// handleStartServer handles the start_server tool
func (s *Server) handleStartServer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params StartServerParams
	if err := UnmarshalArgs(request, &params); err != nil {
		return nil, err
	}

	var opts supervisor.StartOptions
	if params.Port != 0 {
		if params.Port < 1 || params.Port > 65535 {
			return errorResult(fmt.Errorf("invalid port %d: must be between 1 and 65535", params.Port)), nil
		}
		port := params.Port
		opts.Port = &port
	}

	url, err := s.ctrl.Start(ctx, opts)
	if err != nil {
		s.logger.Warn("start_server failed", "error", err)
		return errorResult(StartFailure(err)), nil
	}

	if opts.Port != nil && s.ports != nil {
		if err := s.ports.SetLastPort(ctx, *opts.Port); err != nil {
			s.logger.Warn("failed to remember port", "port", *opts.Port, "error", err)
		}
	}

	info := s.ctrl.Info()
	s.publish(instance.Record{
		ServerPID: info.PID,
		RunID:     info.RunID,
		URL:       url,
		StartedAt: info.StartedAt,
	})

	resp := newStatusResponse(info)
	resp.URL = url
	return jsonResult(resp)
}

// publish records the server state; failures only affect other invocations
func (s *Server) publish(rec instance.Record) {
	if s.publisher == nil {
		return
	}
	rec.PID = os.Getpid()
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	rec.StartedAt = rec.StartedAt.UTC().Truncate(time.Second)
	if err := s.publisher.Publish(rec); err != nil {
		s.logger.Warn("failed to publish instance record", "error", err)
	}
}

// handleStopServer handles the stop_server tool
func (s *Server) handleStopServer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	before := s.ctrl.Info()
	s.ctrl.Stop(ctx)
	s.publish(instance.Record{})

	if before.State == supervisor.StateIdle {
		return mcp.NewToolResultText("No server was running."), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Server stopped (pid %d).", before.PID)), nil
}

// handleServerStatus handles the server_status tool
func (s *Server) handleServerStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(newStatusResponse(s.ctrl.Info()))
}
