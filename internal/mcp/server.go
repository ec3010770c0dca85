package mcp

import (
	"context"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aki/weblaunch/internal/core/logger"
	"github.com/aki/weblaunch/internal/instance"
	"github.com/aki/weblaunch/internal/supervisor"
)

// Controller is the part of the supervisor the tools drive
type Controller interface {
	Start(ctx context.Context, opts supervisor.StartOptions) (string, error)
	Stop(ctx context.Context)
	Info() supervisor.Info
}

// PortStore remembers the last port a server was started on
type PortStore interface {
	SetLastPort(ctx context.Context, port int) error
}

// Publisher records what this process is serving for other invocations
type Publisher interface {
	Publish(rec instance.Record) error
}

// Server implements the MCP server using mcp-go
type Server struct {
	mcpServer *server.MCPServer
	ctrl      Controller
	ports     PortStore
	publisher Publisher
	logger    logger.Logger
}

// Option configures a Server
type Option func(*Server)

// WithPortStore persists explicitly requested ports
func WithPortStore(p PortStore) Option {
	return func(s *Server) { s.ports = p }
}

// WithPublisher publishes the running server after each start and stop
func WithPublisher(p Publisher) Option {
	return func(s *Server) { s.publisher = p }
}

// WithLogger sets the server logger
func WithLogger(l logger.Logger) Option {
	return func(s *Server) { s.logger = logger.Component(l, "mcp") }
}

// NewServer creates an MCP server controlling ctrl
func NewServer(ctrl Controller, version string, opts ...Option) (*Server, error) {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"weblaunch",
			version,
			server.WithToolCapabilities(false),
			server.WithLogging(),
		),
		ctrl:   ctrl,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.registerTools(); err != nil {
		return nil, err
	}
	return s, nil
}

// registerTools registers the server lifecycle tools
func (s *Server) registerTools() error {
	startOpts, err := WithStructOptions(
		"Start the local web server and wait until it reports its address. Returns the URL to open.",
		StartServerParams{},
	)
	if err != nil {
		return fmt.Errorf("failed to create start_server options: %w", err)
	}
	s.mcpServer.AddTool(mcp.NewTool("start_server", startOpts...), s.handleStartServer)

	stopOpts, err := WithStructOptions(
		"Stop the web server and every process it started.",
		EmptyParams{},
	)
	if err != nil {
		return fmt.Errorf("failed to create stop_server options: %w", err)
	}
	s.mcpServer.AddTool(mcp.NewTool("stop_server", stopOpts...), s.handleStopServer)

	statusOpts, err := WithStructOptions(
		"Report whether the web server is running, its address, PID and uptime.",
		EmptyParams{},
	)
	if err != nil {
		return fmt.Errorf("failed to create server_status options: %w", err)
	}
	s.mcpServer.AddTool(mcp.NewTool("server_status", statusOpts...), s.handleServerStatus)

	return nil
}

// Serve runs the stdio transport until ctx is cancelled or stdin closes.
// The supervised server is stopped before returning.
func (s *Server) Serve(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	defer s.ctrl.Stop(context.Background())

	s.logger.Info("MCP server listening on stdio")
	err := server.NewStdioServer(s.mcpServer).Listen(ctx, stdin, stdout)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
