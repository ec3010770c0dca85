package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aki/weblaunch/internal/instance"
	"github.com/aki/weblaunch/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Serve the Model Context Protocol over stdio so an MCP host can start,
stop and inspect the web server. The server is stopped when the host
disconnects.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := newContainer(ctx)
	if err != nil {
		return err
	}

	lock := instance.New(c.ConfigDir)
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	server, err := mcp.NewServer(c.Supervisor, Version,
		mcp.WithPortStore(c.ConfigManager),
		mcp.WithPublisher(lock),
		mcp.WithLogger(c.Logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	// stdout carries the protocol; everything else goes to stderr
	fmt.Fprintf(os.Stderr, "Starting MCP server with stdio transport\n")
	return server.Serve(ctx, os.Stdin, os.Stdout)
}
