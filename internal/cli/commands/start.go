package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aki/weblaunch/internal/cli/ui"
	"github.com/aki/weblaunch/internal/instance"
	"github.com/aki/weblaunch/internal/supervisor"
)

var (
	startPort      int
	startReusePort bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the web server and keep it running until interrupted",
	Long: `Start the configured web server through the package runner and wait until
it prints its address. The server and all of its child processes are stopped
on Ctrl+C.`,
	Example: `  # Start with the server's default port
  weblaunch start

  # Start on a specific port and remember it
  weblaunch start --port 8080

  # Start on the last remembered port
  weblaunch start --reuse-port`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

func init() {
	startCmd.Flags().IntVarP(&startPort, "port", "p", 0, "Port exported to the server (remembered for --reuse-port)")
	startCmd.Flags().BoolVar(&startReusePort, "reuse-port", false, "Use the last remembered port")
}

func runStart(cmd *cobra.Command, args []string) error {
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

	var opts supervisor.StartOptions
	explicitPort := cmd.Flags().Changed("port")
	switch {
	case explicitPort:
		if startPort < 1 || startPort > 65535 {
			return fmt.Errorf("invalid port %d: must be between 1 and 65535", startPort)
		}
		opts.Port = &startPort
	case startReusePort:
		port, ok, err := c.ConfigManager.GetLastPort(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no port remembered yet: run 'weblaunch start --port <port>' once")
		}
		opts.Port = &port
	}

	if !ui.GlobalFormatter.IsJSON() {
		ui.Info("Starting %s...", c.Config.Server.Package)
	}

	url, err := c.Supervisor.Start(ctx, opts)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			ui.Info("Startup cancelled")
			return nil
		}
		return err
	}

	if explicitPort {
		if err := c.ConfigManager.SetLastPort(ctx, startPort); err != nil {
			ui.Warning("Failed to remember port: %v", err)
		}
	}

	info := c.Supervisor.Info()
	if err := lock.Publish(instance.Record{
		PID:       os.Getpid(),
		ServerPID: info.PID,
		RunID:     info.RunID,
		URL:       url,
		StartedAt: info.StartedAt.UTC().Truncate(time.Second),
	}); err != nil {
		ui.Warning("Failed to publish instance record: %v", err)
	}

	if ui.GlobalFormatter.IsJSON() {
		if err := ui.GlobalFormatter.Output(map[string]interface{}{
			"url":    url,
			"pid":    info.PID,
			"run_id": info.RunID,
		}); err != nil {
			return err
		}
	} else {
		ui.Success("Server ready at %s", ui.URLStyle.Render(url))
		ui.PrintServerStatus(info)
		ui.OutputLine("\nPress Ctrl+C to stop")
	}

	select {
	case <-ctx.Done():
		if !ui.GlobalFormatter.IsJSON() {
			ui.Info("Stopping server...")
		}
		c.Supervisor.Stop(context.Background())
		if !ui.GlobalFormatter.IsJSON() {
			ui.Success("Server stopped")
		}
		return nil
	case <-c.Supervisor.Done():
		// sweep anything the server left behind
		c.Supervisor.Stop(context.Background())
		return fmt.Errorf("server exited unexpectedly")
	}
}
