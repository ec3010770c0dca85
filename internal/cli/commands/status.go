package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/aki/weblaunch/internal/app"
	"github.com/aki/weblaunch/internal/cli/ui"
	"github.com/aki/weblaunch/internal/instance"
	"github.com/aki/weblaunch/internal/supervisor"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the server run by another weblaunch process",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := app.NewConfigOnly(flagConfigDir)
	if err != nil {
		return err
	}

	rec, err := instance.Running(c.ConfigDir)
	if err != nil {
		return err
	}

	if ui.GlobalFormatter.IsJSON() {
		if rec == nil {
			return ui.GlobalFormatter.Output(map[string]interface{}{"running": false})
		}
		return ui.GlobalFormatter.Output(map[string]interface{}{
			"running":    rec.URL != "",
			"launcher":   rec.PID,
			"server_pid": rec.ServerPID,
			"run_id":     rec.RunID,
			"url":        rec.URL,
			"started_at": rec.StartedAt.Format(time.RFC3339),
		})
	}

	if rec == nil || rec.URL == "" {
		ui.Info("No server running")
		return nil
	}
	ui.PrintServerStatus(supervisor.Info{
		State:     supervisor.StateReady,
		RunID:     rec.RunID,
		PID:       rec.ServerPID,
		URL:       rec.URL,
		StartedAt: rec.StartedAt,
	})
	return nil
}
