package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/aki/weblaunch/internal/cli/ui"
	"github.com/aki/weblaunch/internal/resolver"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Show which executables will be launched",
	Long: `Resolve the configured runtime and package runner, following version
manager shims (volta, asdf) to the binary of the newest installed version.`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	c, err := newContainer(cmd.Context())
	if err != nil {
		return err
	}

	paths, err := c.Resolver.GetExecutablePaths(cmd.Context())
	if err != nil {
		if errors.Is(err, resolver.ErrPathsNotConfigured) {
			return errors.New("executable paths are not configured: run 'weblaunch config discover' or 'weblaunch config set-paths'")
		}
		return err
	}

	if ui.GlobalFormatter.IsJSON() {
		return ui.GlobalFormatter.Output(paths)
	}
	ui.PrintExecutables(paths.Runtime, paths.PackageRunner)
	return nil
}
