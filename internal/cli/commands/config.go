package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aki/weblaunch/internal/cli/ui"
	"github.com/aki/weblaunch/internal/resolver"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage weblaunch configuration",
	Long: `Manage the weblaunch configuration: the runtime and package runner paths,
the remembered port, and how the web server is invoked.`,
	Example: `  # View current configuration
  weblaunch config show

  # Detect the runtime and package runner automatically
  weblaunch config discover

  # Set them explicitly
  weblaunch config set-paths /usr/local/bin/node /usr/local/bin/npx`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the current configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetPathsCmd = &cobra.Command{
	Use:   "set-paths <runtime> <package-runner>",
	Short: "Set the runtime and package runner executables",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSetPaths,
}

var discoverDryRun bool

var configDiscoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find the runtime and package runner and save them",
	Args:  cobra.NoArgs,
	RunE:  runConfigDiscover,
}

var configSetPortCmd = &cobra.Command{
	Use:   "set-port <port>",
	Short: "Set the remembered port (0 clears it)",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigSetPort,
}

func init() {
	configDiscoverCmd.Flags().BoolVar(&discoverDryRun, "dry-run", false, "Only print what was found")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetPathsCmd)
	configCmd.AddCommand(configDiscoverCmd)
	configCmd.AddCommand(configSetPortCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	c, err := newConfigContainer()
	if err != nil {
		return err
	}
	cfg, err := c.ConfigManager.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if ui.GlobalFormatter.IsJSON() {
		// round-trip through YAML so keys match the file
		var doc map[string]interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to convert configuration: %w", err)
		}
		return ui.GlobalFormatter.Output(doc)
	}

	ui.OutputLine("%s", ui.DimStyle.Render("# "+c.ConfigManager.GetConfigPath()))
	return ui.GlobalFormatter.Output(string(data))
}

func runConfigSetPaths(cmd *cobra.Command, args []string) error {
	c, err := newConfigContainer()
	if err != nil {
		return err
	}

	r := resolver.New(c.ConfigManager)
	runtimeRef := r.Resolve("runtime", args[0])
	runnerRef := r.Resolve("package-runner", args[1])
	for _, ref := range []resolver.ExecutableRef{runtimeRef, runnerRef} {
		if !ref.Resolved {
			ui.Warning("%s %s is not an executable file", ref.Name, ref.Configured)
		}
	}

	if err := c.ConfigManager.PersistPaths(cmd.Context(), args[0], args[1]); err != nil {
		return fmt.Errorf("failed to save paths: %w", err)
	}

	if ui.GlobalFormatter.IsJSON() {
		return ui.GlobalFormatter.Output([]resolver.ExecutableRef{runtimeRef, runnerRef})
	}
	ui.Success("Saved executable paths")
	ui.PrintExecutables(runtimeRef, runnerRef)
	return nil
}

func runConfigDiscover(cmd *cobra.Command, args []string) error {
	c, err := newConfigContainer()
	if err != nil {
		return err
	}

	found := resolver.Discover()
	r := resolver.New(c.ConfigManager)
	refs := []resolver.ExecutableRef{
		r.Resolve("runtime", found.Runtime),
		r.Resolve("package-runner", found.PackageRunner),
	}

	if ui.GlobalFormatter.IsJSON() {
		if err := ui.GlobalFormatter.Output(refs); err != nil {
			return err
		}
	} else {
		ui.PrintExecutables(refs...)
	}

	if !found.Complete() {
		return fmt.Errorf("could not find both executables: use 'weblaunch config set-paths'")
	}
	if discoverDryRun {
		return nil
	}

	if err := c.ConfigManager.PersistPaths(cmd.Context(), found.Runtime, found.PackageRunner); err != nil {
		return fmt.Errorf("failed to save paths: %w", err)
	}
	if !ui.GlobalFormatter.IsJSON() {
		ui.Success("Saved executable paths to %s", c.ConfigManager.GetConfigPath())
	}
	return nil
}

func runConfigSetPort(cmd *cobra.Command, args []string) error {
	port, err := strconv.Atoi(args[0])
	if err != nil || port < 0 || port > 65535 {
		return fmt.Errorf("invalid port %q: must be between 0 and 65535", args[0])
	}

	c, err := newConfigContainer()
	if err != nil {
		return err
	}
	if err := c.ConfigManager.SetLastPort(cmd.Context(), port); err != nil {
		return fmt.Errorf("failed to save port: %w", err)
	}

	if !ui.GlobalFormatter.IsJSON() {
		if port == 0 {
			ui.Success("Cleared remembered port")
		} else {
			ui.Success("Remembered port %d", port)
		}
	}
	return nil
}
