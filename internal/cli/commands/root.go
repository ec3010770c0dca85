package commands

import (
	"github.com/spf13/cobra"

	"github.com/aki/weblaunch/internal/cli/ui"
)

var (
	flagConfigDir    string
	flagOutputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "weblaunch",
	Short: "Launch and supervise a local web server",
	Long: `weblaunch starts a locally installed web server through a package runner,
waits until it reports its address, and makes sure the server and every
process it started are gone when you stop it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		format, err := ui.ParseFormat(flagOutputFormat)
		if err != nil {
			return err
		}
		return ui.SetGlobalFormatter(format)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config", "", "Configuration directory (default: $WEBLAUNCH_CONFIG_DIR or the user config directory)")
	rootCmd.PersistentFlags().StringVar(&flagOutputFormat, "format", "pretty", "Output format (pretty, json)")
	RegisterLoggerFlags(rootCmd)

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
