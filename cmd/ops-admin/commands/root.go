package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ops-admin",
	Short: "Down-hours notice workflow for the co-op ops office",
	Long: `ops-admin reads new rows from the down-hours sheet, decides which notice
each member gets (courtesy, potential termination or pending termination),
fills and emails the notice documents, and records the decision back on the
sheet and on the 15-day notice tracker.

Configuration is read from a YAML file, a .env file and the environment.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML config file")
}
