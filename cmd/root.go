package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the apptscheduler application
var rootCmd = &cobra.Command{
	Use:   "apptscheduler",
	Short: "Appointment availability and booking API for a Google Calendar",
	Long: `apptscheduler computes free appointment slots against a Google Calendar
and books them on request.

It can run as:
  - An HTTP API server (default)
  - An MCP (Model Context Protocol) server for AI assistants

Settings come from flags, environment variables (flag names upper-cased with
dashes as underscores), an optional --config file and a .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return loadDotEnv()
	},
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "apptscheduler version %s\n" .Version}}`)

	// If no subcommand is provided, run the server by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (yaml, json or toml)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSlotsCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
