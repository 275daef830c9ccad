// Package cmd contains the CLI commands for the pkgcheck application.
package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/odpch/pkgcheck/config"
)

var rootCmd *cobra.Command

// configFile holds the global --config flag state.
var configFile string

func init() {
	rootCmd = NewRootCmd()
}

// NewRootCmd creates a new root command instance.
// This is useful for testing to get a fresh command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pkgcheck",
		Short: "Audit the metadata of an open data catalog",
		Long: "pkgcheck probes the URLs and validates the metadata of the datasets " +
			"published on a CKAN open data catalog, and reports its findings to the " +
			"datasets' responsible contacts.",
	}

	// Add persistent flags (available to all subcommands)
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml",
		"Path to the YAML configuration file")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewServeCmd())

	return cmd
}

// loadConfig reads and initializes the configuration named by --config.
func loadConfig() error {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return err
	}
	return config.Init(data)
}

// ExecuteContext runs the root command with the given context.
// This enables graceful shutdown via context cancellation (e.g., on SIGINT).
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
