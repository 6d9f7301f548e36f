// Package main provides the entry point for the reconcile CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TFMV/reconcile/logger"
	"github.com/TFMV/reconcile/version"
)

type rootOptions struct {
	LogLevel string
	LogFile  string
}

func main() {
	err := newRootCommand().Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	options := &rootOptions{LogLevel: "info", LogFile: "reconcile.log"}

	rootCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile is a legacy-vs-cloud dataset comparison tool",
		Long: `Reconcile compares a legacy dataset with its migrated cloud copy.
It reports schema differences, row count differences, rows present on one side
only, value mismatches on matched rows and duplicate rows. Datasets can be
CSV, Parquet or Arrow files, DuckDB databases, or Postgres and MySQL tables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger.SetLogPath(options.LogFile)
			return logger.SetLevel(options.LogLevel)
		},
	}
	rootCmd.PersistentFlags().StringVar(&options.LogLevel, "log-level", options.LogLevel, "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&options.LogFile, "log-file", options.LogFile, "JSON log file, empty to disable")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of reconcile",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "reconcile v%s (built %s)\n", version.GetVersion(), version.GetBuildDate())
		},
	})
	rootCmd.AddCommand(newCompareCommand())
	rootCmd.AddCommand(newSamplesCommand())
	rootCmd.AddCommand(newServeCommand())

	return rootCmd
}
