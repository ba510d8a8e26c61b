package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func newRootCommand(cc *commandContext) *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "vslctl",
		Short:         "Operate the VSL ingestion pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline activity to stderr")

	rootCmd.AddCommand(newMigrateCommand(cc))
	rootCmd.AddCommand(newURLsCommand(cc))
	rootCmd.AddCommand(newIngestCommand(cc))
	rootCmd.AddCommand(newResubmitCommand(cc))
	rootCmd.AddCommand(newDLQCommand(cc))
	rootCmd.AddCommand(newKeysCommand(cc))

	return rootCmd
}
