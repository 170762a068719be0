// Package cli implements the Cobra command hierarchy for the trackgrid CLI
// tool. The root command defined here is the entry point for all
// subcommands and handles cross-cutting concerns like logging
// initialization and error handling.
package cli

import (
	"errors"
	"log/slog"

	"github.com/trackgrid/trackgrid/internal/config"
	"github.com/trackgrid/trackgrid/internal/pipeline"
	"github.com/spf13/cobra"
)

// flagValues holds the parsed global flag values, populated by config.BindFlags
// during command initialization and validated in PersistentPreRunE.
var flagValues *config.FlagValues

var rootCmd = &cobra.Command{
	Use:   "trackgrid",
	Short: "Keep dependency trackers in sync with your repository.",
	Long: `trackgrid maintains a persistent, human-readable model of dependencies
among files and directories in a source repository.

Each tracked item receives a hierarchical key. Pairwise relationships are
stored in run-length-encoded grids inside Markdown tracker files: one
project-wide "main" tracker aggregating inter-module dependencies, one "doc"
tracker for documentation, and one "mini" tracker per code module. Running
trackgrid keeps these trackers mutually consistent as the repository evolves.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Validate all global flags.
		if err := config.ValidateFlags(flagValues, cmd); err != nil {
			return err
		}

		// Initialize logging with validated flag values.
		level := config.ResolveLogLevel(flagValues.Verbose, flagValues.Quiet)
		format := config.ResolveLogFormat()
		config.SetupLogging(level, format)

		slog.Debug("logging initialized", "level", level, "format", format)
		return nil
	},
	// When no subcommand is given, delegate to analyze-project.
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyzeProject(cmd, args)
	},
}

func init() {
	flagValues = config.BindFlags(rootCmd)
}

// Execute runs the root command and returns an appropriate exit code.
// If the error is a *pipeline.TrackgridError, its Code is used.
// Generic errors return ExitError (1). Nil returns ExitSuccess (0).
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		slog.Error(err.Error())
		return extractExitCode(err)
	}
	return int(pipeline.ExitSuccess)
}

// extractExitCode determines the process exit code from an error.
// If the error is a *pipeline.TrackgridError, its Code field is used.
// Otherwise, ExitError (1) is returned for any non-nil error.
func extractExitCode(err error) int {
	if err == nil {
		return int(pipeline.ExitSuccess)
	}
	var tgErr *pipeline.TrackgridError
	if errors.As(err, &tgErr) {
		return tgErr.Code
	}
	return int(pipeline.ExitError)
}

// RootCmd returns the root cobra.Command for use in testing and subcommand registration.
func RootCmd() *cobra.Command {
	return rootCmd
}

// GlobalFlags returns the parsed global flag values. This is available after
// PersistentPreRunE has run. Subcommands use this to access shared configuration.
func GlobalFlags() *config.FlagValues {
	return flagValues
}
