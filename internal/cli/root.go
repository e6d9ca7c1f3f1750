// Package cli provides the command-line interface for loglens.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/loglens/internal/cli/commands"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	rootCmd := NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "loglens",
		Short: "Summarize log files",
		Long: `loglens parses application log files and summarizes them.

Each line is matched against an ordered list of line patterns (built-in
datetime, ISO 8601 and syslog shapes plus any configured ones). Lines
that match become records with a timestamp, a level and a message; lines
that do not are counted as malformed.

The summary reports:
  - Counts per level (INFO, WARNING, ERROR)
  - Malformed lines
  - First and last timestamps
  - The most common error messages
  - A timeline of records per minute, hour or day`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add subcommands
	rootCmd.AddCommand(commands.NewAnalyzeCommand())
	rootCmd.AddCommand(commands.NewDetectCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewWatchCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
