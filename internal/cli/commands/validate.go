package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/loglens/pkg/config"
	"github.com/ccollicutt/loglens/pkg/parser"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a loglens configuration file without running analysis.

Checks:
  - YAML syntax
  - Granularity, workers and extensions
  - Pattern regexes and their named groups (ts, level, msg)
  - Filter values (level name, from/to times)
  - Webhook URLs and triggers
  - Log source existence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Validating %s...\n", configPath)

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(w, "\nConfiguration valid!\n")
	fmt.Fprintf(w, "  Log sources: %d input(s)\n", len(cfg.LogSources))
	fmt.Fprintf(w, "  Granularity: %s\n", cfg.GranularityValue())
	fmt.Fprintf(w, "  Workers:     %d\n", cfg.Workers)
	fmt.Fprintf(w, "  Filters:     %s\n", cfg.CompiledFilters().Describe())
	fmt.Fprintf(w, "  Webhooks:    %d\n", len(cfg.Webhooks))

	fmt.Fprintf(w, "\nPatterns (in priority order):\n")
	i := 1
	for _, p := range parser.DefaultPatterns() {
		fmt.Fprintf(w, "  %d. [built-in] %s\n", i, p.Name)
		i++
	}
	for _, p := range cfg.LinePatterns() {
		fmt.Fprintf(w, "  %d. [%s] %s\n", i, p.Style, p.Name)
		i++
	}

	// Check if log sources exist (warnings only)
	if len(cfg.LogSources) == 0 {
		fmt.Fprintf(w, "\nNo log_sources configured; pass inputs to analyze on the command line.\n")
		return nil
	}

	files, err := parser.ExpandInputs(cfg.LogSources, cfg.Extensions)
	if err != nil {
		fmt.Fprintf(w, "\nWarning: %v\n", err)
	} else {
		fmt.Fprintf(w, "\nLog files matched: %d\n", len(files))
		for _, f := range files {
			fmt.Fprintf(w, "  - %s\n", f)
		}
	}

	return nil
}
