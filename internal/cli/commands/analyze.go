package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/loglens/pkg/analyzer"
	"github.com/ccollicutt/loglens/pkg/config"
	"github.com/ccollicutt/loglens/pkg/filter"
	"github.com/ccollicutt/loglens/pkg/output"
	"github.com/ccollicutt/loglens/pkg/parser"
	"github.com/ccollicutt/loglens/pkg/webhook"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// AnalyzeOptions holds command-line options for the analyze command.
type AnalyzeOptions struct {
	ConfigPath string
	Output     string

	Granularity string
	Workers     int
	Filters     filter.Criteria

	JSONOut     string
	BarOut      string
	TimelineOut string
	ChartWidth  int

	PrintMatches bool
	FailOnErrors bool
	Verbose      bool
	Quiet        bool
	NoColor      bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze [inputs...]",
		Short: "Summarize log files",
		Long: `Parse log files and summarize them.

Inputs may be files, directories (scanned recursively for matching
extensions) or glob patterns. When no inputs are given, log_sources
from the config file are used.

Reports:
  - Record counts per level (INFO, WARNING, ERROR)
  - Malformed lines that yielded no record
  - First and last timestamps
  - The 10 most common error messages
  - A timeline of records per minute, hour or day

Filters (--keyword, --from, --to, --level) are validated and recorded in
the report metadata. They select the records printed by --print-matches
and do not change the summary.

Exit codes:
  0 - Success
  1 - Error records found and --fail-on-errors set
  2 - Configuration or runtime error`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Configuration file")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json|chart)")

	cmd.Flags().StringVarP(&opts.Granularity, "granularity", "g", "", "Timeline bucket width (minute|hour|day)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "Number of files analyzed concurrently")

	cmd.Flags().StringVar(&opts.Filters.Keyword, "keyword", "", "Select records whose message contains text (case-insensitive)")
	cmd.Flags().StringVar(&opts.Filters.From, "from", "", "Select records at or after this time (YYYY-MM-DD[ HH:MM:SS])")
	cmd.Flags().StringVar(&opts.Filters.To, "to", "", "Select records before this time (YYYY-MM-DD[ HH:MM:SS])")
	cmd.Flags().StringVar(&opts.Filters.Level, "level", "", "Select records of one level (info|warning|error)")

	cmd.Flags().StringVar(&opts.JSONOut, "json-out", "", "Also write the summary JSON to a file")
	cmd.Flags().StringVar(&opts.BarOut, "bar-out", "", "Also write the per-level bar chart to a file")
	cmd.Flags().StringVar(&opts.TimelineOut, "timeline-out", "", "Also write the timeline chart to a file")
	cmd.Flags().IntVar(&opts.ChartWidth, "chart-width", output.DefaultChartWidth, "Chart width in columns")

	cmd.Flags().BoolVar(&opts.PrintMatches, "print-matches", false, "Print records that pass the filters (to stderr unless -o text)")
	cmd.Flags().BoolVar(&opts.FailOnErrors, "fail-on-errors", false, "Exit 1 when any ERROR record is found")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show details and debug logging")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary line only")
	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", "on_errors", "When to fire webhook (on_errors|always|never)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string, opts *AnalyzeOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	logger := newLogger(errOut, opts.Verbose)

	// Check the format before doing any work
	formatter, err := output.NewFormatter(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
		NoColor: opts.NoColor,
		Width:   opts.ChartWidth,
	})
	if err != nil {
		return err
	}

	cfg, err := loadConfig(ctx, opts.ConfigPath, opts)
	if err != nil {
		return err
	}

	webhooks, err := collectWebhooks(cfg, opts)
	if err != nil {
		return err
	}

	files, err := resolveInputs(cfg, args)
	if err != nil {
		return err
	}

	filters := cfg.CompiledFilters()
	aopts := analyzerOptions(cfg, logger)
	if opts.PrintMatches {
		// Only text output shares stdout with matches
		matchOut := out
		if formatter.Name() != "text" {
			matchOut = errOut
		}
		aopts = append(aopts, analyzer.WithRecordHook(matchPrinter(matchOut, filters)))
	}

	start := time.Now()
	state, err := analyzer.AnalyzeFiles(ctx, files, cfg.GranularityValue(), cfg.Workers, aopts...)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	report := output.NewReport(state, filters, files)
	report.Metadata.ConfigFile = opts.ConfigPath
	report.Metadata.AnalyzedAt = start
	report.Metadata.Duration = time.Since(start)

	if err := formatter.Format(ctx, report, out); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	if err := writeSideOutputs(report, opts, errOut); err != nil {
		return err
	}

	// Send webhooks (errors logged but don't fail analysis)
	sendWebhooks(ctx, webhooks, report, errOut)

	if opts.FailOnErrors && report.HasErrors() {
		ExitCode = 1
	}

	return nil
}

// loadConfig loads the optional config file and applies flag overrides.
func loadConfig(ctx context.Context, path string, opts *AnalyzeOptions) (*config.Config, error) {
	cfg, err := config.LoadOptional(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	err = cfg.ApplyOverrides(config.Overrides{
		Granularity: opts.Granularity,
		Workers:     opts.Workers,
		Filters:     opts.Filters,
	})
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// resolveInputs expands command-line inputs, falling back to the
// configured log sources.
func resolveInputs(cfg *config.Config, args []string) ([]string, error) {
	inputs := args
	if len(inputs) == 0 {
		inputs = cfg.LogSources
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no inputs: pass files, directories or globs, or set log_sources in a config file")
	}

	files, err := parser.ExpandInputs(inputs, cfg.Extensions)
	if err != nil {
		return nil, fmt.Errorf("expanding inputs: %w", err)
	}
	return files, nil
}

// analyzerOptions returns the options shared by analyze, diagnose and watch.
func analyzerOptions(cfg *config.Config, logger *slog.Logger) []analyzer.AnalyzerOption {
	p := parser.NewLineParser(parser.WithExtraPatterns(cfg.LinePatterns()...))
	return []analyzer.AnalyzerOption{
		analyzer.WithParser(p),
		analyzer.WithLogger(logger),
	}
}

// matchPrinter returns a record hook that prints records passing filters.
// Hooks may run on several workers at once.
func matchPrinter(w io.Writer, filters *filter.Filters) func(parser.Record, *parser.LogLine) {
	var mu sync.Mutex
	return func(r parser.Record, line *parser.LogLine) {
		if !filters.Match(r) {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		_, _ = fmt.Fprintf(w, "%s:%d: %s %s %s\n",
			line.Source, line.LineNum, parser.FormatTimestamp(r.Timestamp), r.Level, r.Message)
	}
}

// writeSideOutputs writes the optional --json-out, --bar-out and
// --timeline-out files.
func writeSideOutputs(report *output.Report, opts *AnalyzeOptions, progress io.Writer) error {
	outputs := []struct {
		path  string
		label string
		write func(io.Writer) error
	}{
		{opts.JSONOut, "JSON", func(w io.Writer) error { return output.WriteSummaryJSON(w, report.Summary) }},
		{opts.BarOut, "bar chart", func(w io.Writer) error { return output.WriteLevelChart(w, report.Summary, opts.ChartWidth) }},
		{opts.TimelineOut, "timeline chart", func(w io.Writer) error { return output.WriteTimelineChart(w, report.Summary, opts.ChartWidth) }},
	}

	for _, o := range outputs {
		if o.path == "" {
			continue
		}
		if err := writeFile(o.path, o.write); err != nil {
			return fmt.Errorf("writing %s: %w", o.label, err)
		}
		_, _ = fmt.Fprintf(progress, "Saved %s -> %s\n", o.label, o.path)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path) // #nosec G304 -- user-provided output path is expected
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// sendWebhooks sends the report to all configured webhooks.
// Errors are reported on stderr but don't fail the analysis.
func sendWebhooks(ctx context.Context, webhooks []config.WebhookConfig, report *output.Report, progress io.Writer) {
	if len(webhooks) == 0 {
		return
	}

	client := webhook.NewClient()
	for _, d := range client.Notify(ctx, webhooks, report) {
		switch {
		case d.Skipped:
			continue
		case d.Response.Success():
			_, _ = fmt.Fprintf(progress, "Webhook %s: sent (%d, %s)\n", d.Name, d.Response.StatusCode, d.Response.Duration)
		default:
			_, _ = fmt.Fprintf(progress, "Webhook %s: failed (%v)\n", d.Name, d.Response.Error)
		}
	}
}

// collectWebhooks merges config file webhooks with CLI webhook.
func collectWebhooks(cfg *config.Config, opts *AnalyzeOptions) ([]config.WebhookConfig, error) {
	trigger, err := config.ParseWebhookTrigger(opts.WebhookTrigger)
	if err != nil {
		return nil, fmt.Errorf("--webhook-trigger: %w", err)
	}

	webhooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)
	webhooks = append(webhooks, cfg.Webhooks...)

	if opts.WebhookURL != "" {
		webhooks = append(webhooks, config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: trigger,
			Timeout: config.DefaultWebhookTimeout,
		})
	}

	return webhooks, nil
}
