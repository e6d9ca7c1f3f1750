package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/loglens/pkg/config"
	"github.com/ccollicutt/loglens/pkg/detector"
	"github.com/ccollicutt/loglens/pkg/parser"
)

// DetectOptions holds command-line options for the detect command.
type DetectOptions struct {
	ConfigPath  string
	Output      string
	SampleSize  int
	ShowAll     bool
	WriteConfig string
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	opts := &DetectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <log-file>",
		Short: "Detect which line pattern fits a log file",
		Long: `Sample a log file and report which line patterns recognize it.

Each pattern is scored on how many sampled lines have its shape and how
many of those carry a timestamp that resolves. The best pattern is the
one that resolves the most lines; ties go to the higher-priority pattern.

Patterns evaluated:
  - Built-in: datetime-level, iso8601-bracketed, syslog
  - Any patterns from --config
  - Catalog: bracketed-datetime, log4j, python-logging, logfmt, json-lines

Catalog patterns are not used by analyze until they are added to a config
file; --write-config generates one.

Example:
  loglens detect /var/log/myapp.log
  loglens detect --sample 500 /var/log/large.log
  loglens detect --write-config loglens.yaml /var/log/app.log`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Configuration file with extra patterns")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVarP(&opts.SampleSize, "sample", "n", detector.DefaultSampleSize, "Number of lines to sample")
	cmd.Flags().BoolVar(&opts.ShowAll, "all", false, "Show all matching patterns, not just the best match")
	cmd.Flags().StringVarP(&opts.WriteConfig, "write-config", "w", "", "Write starter config to file (will not overwrite)")

	return cmd
}

func runDetect(cmd *cobra.Command, args []string, opts *DetectOptions) error {
	logFile := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if opts.Output != "text" && opts.Output != "json" {
		return fmt.Errorf("invalid output format %q (must be text or json)", opts.Output)
	}

	cfg, err := config.LoadOptional(ctx, opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	d := detector.New(
		detector.WithSampleSize(opts.SampleSize),
		detector.WithConfiguredPatterns(cfg.LinePatterns()...),
	)

	result, err := d.DetectFromFile(ctx, logFile)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	if opts.WriteConfig != "" {
		if err := writeStarterConfig(result, cfg, logFile, opts.WriteConfig, out); err != nil {
			return err
		}
	}

	switch opts.Output {
	case "json":
		return outputDetectJSON(result, logFile, opts, out)
	default:
		return outputDetectText(result, logFile, opts, out)
	}
}

func outputDetectText(result *detector.DetectionResult, logFile string, opts *DetectOptions, w io.Writer) error {
	fmt.Fprintln(w, "=== Line Pattern Detection ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "File: %s\n", logFile)
	fmt.Fprintf(w, "Lines sampled: %d\n", result.SampledLines)
	fmt.Fprintf(w, "Lines parsed by active patterns: %d (%.1f%%)\n", result.ParsedLines, result.Coverage()*100)
	fmt.Fprintln(w)

	if !result.HasMatch() {
		fmt.Fprintln(w, "No line pattern detected.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Tip: Add a pattern with named groups ts, level and msg to a config file:")
		fmt.Fprintln(w, "  patterns:")
		fmt.Fprintln(w, "    - name: custom")
		fmt.Fprintln(w, `      regex: '^(?P<ts>\S+ \S+) (?P<level>\w+) (?P<msg>.*)$'`)
		printUnparsed(w, result)
		return nil
	}

	best := result.BestMatch()
	fmt.Fprintf(w, "Detected Pattern: %s (%s)\n", best.Candidate.Pattern.Name, best.Candidate.Origin)
	fmt.Fprintf(w, "  %s\n", best.Candidate.Description)
	fmt.Fprintf(w, "Confidence: %.1f%% (%d/%d lines resolved, %d matched)\n",
		best.Confidence*100, best.Resolved, result.SampledLines, best.Matched)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Sample match:\n  %s\n", best.SampleLine)
	fmt.Fprintf(w, "Parsed as: %s %s %q\n",
		parser.FormatTimestamp(best.SampleRecord.Timestamp), best.SampleRecord.Level, best.SampleRecord.Message)
	fmt.Fprintln(w)

	if result.NeedsPattern() {
		fmt.Fprintln(w, "--- Configuration snippet (copy to your config file) ---")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "patterns:")
		fmt.Fprintf(w, "  - name: %s\n", best.Candidate.Pattern.Name)
		fmt.Fprintf(w, "    regex: '%s'\n", best.Candidate.Pattern.Expr())
		fmt.Fprintf(w, "    style: %s\n", best.Candidate.Pattern.Style)
		fmt.Fprintln(w)
	}

	if opts.ShowAll && len(result.Matches) > 1 {
		fmt.Fprintln(w, "--- Other matching patterns ---")
		for i, m := range result.Matches[1:] {
			fmt.Fprintf(w, "%d. %s (%s): %d resolved, %d matched\n",
				i+2, m.Candidate.Pattern.Name, m.Candidate.Origin, m.Resolved, m.Matched)
		}
		fmt.Fprintln(w)
	}

	printUnparsed(w, result)
	return nil
}

func printUnparsed(w io.Writer, result *detector.DetectionResult) {
	if len(result.Unparsed) == 0 {
		return
	}
	fmt.Fprintln(w, "Lines the active patterns do not parse:")
	for _, line := range result.Unparsed {
		fmt.Fprintf(w, "  %s\n", truncate(line, 100))
	}
	fmt.Fprintln(w)
}

// JSONMatch represents a pattern match in JSON output.
type JSONMatch struct {
	Name       string  `json:"name"`
	Origin     string  `json:"origin"`
	Regex      string  `json:"regex"`
	Style      string  `json:"style"`
	Confidence float64 `json:"confidence"`
	Matched    int     `json:"matched"`
	Resolved   int     `json:"resolved"`
	SampleLine string  `json:"sample_line,omitempty"`
}

// JSONOutput represents the full JSON output.
type JSONOutput struct {
	File         string      `json:"file"`
	Matches      []JSONMatch `json:"matches"`
	SampledLines int         `json:"sampled_lines"`
	ParsedLines  int         `json:"parsed_lines"`
	NeedsPattern bool        `json:"needs_pattern"`
}

func outputDetectJSON(result *detector.DetectionResult, logFile string, opts *DetectOptions, w io.Writer) error {
	doc := JSONOutput{
		File:         logFile,
		SampledLines: result.SampledLines,
		ParsedLines:  result.ParsedLines,
		NeedsPattern: result.NeedsPattern(),
		Matches:      make([]JSONMatch, 0),
	}

	matches := result.Matches
	if !opts.ShowAll && len(matches) > 1 {
		matches = matches[:1] // Only show best match
	}

	for _, m := range matches {
		doc.Matches = append(doc.Matches, JSONMatch{
			Name:       m.Candidate.Pattern.Name,
			Origin:     string(m.Candidate.Origin),
			Regex:      m.Candidate.Pattern.Expr(),
			Style:      string(m.Candidate.Pattern.Style),
			Confidence: m.Confidence,
			Matched:    m.Matched,
			Resolved:   m.Resolved,
			SampleLine: m.SampleLine,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

// writeStarterConfig writes a config that analyzes logFile with the
// detected pattern.
func writeStarterConfig(result *detector.DetectionResult, base *config.Config, logFile, configPath string, w io.Writer) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s (will not overwrite)", configPath)
	}

	if !result.HasMatch() {
		return fmt.Errorf("cannot generate config: no line pattern detected")
	}

	data, err := generateStarterConfig(logFile, base, result.BestMatch())
	if err != nil {
		return err
	}

	// #nosec G306 - config file doesn't need restrictive permissions
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(w, "Wrote starter config to: %s\n\n", configPath)
	return nil
}

// generateStarterConfig renders a YAML config for logFile. The detected
// pattern is added unless the parser already uses it.
func generateStarterConfig(logFile string, base *config.Config, match *detector.PatternMatch) ([]byte, error) {
	absLogFile := logFile
	if abs, err := filepath.Abs(logFile); err == nil {
		absLogFile = abs
	}

	cfg := config.DefaultConfig()
	cfg.LogSources = []string{absLogFile}
	cfg.Patterns = append(cfg.Patterns, base.Patterns...)
	if !match.Candidate.Active() {
		cfg.Patterns = append(cfg.Patterns, config.PatternConfig{
			Name:  match.Candidate.Pattern.Name,
			Regex: match.Candidate.Pattern.Expr(),
			Style: string(match.Candidate.Pattern.Style),
		})
	}

	body, err := config.Marshal(cfg)
	if err != nil {
		return nil, err
	}

	header := fmt.Sprintf("# loglens configuration\n# Generated by: loglens detect\n# Detected pattern: %s (%.0f%% of sampled lines)\n\n",
		match.Candidate.Pattern.Name, match.Confidence*100)
	return append([]byte(header), body...), nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
