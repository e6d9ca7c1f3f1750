package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/loglens/pkg/analyzer"
	"github.com/ccollicutt/loglens/pkg/config"
	"github.com/ccollicutt/loglens/pkg/parser"
)

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	ConfigPath string
	Limit      int
	Reason     string
	Verbose    bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose [inputs...]",
		Short: "Show which lines fail to parse and why",
		Long: `Diagnose inputs that do not parse cleanly.

This command checks:
- Config file syntax and patterns (with --config)
- Input existence and accessibility
- Per-file parse results, broken down by reason

and lists malformed lines as file:line with their reason:
  unmatched          no line pattern recognizes the line
  invalid_timestamp  a pattern matched but its timestamp does not resolve
  unreadable         the line is not valid UTF-8 or is too long

Example:
  loglens diagnose /var/log/app
  loglens diagnose --limit 50 --reason invalid_timestamp app.log`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Configuration file")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "l", 20, "Maximum malformed lines to list (0 lists none)")
	cmd.Flags().StringVar(&opts.Reason, "reason", "", "Only list lines with this reason (unmatched|invalid_timestamp|unreadable)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(cmd *cobra.Command, args []string, opts *DiagnoseOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	switch analyzer.MalformedReason(opts.Reason) {
	case "", analyzer.ReasonUnmatched, analyzer.ReasonInvalidTimestamp, analyzer.ReasonUnreadable:
	default:
		return fmt.Errorf("invalid reason %q (must be unmatched, invalid_timestamp or unreadable)", opts.Reason)
	}

	results := []DiagnosticResult{}

	cfg, result := checkConfig(ctx, opts.ConfigPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(out, results, opts)
		return nil
	}

	files, inputResults := checkInputs(cfg, args)
	results = append(results, inputResults...)

	collector := &malformedCollector{limit: opts.Limit, reason: analyzer.MalformedReason(opts.Reason)}
	results = append(results, checkParsing(ctx, cfg, files, collector, newLogger(cmd.ErrOrStderr(), opts.Verbose))...)
	results = append(results, checkWebhooks(cfg, opts)...)

	printDiagnostics(out, results, opts)
	printMalformed(out, collector)
	return nil
}

func checkConfig(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config",
	}

	if path != "" {
		info, err := os.Stat(path)
		switch {
		case os.IsNotExist(err):
			result.Status = "error"
			result.Message = fmt.Sprintf("Config file not found: %s", path)
			result.Suggests = []string{
				"Check the file path is correct",
				"Use 'loglens detect <log-file> --write-config loglens.yaml' to generate a starter config",
			}
			return nil, result
		case err != nil:
			result.Status = "error"
			result.Message = fmt.Sprintf("Cannot access config file: %v", err)
			result.Suggests = []string{"Check file permissions"}
			return nil, result
		case info.IsDir():
			result.Status = "error"
			result.Message = "Path is a directory, not a file"
			return nil, result
		}
	}

	cfg, err := config.LoadOptional(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to load config: %v", err)
		result.Suggests = []string{
			"Check YAML syntax (indentation, colons, quotes)",
			"Pattern regexes must define the named groups ts, level and msg",
		}
		return nil, result
	}

	result.Status = "ok"
	if path == "" {
		result.Message = "No config file, using defaults"
	} else {
		result.Message = fmt.Sprintf("Loaded %s", path)
	}
	result.Details = []string{
		fmt.Sprintf("Granularity: %s", cfg.GranularityValue()),
		fmt.Sprintf("Extensions: %s", strings.Join(cfg.Extensions, ", ")),
	}
	for _, p := range cfg.LinePatterns() {
		result.Details = append(result.Details, fmt.Sprintf("Pattern: %s (%s)", p.Name, p.Style))
	}
	return cfg, result
}

// checkInputs reports on each input and returns the files it expands to.
func checkInputs(cfg *config.Config, args []string) ([]string, []DiagnosticResult) {
	inputs := args
	if len(inputs) == 0 {
		inputs = cfg.LogSources
	}

	if len(inputs) == 0 {
		return nil, []DiagnosticResult{{
			Check:   "Inputs",
			Status:  "error",
			Message: "No inputs given",
			Suggests: []string{
				"Pass files, directories or globs as arguments",
				"Or add log_sources to a config file",
			},
		}}
	}

	results := []DiagnosticResult{}
	for _, input := range inputs {
		results = append(results, checkInput(input, cfg.Extensions))
	}

	files, err := parser.ExpandInputs(inputs, cfg.Extensions)
	if err != nil {
		results = append(results, DiagnosticResult{
			Check:   "Input Files Summary",
			Status:  "error",
			Message: err.Error(),
			Suggests: []string{
				fmt.Sprintf("Directories are scanned for %s files", strings.Join(cfg.Extensions, ", ")),
			},
		})
		return nil, results
	}

	return files, results
}

func checkInput(input string, extensions []string) DiagnosticResult {
	result := DiagnosticResult{
		Check: fmt.Sprintf("Input: %s", input),
	}

	if strings.ContainsAny(input, "*?[") {
		matches, err := filepath.Glob(input)
		switch {
		case err != nil:
			result.Status = "error"
			result.Message = fmt.Sprintf("Invalid glob pattern: %v", err)
		case len(matches) == 0:
			result.Status = "warning"
			result.Message = "Glob pattern matches no files"
			result.Suggests = []string{
				"Check if the log files exist at this path",
				"Verify the glob pattern syntax",
			}
		default:
			result.Status = "ok"
			result.Message = fmt.Sprintf("Matches %d path(s)", len(matches))
			result.Details = matches
		}
		return result
	}

	info, err := os.Stat(input)
	switch {
	case os.IsNotExist(err):
		result.Status = "error"
		result.Message = "File does not exist"
		result.Suggests = []string{"Check if the log file path is correct"}
	case err != nil:
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access path: %v", err)
		result.Suggests = []string{"Check file permissions"}
	case info.IsDir():
		files, _ := parser.ExpandInputs([]string{input}, extensions)
		if len(files) == 0 {
			result.Status = "warning"
			result.Message = fmt.Sprintf("Directory has no %s files", strings.Join(extensions, ", "))
			result.Suggests = []string{"Set extensions in a config file to include other files"}
		} else {
			result.Status = "ok"
			result.Message = fmt.Sprintf("Directory with %d log file(s)", len(files))
			result.Details = files
		}
	case info.Size() == 0:
		result.Status = "warning"
		result.Message = "File is empty (0 bytes)"
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("File exists (%d bytes)", info.Size())
	}
	return result
}

// checkParsing analyzes each file on its own and reports its malformed
// lines.
func checkParsing(ctx context.Context, cfg *config.Config, files []string, collector *malformedCollector, logger *slog.Logger) []DiagnosticResult {
	results := []DiagnosticResult{}

	aopts := append(analyzerOptions(cfg, logger), analyzer.WithMalformedHook(collector.add))

	for _, file := range files {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Parsing: %s", file),
		}

		a := analyzer.NewAnalyzer(cfg.GranularityValue(), aopts...)
		if err := a.ConsumeFile(ctx, file); err != nil {
			result.Status = "error"
			result.Message = err.Error()
			results = append(results, result)
			continue
		}

		state := a.State()
		m := state.Malformed
		switch {
		case state.Lines() == 0:
			result.Status = "warning"
			result.Message = "No lines"
		case m.Total() == 0:
			result.Status = "ok"
			result.Message = fmt.Sprintf("All %d line(s) parsed", state.Lines())
		case state.Records() == 0:
			result.Status = "error"
			result.Message = fmt.Sprintf("None of %d line(s) parsed", state.Lines())
			result.Suggests = []string{
				"Run 'loglens detect " + file + "' to find a matching pattern",
			}
		default:
			result.Status = "warning"
			result.Message = fmt.Sprintf("%d of %d line(s) malformed", m.Total(), state.Lines())
		}

		if m.Total() > 0 {
			result.Details = []string{
				fmt.Sprintf("unmatched: %d", m.Unmatched),
				fmt.Sprintf("invalid_timestamp: %d", m.InvalidTimestamp),
				fmt.Sprintf("unreadable: %d", m.Unreadable),
			}
		}
		if m.InvalidTimestamp > 0 {
			result.Suggests = append(result.Suggests,
				"Syslog timestamps take the current year; Feb 29 is rejected outside leap years")
		}

		results = append(results, result)
	}

	return results
}

func checkWebhooks(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	for i, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = fmt.Sprintf("webhook[%d]", i)
		}

		result := DiagnosticResult{
			Check:   fmt.Sprintf("Webhook: %s", name),
			Status:  "ok",
			Message: fmt.Sprintf("Trigger: %s", wh.Trigger),
		}
		if opts.Verbose {
			result.Details = []string{
				fmt.Sprintf("URL: %s", wh.URL),
				fmt.Sprintf("Timeout: %s", wh.Timeout),
			}
		}
		if wh.Trigger == config.WebhookTriggerNever {
			result.Status = "warning"
			result.Message = "Trigger is never; this webhook is disabled"
		}
		results = append(results, result)
	}

	return results
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== loglens Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)
}

// malformedCollector keeps the first limit malformed lines with an
// optional reason filter and counts the rest.
type malformedCollector struct {
	limit  int
	reason analyzer.MalformedReason

	lines   []analyzer.MalformedLine
	matched int
}

func (c *malformedCollector) add(m analyzer.MalformedLine) {
	if c.reason != "" && m.Reason != c.reason {
		return
	}
	c.matched++
	if len(c.lines) < c.limit {
		c.lines = append(c.lines, m)
	}
}

func printMalformed(w io.Writer, c *malformedCollector) {
	if c.matched == 0 || c.limit <= 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Malformed lines (%d of %d shown):\n", len(c.lines), c.matched)
	for _, m := range c.lines {
		fmt.Fprintf(w, "  %s:%d [%s]", m.Source, m.LineNum, m.Reason)
		if m.Pattern != "" {
			fmt.Fprintf(w, " pattern=%s", m.Pattern)
		}
		switch {
		case m.Reason == analyzer.ReasonUnreadable:
			fmt.Fprintf(w, " %v\n", m.Err)
		case m.Content == "":
			fmt.Fprintln(w, " (empty line)")
		default:
			fmt.Fprintf(w, " %s\n", truncate(m.Content, 100))
		}
	}
}
