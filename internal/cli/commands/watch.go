package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/loglens/pkg/analyzer"
	"github.com/ccollicutt/loglens/pkg/config"
	"github.com/ccollicutt/loglens/pkg/output"
	"github.com/ccollicutt/loglens/pkg/parser"
)

// DefaultDebounce is how long watch waits after the last change before
// re-running the analysis.
const DefaultDebounce = 500 * time.Millisecond

// WatchOptions holds command-line options for the watch command.
type WatchOptions struct {
	ConfigPath  string
	Granularity string
	Workers     int
	Debounce    time.Duration
	Verbose     bool
	NoColor     bool
}

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	opts := &WatchOptions{}

	cmd := &cobra.Command{
		Use:   "watch [inputs...]",
		Short: "Re-run the analysis when log files change",
		Long: `Watch inputs for changes and print a one-line summary after each change.

Bursts of writes are coalesced: the analysis runs once the inputs have
been quiet for the debounce interval. Every run re-reads all inputs, so
rotated and newly created files are picked up. Press Ctrl+C to stop.

Examples:
  loglens watch /var/log/app
  loglens watch --debounce 2s 'logs/*.log'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Configuration file")
	cmd.Flags().StringVarP(&opts.Granularity, "granularity", "g", "", "Timeline bucket width (minute|hour|day)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "Number of files analyzed concurrently")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", DefaultDebounce, "Quiet period before re-running")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show debug logging")
	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string, opts *WatchOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	cfg, err := config.LoadOptional(ctx, opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ApplyOverrides(config.Overrides{Granularity: opts.Granularity, Workers: opts.Workers}); err != nil {
		return err
	}

	inputs := args
	if len(inputs) == 0 {
		inputs = cfg.LogSources
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no inputs: pass files, directories or globs, or set log_sources in a config file")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Warn("failed to close watcher", "error", err)
		}
	}()

	for _, root := range parser.WatchRoots(inputs) {
		if err := addTree(watcher, root); err != nil {
			return fmt.Errorf("failed to watch %s: %w", root, err)
		}
	}

	formatter := output.NewTextFormatter(output.FormatOptions{Quiet: true, NoColor: opts.NoColor})
	run := func() {
		analyzeSnapshot(ctx, cfg, inputs, formatter, out, logger)
	}

	logger.Info("watching", "inputs", inputs, "debounce", opts.Debounce)
	run()

	relevant := func(ev fsnotify.Event) bool {
		if ev.Has(fsnotify.Create) {
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				if err := addTree(watcher, ev.Name); err != nil {
					logger.Warn("failed to watch new directory", "path", ev.Name, "error", err)
				}
				return false
			}
		}
		return parser.HasExtension(ev.Name, cfg.Extensions) || isInput(ev.Name, inputs)
	}

	return watchLoop(ctx, watcher.Events, watcher.Errors, opts.Debounce, relevant, run, logger)
}

// watchLoop calls run once events have stopped arriving for debounce. It
// returns nil when ctx is done.
func watchLoop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error,
	debounce time.Duration, relevant func(fsnotify.Event) bool, run func(), logger *slog.Logger) error {
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			// Chmod-only events carry no new content
			if ev.Op == fsnotify.Chmod || !relevant(ev) {
				continue
			}
			logger.Debug("change", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(debounce)

		case err, ok := <-errs:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			logger.Warn("watch error", "error", err)

		case <-timer.C:
			run()
		}
	}
}

// analyzeSnapshot re-reads every input and prints the quiet summary. A
// failure is logged and the watch continues.
func analyzeSnapshot(ctx context.Context, cfg *config.Config, inputs []string,
	formatter output.Formatter, w io.Writer, logger *slog.Logger) {
	files, err := parser.ExpandInputs(inputs, cfg.Extensions)
	if err != nil {
		logger.Warn("no input files", "error", err)
		return
	}

	state, err := analyzer.AnalyzeFiles(ctx, files, cfg.GranularityValue(), cfg.Workers, analyzerOptions(cfg, logger)...)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("analysis failed", "error", err)
		}
		return
	}

	report := output.NewReport(state, cfg.CompiledFilters(), files)
	fmt.Fprintf(w, "[%s] ", time.Now().Format("15:04:05"))
	if err := formatter.Format(ctx, report, w); err != nil {
		logger.Warn("formatting output", "error", err)
	}
}

// addTree watches dir and every directory below it.
func addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

func isInput(path string, inputs []string) bool {
	path = filepath.Clean(path)
	for _, in := range inputs {
		if filepath.Clean(in) == path {
			return true
		}
		if ok, _ := filepath.Match(in, path); ok {
			return true
		}
	}
	return false
}
