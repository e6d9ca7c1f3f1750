package analyzer

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/ccollicutt/loglens/pkg/parser"
)

// Analyzer parses lines and folds the outcomes into a State.
// A bad line never stops the run; it is counted as malformed.
type Analyzer struct {
	parser *parser.LineParser
	state  *State
	logger *slog.Logger

	onRecord    func(parser.Record, *parser.LogLine)
	onMalformed func(MalformedLine)
}

// AnalyzerOption configures analyzer behavior.
type AnalyzerOption func(*Analyzer)

// WithParser sets the line parser. The default uses the built-in patterns
// and the system clock.
func WithParser(p *parser.LineParser) AnalyzerOption {
	return func(a *Analyzer) {
		if p != nil {
			a.parser = p
		}
	}
}

// WithLogger sets the logger used for per-line and per-file diagnostics.
func WithLogger(l *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithRecordHook registers fn to be called for every parsed record. The
// LogLine is nil for lines passed to ConsumeLine.
func WithRecordHook(fn func(parser.Record, *parser.LogLine)) AnalyzerOption {
	return func(a *Analyzer) {
		a.onRecord = fn
	}
}

// WithMalformedHook registers fn to be called for every malformed line.
func WithMalformedHook(fn func(MalformedLine)) AnalyzerOption {
	return func(a *Analyzer) {
		a.onMalformed = fn
	}
}

// NewAnalyzer creates an analyzer with an empty State.
func NewAnalyzer(g Granularity, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		parser: parser.NewLineParser(),
		state:  NewState(g),
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// State returns the analyzer's running state.
func (a *Analyzer) State() *State {
	return a.state
}

// ConsumeLine parses one raw line and folds the outcome into the state.
func (a *Analyzer) ConsumeLine(line string) parser.Result {
	return a.consume(&parser.LogLine{Content: line}, nil)
}

// ConsumeSource reads src until io.EOF. Lines that cannot be read intact
// are counted as malformed. Any other read error aborts and is returned
// unchanged.
func (a *Analyzer) ConsumeSource(ctx context.Context, src parser.LineSource) error {
	for {
		line, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		a.consume(line, line)
	}
}

// ConsumeFile analyzes a single file. A file that cannot be opened or read
// returns a *parser.FileAccessError.
func (a *Analyzer) ConsumeFile(ctx context.Context, path string) error {
	src := parser.NewFileSource([]string{path})
	defer src.Close()

	before := a.state.Lines()
	a.logger.Debug("analyzing file", "path", path)

	if err := a.ConsumeSource(ctx, src); err != nil {
		return err
	}

	a.logger.Info("analyzed file", "path", path, "lines", a.state.Lines()-before)
	return nil
}

// ConsumeFiles analyzes files one after another into the same state and
// stops at the first file that cannot be read.
func (a *Analyzer) ConsumeFiles(ctx context.Context, paths []string) error {
	for _, path := range paths {
		if err := a.ConsumeFile(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) consume(line *parser.LogLine, hookLine *parser.LogLine) parser.Result {
	if line.Err != nil {
		res := parser.Result{Outcome: parser.OutcomeNoMatch, Err: line.Err}
		a.malformed(line, ReasonUnreadable, res)
		return res
	}

	res := a.parser.Parse(line.Content)
	switch res.Outcome {
	case parser.OutcomeMatched:
		a.state.Add(res.Record)
		if a.onRecord != nil {
			a.onRecord(res.Record, hookLine)
		}
	case parser.OutcomeInvalidTimestamp:
		a.malformed(line, ReasonInvalidTimestamp, res)
	default:
		a.malformed(line, ReasonUnmatched, res)
	}
	return res
}

func (a *Analyzer) malformed(line *parser.LogLine, reason MalformedReason, res parser.Result) {
	a.state.AddMalformed(reason)

	a.logger.Debug("malformed line",
		"source", line.Source,
		"line", line.LineNum,
		"reason", string(reason),
		"error", res.Err)

	if a.onMalformed != nil {
		a.onMalformed(MalformedLine{
			Source:  line.Source,
			LineNum: line.LineNum,
			Content: line.Content,
			Reason:  reason,
			Pattern: res.Pattern,
			Err:     res.Err,
		})
	}
}
