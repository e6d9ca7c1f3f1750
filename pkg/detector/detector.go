// Package detector samples log files and reports which line patterns
// recognize them.
package detector

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/ccollicutt/loglens/pkg/parser"
)

// DefaultSampleSize is the number of non-blank lines sampled per file.
const DefaultSampleSize = 100

// maxUnparsed bounds DetectionResult.Unparsed.
const maxUnparsed = 5

// DetectionResult holds the result of analyzing sampled lines.
type DetectionResult struct {
	Matches      []PatternMatch // Candidates that matched at least one line, best first
	SampledLines int            // Number of lines sampled
	ParsedLines  int            // Lines the active patterns turn into records
	Unparsed     []string       // First few lines the active patterns reject
}

// PatternMatch is the per-candidate tally.
type PatternMatch struct {
	Candidate *Candidate

	// Matched counts lines with the candidate's shape.
	Matched int

	// Resolved counts lines whose timestamp also resolved.
	Resolved int

	// Confidence is Resolved over the number of sampled lines.
	Confidence float64

	SampleLine   string
	SampleRecord parser.Record

	priority int
}

// Detector evaluates candidate patterns against sampled lines.
type Detector struct {
	candidates []*Candidate
	active     *parser.LineParser
	clock      parser.Clock
	sampleSize int
}

// Option configures the Detector.
type Option func(*Detector)

// WithSampleSize sets the number of lines to sample (default 100).
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// WithClock sets the clock used for year-less timestamps.
func WithClock(c parser.Clock) Option {
	return func(d *Detector) {
		d.clock = c
	}
}

// WithConfiguredPatterns adds patterns from the config file. They rank
// after the built-ins and before the catalog.
func WithConfiguredPatterns(patterns ...*parser.LinePattern) Option {
	return func(d *Detector) {
		for _, p := range patterns {
			d.candidates = append(d.candidates, &Candidate{
				Pattern:     p,
				Origin:      OriginConfigured,
				Description: "Configured " + p.Name,
			})
		}
	}
}

// New creates a new Detector with the built-in and catalog patterns.
func New(opts ...Option) *Detector {
	d := &Detector{
		candidates: builtInCandidates(),
		sampleSize: DefaultSampleSize,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.candidates = append(d.candidates, CatalogPatterns()...)

	var active []*parser.LinePattern
	for _, c := range d.candidates {
		if c.Active() {
			active = append(active, c.Pattern)
		}
	}
	d.active = parser.NewLineParser(parser.WithPatterns(active...), parser.WithClock(d.clock))

	return d
}

// Candidates returns every evaluated pattern in priority order.
func (d *Detector) Candidates() []*Candidate {
	return d.candidates
}

// DetectFromFile samples a log file and evaluates it. A file that cannot be
// read returns a *parser.FileAccessError.
func (d *Detector) DetectFromFile(ctx context.Context, path string) (*DetectionResult, error) {
	lines, err := d.sampleFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return d.DetectFromLines(lines), nil
}

// DetectFromLines evaluates every candidate against lines. Each candidate
// is judged on its own, so a line may count for several candidates.
func (d *Detector) DetectFromLines(lines []string) *DetectionResult {
	result := &DetectionResult{
		SampledLines: len(lines),
	}

	if len(lines) == 0 {
		return result
	}

	stats := make([]*PatternMatch, len(d.candidates))
	parsers := make([]*parser.LineParser, len(d.candidates))
	for i, c := range d.candidates {
		stats[i] = &PatternMatch{Candidate: c, priority: i}
		parsers[i] = parser.NewLineParser(parser.WithPatterns(c.Pattern), parser.WithClock(d.clock))
	}

	for _, line := range lines {
		if d.active.Parse(line).Outcome == parser.OutcomeMatched {
			result.ParsedLines++
		} else if len(result.Unparsed) < maxUnparsed {
			result.Unparsed = append(result.Unparsed, line)
		}

		for i, p := range parsers {
			res := p.Parse(line)
			if res.Outcome == parser.OutcomeNoMatch {
				continue
			}

			s := stats[i]
			s.Matched++
			if res.Outcome != parser.OutcomeMatched {
				continue
			}
			if s.Resolved == 0 {
				s.SampleLine = line
				s.SampleRecord = res.Record
			}
			s.Resolved++
		}
	}

	for _, s := range stats {
		if s.Matched == 0 {
			continue
		}
		s.Confidence = float64(s.Resolved) / float64(len(lines))
		result.Matches = append(result.Matches, *s)
	}

	// Most resolved lines first; ties go to the higher-priority pattern
	sort.SliceStable(result.Matches, func(i, j int) bool {
		if result.Matches[i].Resolved != result.Matches[j].Resolved {
			return result.Matches[i].Resolved > result.Matches[j].Resolved
		}
		return result.Matches[i].priority < result.Matches[j].priority
	})

	return result
}

// sampleFile reads up to sampleSize lines from a file.
// Uses simple head sampling for efficiency.
func (d *Detector) sampleFile(ctx context.Context, path string) ([]string, error) {
	src := parser.NewFileSource([]string{path})
	defer src.Close()

	var lines []string
	for len(lines) < d.sampleSize {
		line, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		// Skip unreadable, empty and comment lines
		if line.Err != nil {
			continue
		}
		trimmed := strings.TrimSpace(line.Content)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			lines = append(lines, line.Content)
		}
	}

	return lines, nil
}

// BestMatch returns the candidate that resolved the most lines, or nil if
// none resolved any.
func (r *DetectionResult) BestMatch() *PatternMatch {
	if !r.HasMatch() {
		return nil
	}
	return &r.Matches[0]
}

// HasMatch returns true if at least one candidate resolved a line.
func (r *DetectionResult) HasMatch() bool {
	return len(r.Matches) > 0 && r.Matches[0].Resolved > 0
}

// NeedsPattern reports whether the best match must be added to the config
// before the parser can use it.
func (r *DetectionResult) NeedsPattern() bool {
	best := r.BestMatch()
	return best != nil && !best.Candidate.Active()
}

// Coverage returns the fraction of sampled lines the active patterns parse.
func (r *DetectionResult) Coverage() float64 {
	if r.SampledLines == 0 {
		return 0
	}
	return float64(r.ParsedLines) / float64(r.SampledLines)
}
