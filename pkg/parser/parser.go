package parser

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnmatchedLine is returned when no pattern recognizes a line's shape.
var ErrUnmatchedLine = errors.New("line matches no known pattern")

// Outcome classifies the result of parsing one line.
type Outcome int

const (
	// OutcomeNoMatch means no pattern's shape applied.
	OutcomeNoMatch Outcome = iota

	// OutcomeInvalidTimestamp means a pattern matched structurally but its
	// timestamp could not be resolved. Later patterns are not tried.
	OutcomeInvalidTimestamp

	// OutcomeMatched means a record was produced.
	OutcomeMatched
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoMatch:
		return "unmatched"
	case OutcomeInvalidTimestamp:
		return "invalid_timestamp"
	case OutcomeMatched:
		return "matched"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is the tagged outcome of LineParser.Parse.
type Result struct {
	Outcome Outcome

	// Record is valid when Outcome is OutcomeMatched.
	Record Record

	// Pattern names the pattern that matched structurally, if any.
	Pattern string

	// Err is ErrUnmatchedLine or a *TimestampError for failed outcomes.
	Err error
}

// LineParser tries an ordered list of patterns against each line.
// It holds no mutable state and is safe for concurrent use.
type LineParser struct {
	patterns []*LinePattern
	resolver *TimestampResolver
}

// Option configures a LineParser.
type Option func(*LineParser)

// WithClock sets the clock used for year-less timestamps.
func WithClock(c Clock) Option {
	return func(p *LineParser) {
		p.resolver = NewTimestampResolver(c)
	}
}

// WithPatterns replaces the pattern list. Order is priority order.
func WithPatterns(patterns ...*LinePattern) Option {
	return func(p *LineParser) {
		p.patterns = append([]*LinePattern(nil), patterns...)
	}
}

// WithExtraPatterns appends patterns after the current list.
func WithExtraPatterns(patterns ...*LinePattern) Option {
	return func(p *LineParser) {
		p.patterns = append(p.patterns, patterns...)
	}
}

// NewLineParser creates a parser with DefaultPatterns and the system clock.
func NewLineParser(opts ...Option) *LineParser {
	p := &LineParser{
		patterns: DefaultPatterns(),
		resolver: NewTimestampResolver(nil),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Patterns returns the patterns in priority order.
func (p *LineParser) Patterns() []*LinePattern {
	return p.patterns
}

// Resolver returns the timestamp resolver used by the parser.
func (p *LineParser) Resolver() *TimestampResolver {
	return p.resolver
}

// Parse evaluates the patterns in order and returns the first structural
// match. A timestamp failure on that match is final.
func (p *LineParser) Parse(line string) Result {
	for _, pat := range p.patterns {
		fields, ok := pat.Match(line)
		if !ok {
			continue
		}

		ts, err := p.resolve(pat, fields.Timestamp)
		if err != nil {
			return Result{Outcome: OutcomeInvalidTimestamp, Pattern: pat.Name, Err: err}
		}

		return Result{
			Outcome: OutcomeMatched,
			Pattern: pat.Name,
			Record: Record{
				Timestamp: ts,
				Level:     NormalizeLevel(fields.Level),
				Message:   fields.Message,
			},
		}
	}

	return Result{Outcome: OutcomeNoMatch, Err: ErrUnmatchedLine}
}

// ParseLine is a convenience wrapper around Parse.
func (p *LineParser) ParseLine(line string) (Record, error) {
	res := p.Parse(line)
	if res.Outcome != OutcomeMatched {
		return Record{}, res.Err
	}
	return res.Record, nil
}

func (p *LineParser) resolve(pat *LinePattern, raw string) (time.Time, error) {
	if pat.Style == StyleSyslog {
		return p.resolver.ResolveSyslog(raw)
	}
	return p.resolver.Resolve(raw)
}
