package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// TimestampStyle selects how a pattern's captured timestamp is resolved.
type TimestampStyle string

const (
	// StyleDateTime timestamps carry a full date (Resolve).
	StyleDateTime TimestampStyle = "datetime"

	// StyleSyslog timestamps are "Mon day time" without a year (ResolveSyslog).
	StyleSyslog TimestampStyle = "syslog"
)

// Capture group names every pattern must define.
const (
	GroupTimestamp = "ts"
	GroupLevel     = "level"
	GroupMessage   = "msg"
)

// Fields are the three substrings a LinePattern extracts from a line.
type Fields struct {
	Timestamp string
	Level     string
	Message   string
}

// LinePattern is a named structural rule for one line shape.
type LinePattern struct {
	Name  string
	Style TimestampStyle

	re       *regexp.Regexp
	tsIdx    int
	levelIdx int
	msgIdx   int
}

// NewLinePattern compiles expr and checks that it defines the ts, level
// and msg named groups.
func NewLinePattern(name, expr string, style TimestampStyle) (*LinePattern, error) {
	if name == "" {
		return nil, errors.New("pattern name is required")
	}
	switch style {
	case "":
		style = StyleDateTime
	case StyleDateTime, StyleSyslog:
	default:
		return nil, fmt.Errorf("invalid style %q (must be datetime or syslog)", style)
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %w", err)
	}

	p := &LinePattern{
		Name:     name,
		Style:    style,
		re:       re,
		tsIdx:    re.SubexpIndex(GroupTimestamp),
		levelIdx: re.SubexpIndex(GroupLevel),
		msgIdx:   re.SubexpIndex(GroupMessage),
	}

	var missing []string
	if p.tsIdx < 0 {
		missing = append(missing, GroupTimestamp)
	}
	if p.levelIdx < 0 {
		missing = append(missing, GroupLevel)
	}
	if p.msgIdx < 0 {
		missing = append(missing, GroupMessage)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("regex must define named groups (?P<%s>...)", strings.Join(missing, ">...), (?P<"))
	}

	return p, nil
}

// MustLinePattern is like NewLinePattern but panics on error.
func MustLinePattern(name, expr string, style TimestampStyle) *LinePattern {
	p, err := NewLinePattern(name, expr, style)
	if err != nil {
		panic(fmt.Sprintf("parser: pattern %q: %v", name, err))
	}
	return p
}

// Match reports whether line has this pattern's shape and returns the
// captured fields.
func (p *LinePattern) Match(line string) (Fields, bool) {
	m := p.re.FindStringSubmatch(line)
	if m == nil {
		return Fields{}, false
	}
	return Fields{
		Timestamp: m[p.tsIdx],
		Level:     m[p.levelIdx],
		Message:   m[p.msgIdx],
	}, true
}

// Expr returns the source regular expression.
func (p *LinePattern) Expr() string {
	return p.re.String()
}

const (
	fractionExpr = `(?:[.,]\d{1,9})?`
	levelExpr    = `(?i:INFO|ERROR|WARNING|WARN)`
	monthExpr    = `(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)`
)

// DefaultPatterns returns the built-in shapes in priority order:
//
//	2025-09-05 14:32:10,123 INFO message
//	2025-09-05T14:32:10Z [WARNING] message
//	Sep  5 14:32:10 host app[123]: [ERROR] message
func DefaultPatterns() []*LinePattern {
	return []*LinePattern{
		MustLinePattern("datetime-level",
			`^(?P<ts>\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}`+fractionExpr+`)\s+(?P<level>`+levelExpr+`)\s+(?P<msg>.*)$`,
			StyleDateTime),
		MustLinePattern("iso8601-bracketed",
			`^(?P<ts>\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?)\s*\[(?P<level>[A-Za-z]+)\]\s*(?P<msg>.*)$`,
			StyleDateTime),
		MustLinePattern("syslog",
			`^(?P<ts>`+monthExpr+`\s+\d{1,2}\s+\d{2}:\d{2}:\d{2}).*?(?P<level>\[`+levelExpr+`\]|\b(?i:INFO|ERROR|WARNING|WARN)\b).*?\s(?P<msg>[^\r\n]*)$`,
			StyleSyslog),
	}
}
