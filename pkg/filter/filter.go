// Package filter implements record predicates built from user input.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/ccollicutt/loglens/pkg/parser"
)

// Layouts accepted for the From and To bounds, tried in order. A date
// without a time means midnight.
var boundLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Criteria holds the raw, user-supplied filter strings. Empty fields are
// absent criteria.
type Criteria struct {
	Keyword string `yaml:"keyword,omitempty" json:"keyword,omitempty"`
	From    string `yaml:"from,omitempty" json:"from,omitempty"`
	To      string `yaml:"to,omitempty" json:"to,omitempty"`
	Level   string `yaml:"level,omitempty" json:"level,omitempty"`
}

// IsZero reports whether no criterion is set.
func (c Criteria) IsZero() bool {
	return c == Criteria{}
}

// ConstructionError reports a filter value that could not be parsed.
type ConstructionError struct {
	Field string
	Value string
	Err   error
}

func (e *ConstructionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s filter %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid %s filter %q", e.Field, e.Value)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

// Filters is a conjunction of optional predicates over parser.Record.
// The zero value passes every record.
type Filters struct {
	keyword string
	from    *time.Time
	to      *time.Time
	level   *parser.Level

	criteria Criteria
}

// New parses c. Any unparseable value is a *ConstructionError and no
// partial Filters is returned.
func New(c Criteria) (*Filters, error) {
	f := &Filters{
		keyword:  strings.ToLower(c.Keyword),
		criteria: c,
	}

	if c.From != "" {
		t, err := parseBound(c.From)
		if err != nil {
			return nil, &ConstructionError{Field: "from", Value: c.From, Err: err}
		}
		f.from = &t
	}

	if c.To != "" {
		t, err := parseBound(c.To)
		if err != nil {
			return nil, &ConstructionError{Field: "to", Value: c.To, Err: err}
		}
		f.to = &t
	}

	if c.Level != "" {
		lv, err := parser.LookupLevel(c.Level)
		if err != nil {
			return nil, &ConstructionError{Field: "level", Value: c.Level, Err: err}
		}
		f.level = &lv
	}

	return f, nil
}

func parseBound(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range boundLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("expected YYYY-MM-DD, YYYY-MM-DD HH:MM:SS or YYYY-MM-DDTHH:MM:SS")
}

// Match reports whether r passes every configured predicate. From is
// inclusive, To is exclusive and the keyword is a case-insensitive
// substring of the message.
func (f *Filters) Match(r parser.Record) bool {
	if f == nil {
		return true
	}
	if f.level != nil && r.Level != *f.level {
		return false
	}
	if f.from != nil && r.Timestamp.Before(*f.from) {
		return false
	}
	if f.to != nil && !r.Timestamp.Before(*f.to) {
		return false
	}
	if f.keyword != "" && !strings.Contains(strings.ToLower(r.Message), f.keyword) {
		return false
	}
	return true
}

// Active reports whether any predicate is set.
func (f *Filters) Active() bool {
	return f != nil && !f.criteria.IsZero()
}

// Criteria returns the raw values the filters were built from.
func (f *Filters) Criteria() Criteria {
	if f == nil {
		return Criteria{}
	}
	return f.criteria
}

// Describe returns the active predicates in canonical form, for example
// "level=ERROR from=2025-09-05 00:00:00 keyword=timeout". It returns "none"
// when nothing is set.
func (f *Filters) Describe() string {
	if !f.Active() {
		return "none"
	}

	var parts []string
	if f.level != nil {
		parts = append(parts, "level="+f.level.String())
	}
	if f.from != nil {
		parts = append(parts, "from="+parser.FormatTimestamp(*f.from))
	}
	if f.to != nil {
		parts = append(parts, "to="+parser.FormatTimestamp(*f.to))
	}
	if f.keyword != "" {
		parts = append(parts, "keyword="+f.keyword)
	}
	return strings.Join(parts, " ")
}
