// Package analyzer folds parsed log lines into running aggregates.
//
// An Analyzer owns a State for the duration of a run. States built from
// disjoint sets of lines can be combined with State.Merge, which is how
// files analyzed in parallel are brought back together.
package analyzer

import (
	"fmt"
	"strings"
	"time"
)

// Granularity selects the width of timeline buckets.
type Granularity string

const (
	GranularityMinute Granularity = "minute"
	GranularityHour   Granularity = "hour"
	GranularityDay    Granularity = "day"
)

// DefaultGranularity is used when none is configured.
const DefaultGranularity = GranularityHour

// ParseGranularity converts a user-supplied name (case-insensitive).
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case GranularityMinute, GranularityHour, GranularityDay:
		return g, nil
	default:
		return "", fmt.Errorf("invalid granularity %q (must be minute, hour or day)", s)
	}
}

// Valid reports whether g is one of the known granularities.
func (g Granularity) Valid() bool {
	_, err := ParseGranularity(string(g))
	return err == nil
}

// Width returns the length of one bucket.
func (g Granularity) Width() time.Duration {
	switch g {
	case GranularityMinute:
		return time.Minute
	case GranularityDay:
		return 24 * time.Hour
	default:
		return time.Hour
	}
}

// Bucket truncates t down to the start of its bucket. Buckets are half-open
// intervals [start, start+Width). Day buckets start at midnight of the
// calendar date.
func (g Granularity) Bucket(t time.Time) time.Time {
	switch g {
	case GranularityMinute:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
	case GranularityDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	}
}

// MalformedReason says why a line produced no record.
type MalformedReason string

const (
	// ReasonUnmatched means no pattern recognized the line's shape.
	ReasonUnmatched MalformedReason = "unmatched"

	// ReasonInvalidTimestamp means a pattern matched but its timestamp
	// could not be resolved.
	ReasonInvalidTimestamp MalformedReason = "invalid_timestamp"

	// ReasonUnreadable means the line could not be read intact.
	ReasonUnreadable MalformedReason = "unreadable"
)

// MalformedCounts breaks the malformed line count down by reason.
type MalformedCounts struct {
	Unmatched        int `json:"unmatched"`
	InvalidTimestamp int `json:"invalid_timestamp"`
	Unreadable       int `json:"unreadable"`
}

// Total returns the number of malformed lines for all reasons.
func (m MalformedCounts) Total() int {
	return m.Unmatched + m.InvalidTimestamp + m.Unreadable
}

func (m *MalformedCounts) add(reason MalformedReason) {
	switch reason {
	case ReasonInvalidTimestamp:
		m.InvalidTimestamp++
	case ReasonUnreadable:
		m.Unreadable++
	default:
		m.Unmatched++
	}
}

// MalformedLine describes one line that produced no record.
type MalformedLine struct {
	// Source is the file the line came from, if known.
	Source string

	// LineNum is the 1-based line number in Source.
	LineNum int

	// Content is the raw line. Empty for unreadable lines.
	Content string

	// Reason classifies the failure.
	Reason MalformedReason

	// Pattern names the pattern that matched structurally, if any.
	Pattern string

	// Err is the underlying parse or read error.
	Err error
}

// TimelineBucket is one entry of the sorted timeline.
type TimelineBucket struct {
	Start time.Time
	Count int
}
