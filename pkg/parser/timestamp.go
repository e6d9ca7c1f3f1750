package parser

import (
	"fmt"
	"strings"
	"time"
)

// DisplayLayout is the fixed rendering for timestamps in reports.
const DisplayLayout = "2006-01-02 15:04:05"

// Clock supplies the current time. It is only consulted for timestamps
// that carry no year.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the local wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// FixedClock returns a Clock that always reports t.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// TimestampError reports a timestamp substring that no known layout accepts.
type TimestampError struct {
	Raw string
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("unrecognized timestamp %q", e.Raw)
}

// Layouts tried in order by Resolve. Fractional seconds (with a dot or a
// comma) are accepted after the seconds field even though the layouts do
// not spell them out.
var dateTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05-0700",
}

// Retried after stripping a trailing Z marker.
var zuluFallbackLayouts = []string{
	"2006-01-02T15:04:05",
}

const syslogLayout = "Jan 2 15:04:05"

// TimestampResolver converts raw timestamp substrings into naive times.
type TimestampResolver struct {
	clock Clock
}

// NewTimestampResolver creates a resolver. A nil clock means SystemClock.
func NewTimestampResolver(clock Clock) *TimestampResolver {
	if clock == nil {
		clock = SystemClock
	}
	return &TimestampResolver{clock: clock}
}

// Resolve parses a date+time substring. Zone markers are recognized and
// then dropped: the wall clock as written is kept and placed in time.UTC.
func (r *TimestampResolver) Resolve(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return naive(t), nil
		}
	}

	if head, ok := strings.CutSuffix(s, "Z"); ok {
		for _, layout := range zuluFallbackLayouts {
			if t, err := time.Parse(layout, head); err == nil {
				return naive(t), nil
			}
		}
	}

	return time.Time{}, &TimestampError{Raw: raw}
}

// ResolveSyslog parses a "Mon day hh:mm:ss" triple, which has no year, by
// substituting the clock's current year. Dates that do not exist in that
// year (Feb 29 outside a leap year) fail.
func (r *TimestampResolver) ResolveSyslog(raw string) (time.Time, error) {
	s := strings.Join(strings.Fields(raw), " ")
	t, err := time.Parse(syslogLayout, s)
	if err != nil {
		return time.Time{}, &TimestampError{Raw: raw}
	}

	year := r.clock.Now().Year()
	resolved := time.Date(year, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
	if resolved.Month() != t.Month() || resolved.Day() != t.Day() {
		return time.Time{}, &TimestampError{Raw: raw}
	}
	return resolved, nil
}

func naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// FormatTimestamp renders t in DisplayLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(DisplayLayout)
}
