// Package parser turns raw log lines into structured records.
//
// A LineParser holds an ordered list of LinePatterns. Each line is tried
// against the patterns in priority order and the first structural match
// wins; the captured timestamp is then resolved by a TimestampResolver.
package parser

import (
	"fmt"
	"strings"
	"time"
)

// Level is the severity of a log record.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

// Levels lists every level in report order.
var Levels = []Level{LevelInfo, LevelWarning, LevelError}

// String returns the canonical upper-case token for the level.
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using strict parsing.
func (l *Level) UnmarshalText(text []byte) error {
	lv, err := LookupLevel(string(text))
	if err != nil {
		return err
	}
	*l = lv
	return nil
}

// NormalizeLevel maps a level token captured from a log line to a Level.
// Matching is case-insensitive and surrounding brackets are ignored.
// WARN and WARNING both map to LevelWarning. Any other token is LevelInfo.
func NormalizeLevel(token string) Level {
	switch strings.ToUpper(strings.Trim(token, "[] \t")) {
	case "ERROR":
		return LevelError
	case "WARNING", "WARN":
		return LevelWarning
	default:
		return LevelInfo
	}
}

// LookupLevel parses a user-supplied level name. Unlike NormalizeLevel it
// rejects unknown names.
func LookupLevel(name string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "INFO":
		return LevelInfo, nil
	case "WARNING", "WARN":
		return LevelWarning, nil
	case "ERROR":
		return LevelError, nil
	default:
		return 0, fmt.Errorf("unknown level %q (must be info, warning or error)", name)
	}
}

// Record is one successfully parsed log line. Timestamps are naive: they
// carry the wall clock exactly as written in the log and live in time.UTC.
type Record struct {
	Timestamp time.Time
	Level     Level
	Message   string
}

// LogLine is a raw log line before parsing.
type LogLine struct {
	// Content is the raw line text without the trailing newline.
	Content string

	// Source is the file path this line came from.
	Source string

	// LineNum is the 1-based line number in the source file.
	LineNum int

	// Err is set when the line itself could not be read intact
	// (for example invalid UTF-8 or an oversized line).
	Err error
}
