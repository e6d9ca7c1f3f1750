package output

import (
	"context"
	"fmt"
	"io"
)

// Formatter renders analysis results in a specific format.
type Formatter interface {
	// Format renders the report to the given writer.
	Format(ctx context.Context, report *Report, w io.Writer) error

	// Name returns the format name (text, json, chart).
	Name() string
}

// FormatOptions controls formatter behavior.
type FormatOptions struct {
	// Verbose adds the malformed breakdown, sources and timing.
	Verbose bool

	// Quiet enables minimal summary-only output.
	Quiet bool

	// NoColor disables ANSI styling even on a terminal.
	NoColor bool

	// Width is the chart width in columns. Zero means DefaultChartWidth.
	Width int
}

// Formats lists the names accepted by NewFormatter.
var Formats = []string{"text", "json", "chart"}

// NewFormatter returns the formatter registered under name.
func NewFormatter(name string, opts FormatOptions) (Formatter, error) {
	switch name {
	case "text", "":
		return NewTextFormatter(opts), nil
	case "json":
		return NewJSONFormatter(opts), nil
	case "chart":
		return NewChartFormatter(opts), nil
	default:
		return nil, fmt.Errorf("invalid output format %q (must be text, json or chart)", name)
	}
}
