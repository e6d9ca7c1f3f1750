package output

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/ccollicutt/loglens/pkg/parser"
)

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

type textStyles struct {
	heading lipgloss.Style
	label   lipgloss.Style
	dim     lipgloss.Style
	levels  map[parser.Level]lipgloss.Style
}

func newTextStyles(w io.Writer, noColor bool) textStyles {
	r := lipgloss.NewRenderer(w)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}
	return textStyles{
		heading: r.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#60A5FA"}),
		label:   r.NewStyle().Bold(true),
		dim:     r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}),
		levels: map[parser.Level]lipgloss.Style{
			parser.LevelInfo:    r.NewStyle().Foreground(lipgloss.Color("39")),
			parser.LevelWarning: r.NewStyle().Foreground(lipgloss.Color("208")),
			parser.LevelError:   r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		},
	}
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	st := newTextStyles(w, f.opts.NoColor)
	if f.opts.Quiet {
		return f.formatQuiet(report, st, w)
	}
	return f.formatFull(report, st, w)
}

func (f *TextFormatter) formatQuiet(report *Report, st textStyles, w io.Writer) error {
	s := report.Summary
	_, err := fmt.Fprintf(w, "loglens: %d entries (%s=%d, %s=%d, %s=%d), %d malformed\n",
		s.TotalEntries,
		st.levels[parser.LevelInfo].Render("INFO"), s.Counts.Info,
		st.levels[parser.LevelWarning].Render("WARNING"), s.Counts.Warning,
		st.levels[parser.LevelError].Render("ERROR"), s.Counts.Error,
		s.MalformedLines)
	return err
}

func (f *TextFormatter) formatFull(report *Report, st textStyles, w io.Writer) error {
	s := report.Summary

	// Header
	fmt.Fprintln(w, st.heading.Render("====== SUMMARY ======"))
	fmt.Fprintf(w, "%s %d\n", st.label.Render("Total entries:"), s.TotalEntries)
	fmt.Fprintf(w, "%s %s=%d, %s=%d, %s=%d\n",
		st.label.Render("Counts:"),
		st.levels[parser.LevelInfo].Render("INFO"), s.Counts.Info,
		st.levels[parser.LevelWarning].Render("WARNING"), s.Counts.Warning,
		st.levels[parser.LevelError].Render("ERROR"), s.Counts.Error)
	fmt.Fprintf(w, "%s %d\n", st.label.Render("Malformed lines:"), s.MalformedLines)

	if f.opts.Verbose && s.MalformedLines > 0 {
		m := report.Metadata.Malformed
		fmt.Fprintln(w, st.dim.Render(fmt.Sprintf("  unmatched=%d invalid_timestamp=%d unreadable=%d",
			m.Unmatched, m.InvalidTimestamp, m.Unreadable)))
	}

	if s.FirstLog != nil {
		fmt.Fprintf(w, "%s %s\n", st.label.Render("First log:"), *s.FirstLog)
	}
	if s.LastLog != nil {
		fmt.Fprintf(w, "%s  %s\n", st.label.Render("Last log:"), *s.LastLog)
	}

	if len(s.CommonErrors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, st.heading.Render("Top error messages:"))
		for _, e := range s.CommonErrors {
			fmt.Fprintf(w, "  %6d  %s\n", e.Count, e.Message)
		}
	}

	if f.opts.Verbose {
		md := report.Metadata
		fmt.Fprintln(w)
		fmt.Fprintln(w, st.dim.Render("---"))
		fmt.Fprintf(w, "Sources: %d file(s)\n", len(md.Sources))
		for _, src := range md.Sources {
			fmt.Fprintf(w, "  %s\n", src)
		}
		fmt.Fprintf(w, "Granularity: %s (%d bucket(s))\n", md.Granularity, len(s.Timeline))
		fmt.Fprintf(w, "Filters: %s\n", describeCriteria(md))
		fmt.Fprintf(w, "Duration: %s\n", md.Duration.Round(1e6))
	}

	return nil
}

func describeCriteria(md Metadata) string {
	c := md.Filters
	if c.IsZero() {
		return "none"
	}

	var parts []string
	for _, kv := range [][2]string{
		{"level", c.Level}, {"from", c.From}, {"to", c.To}, {"keyword", c.Keyword},
	} {
		if kv[1] != "" {
			parts = append(parts, fmt.Sprintf("%s=%q", kv[0], kv[1]))
		}
	}
	return strings.Join(parts, " ") + " (not applied to counts)"
}
