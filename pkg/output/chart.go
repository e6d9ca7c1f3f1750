package output

import (
	"context"
	"fmt"
	"io"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// DefaultChartWidth is the chart width used when none is configured.
const DefaultChartWidth = 60

const chartHeight = 10

type chartStyles struct {
	levels   map[string]lipgloss.Style
	timeline lipgloss.Style
}

// newChartStyles binds the bar colors to w so that files and pipes get
// plain bars.
func newChartStyles(w io.Writer, noColor bool) chartStyles {
	r := lipgloss.NewRenderer(w)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}
	bar := func(c string) lipgloss.Style {
		return r.NewStyle().Foreground(lipgloss.Color(c)).Background(lipgloss.Color(c))
	}
	return chartStyles{
		levels: map[string]lipgloss.Style{
			"INFO":    bar("39"),
			"WARNING": bar("208"),
			"ERROR":   bar("196"),
		},
		timeline: bar("99"),
	}
}

// ChartFormatter renders the level counts and the timeline as terminal
// bar charts followed by a plain-text legend.
type ChartFormatter struct {
	opts FormatOptions
}

// NewChartFormatter creates a new chart formatter with the given options.
func NewChartFormatter(opts FormatOptions) *ChartFormatter {
	return &ChartFormatter{opts: opts}
}

// Name returns the format name.
func (f *ChartFormatter) Name() string {
	return "chart"
}

// Format renders both charts.
func (f *ChartFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	st := newChartStyles(w, f.opts.NoColor)
	if err := writeLevelChart(w, report.Summary, f.opts.Width, st); err != nil {
		return err
	}
	if f.opts.Quiet {
		return nil
	}
	fmt.Fprintln(w)
	return writeTimelineChart(w, report.Summary, f.opts.Width, st)
}

// WriteLevelChart draws one bar per level. Colors follow what w supports.
func WriteLevelChart(w io.Writer, s Summary, width int) error {
	return writeLevelChart(w, s, width, newChartStyles(w, false))
}

func writeLevelChart(w io.Writer, s Summary, width int, st chartStyles) error {
	if width <= 0 {
		width = DefaultChartWidth
	}

	bars := []levelBar{
		{"INFO", s.Counts.Info},
		{"WARNING", s.Counts.Warning},
		{"ERROR", s.Counts.Error},
	}

	if _, err := fmt.Fprintln(w, "Logs per Level"); err != nil {
		return err
	}
	if s.TotalEntries > 0 {
		if _, err := fmt.Fprintln(w, levelBars(bars, width, st)); err != nil {
			return err
		}
	}
	for _, b := range bars {
		if _, err := fmt.Fprintf(w, "  %-8s %d\n", b.name, b.count); err != nil {
			return err
		}
	}
	return nil
}

type levelBar struct {
	name  string
	count int
}

func levelBars(bars []levelBar, width int, st chartStyles) string {
	barWidth := max((width-2*len(bars))/len(bars), 1)
	bc := barchart.New(width, chartHeight,
		barchart.WithBarGap(2),
		barchart.WithBarWidth(barWidth),
		barchart.WithNoAxis(),
	)
	for _, b := range bars {
		bc.Push(barchart.BarData{
			Label: b.name,
			Values: []barchart.BarValue{
				{Name: b.name, Value: float64(b.count), Style: st.levels[b.name]},
			},
		})
	}
	bc.Draw()
	return bc.View()
}

// WriteTimelineChart draws one bar per timeline bucket. When there are more
// buckets than fit in width, the most recent ones are shown.
func WriteTimelineChart(w io.Writer, s Summary, width int) error {
	return writeTimelineChart(w, s, width, newChartStyles(w, false))
}

func writeTimelineChart(w io.Writer, s Summary, width int, st chartStyles) error {
	if width <= 0 {
		width = DefaultChartWidth
	}

	if _, err := fmt.Fprintln(w, "Log Frequency Over Time"); err != nil {
		return err
	}
	if len(s.Timeline) == 0 {
		_, err := fmt.Fprintln(w, "  No timeline data available")
		return err
	}

	maxBars := max(width/2, 1)
	entries := s.Timeline
	if len(entries) > maxBars {
		entries = entries[len(entries)-maxBars:]
	}

	bc := barchart.New(width, chartHeight,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(1),
		barchart.WithNoAxis(),
	)

	peak := entries[0]
	for _, e := range entries {
		bc.Push(barchart.BarData{
			Label: "",
			Values: []barchart.BarValue{
				{Name: e.Bucket, Value: float64(e.Count), Style: st.timeline},
			},
		})
		if e.Count > peak.Count {
			peak = e
		}
	}
	bc.Draw()

	if _, err := fmt.Fprintln(w, bc.View()); err != nil {
		return err
	}

	if len(entries) < len(s.Timeline) {
		fmt.Fprintf(w, "  showing last %d of %d buckets\n", len(entries), len(s.Timeline))
	}
	fmt.Fprintf(w, "  from: %s\n", entries[0].Bucket)
	fmt.Fprintf(w, "  to:   %s\n", entries[len(entries)-1].Bucket)
	_, err := fmt.Fprintf(w, "  peak: %s (%d)\n", peak.Bucket, peak.Count)
	return err
}
