// Package output builds the exportable summary of an analysis and renders
// it as text, JSON or terminal charts.
package output

import (
	"sort"
	"time"

	"github.com/ccollicutt/loglens/pkg/analyzer"
	"github.com/ccollicutt/loglens/pkg/filter"
	"github.com/ccollicutt/loglens/pkg/parser"
)

// TopErrorsLimit is the maximum length of Summary.CommonErrors.
const TopErrorsLimit = 10

// Counts holds the per-level record counts.
type Counts struct {
	Info    int `json:"info"`
	Warning int `json:"warning"`
	Error   int `json:"error"`
}

// ErrorCount is one entry of the top error list.
type ErrorCount struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// TimelineEntry is one timeline bucket rendered for export.
type TimelineEntry struct {
	Bucket string `json:"bucket"`
	Count  int    `json:"count"`
}

// Summary is the exportable result of an analysis. Timestamps are
// rendered as "YYYY-MM-DD HH:MM:SS". CommonErrors and Timeline are never
// nil so an empty run serializes as empty arrays.
type Summary struct {
	TotalEntries   int             `json:"total_entries"`
	Counts         Counts          `json:"counts"`
	MalformedLines int             `json:"malformed_lines"`
	FirstLog       *string         `json:"first_log"`
	LastLog        *string         `json:"last_log"`
	CommonErrors   []ErrorCount    `json:"common_errors"`
	Timeline       []TimelineEntry `json:"timeline"`
}

// BuildSummary derives the Summary from a finished State. It does not
// modify the state and returns equal values for equal states.
//
// Filters are carried for reporting only and do not change the aggregates;
// see Metadata.Filters.
func BuildSummary(state *analyzer.State, _ *filter.Filters) Summary {
	s := Summary{
		TotalEntries: state.Counts.Total(),
		Counts: Counts{
			Info:    state.Counts.Info,
			Warning: state.Counts.Warning,
			Error:   state.Counts.Error,
		},
		MalformedLines: state.Malformed.Total(),
		CommonErrors:   topErrors(state.ErrorMessages, TopErrorsLimit),
		Timeline:       make([]TimelineEntry, 0, len(state.Timeline)),
	}

	if state.HasRecords() {
		first := parser.FormatTimestamp(state.First)
		last := parser.FormatTimestamp(state.Last)
		s.FirstLog = &first
		s.LastLog = &last
	}

	for _, b := range state.SortedTimeline() {
		s.Timeline = append(s.Timeline, TimelineEntry{
			Bucket: parser.FormatTimestamp(b.Start),
			Count:  b.Count,
		})
	}

	return s
}

// topErrors orders messages by count descending, then message ascending,
// and keeps the first n.
func topErrors(freq map[string]int, n int) []ErrorCount {
	errs := make([]ErrorCount, 0, len(freq))
	for msg, count := range freq {
		errs = append(errs, ErrorCount{Message: msg, Count: count})
	}

	sort.Slice(errs, func(i, j int) bool {
		if errs[i].Count != errs[j].Count {
			return errs[i].Count > errs[j].Count
		}
		return errs[i].Message < errs[j].Message
	})

	if len(errs) > n {
		errs = errs[:n]
	}
	return errs
}

// Report is the complete analysis output.
type Report struct {
	// Summary provides aggregate statistics.
	Summary Summary `json:"summary"`

	// Metadata provides context about the analysis.
	Metadata Metadata `json:"metadata"`
}

// Metadata provides context about the analysis run.
type Metadata struct {
	// ConfigFile is the path to the configuration file used, if any.
	ConfigFile string `json:"config_file,omitempty"`

	// Sources lists the log files that were analyzed.
	Sources []string `json:"sources"`

	// Granularity is the timeline bucket width.
	Granularity analyzer.Granularity `json:"granularity"`

	// Filters echoes the filter values given by the user.
	Filters filter.Criteria `json:"filters"`

	// Malformed breaks MalformedLines down by reason.
	Malformed analyzer.MalformedCounts `json:"malformed"`

	// AnalyzedAt is when the analysis was performed.
	AnalyzedAt time.Time `json:"analyzed_at"`

	// Duration is how long the analysis took.
	Duration time.Duration `json:"duration_ns"`
}

// NewReport creates a Report from a finished state.
func NewReport(state *analyzer.State, filters *filter.Filters, sources []string) *Report {
	if sources == nil {
		sources = []string{}
	}
	return &Report{
		Summary: BuildSummary(state, filters),
		Metadata: Metadata{
			Sources:     sources,
			Granularity: state.Granularity,
			Filters:     filters.Criteria(),
			Malformed:   state.Malformed,
		},
	}
}

// HasErrors returns true if any Error-level record was seen.
func (r *Report) HasErrors() bool {
	return r.Summary.Counts.Error > 0
}
