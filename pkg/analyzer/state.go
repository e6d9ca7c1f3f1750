package analyzer

import (
	"fmt"
	"sort"
	"time"

	"github.com/ccollicutt/loglens/pkg/parser"
)

// LevelCounts holds one counter per level. All three are always present.
type LevelCounts struct {
	Info    int `json:"info"`
	Warning int `json:"warning"`
	Error   int `json:"error"`
}

// Get returns the counter for lv.
func (c LevelCounts) Get(lv parser.Level) int {
	switch lv {
	case parser.LevelWarning:
		return c.Warning
	case parser.LevelError:
		return c.Error
	default:
		return c.Info
	}
}

// Total returns the sum of all three counters.
func (c LevelCounts) Total() int {
	return c.Info + c.Warning + c.Error
}

func (c *LevelCounts) inc(lv parser.Level) {
	switch lv {
	case parser.LevelWarning:
		c.Warning++
	case parser.LevelError:
		c.Error++
	default:
		c.Info++
	}
}

// State is the running aggregate of one analysis. It is not safe for
// concurrent use; parallel analyses build one State each and merge them.
type State struct {
	Granularity Granularity

	// Counts has one counter per level.
	Counts LevelCounts

	// Malformed counts lines that yielded no record.
	Malformed MalformedCounts

	// First and Last bound the record timestamps. Both are zero until a
	// record has been added.
	First time.Time
	Last  time.Time

	// Timeline maps bucket start to the number of records in the bucket.
	Timeline map[time.Time]int

	// ErrorMessages maps exact Error-level message text to its frequency.
	ErrorMessages map[string]int
}

// NewState creates an empty State for granularity g.
func NewState(g Granularity) *State {
	return &State{
		Granularity:   g,
		Timeline:      make(map[time.Time]int),
		ErrorMessages: make(map[string]int),
	}
}

// Records returns the number of records added.
func (s *State) Records() int {
	return s.Counts.Total()
}

// Lines returns the number of lines seen, records plus malformed.
func (s *State) Lines() int {
	return s.Records() + s.Malformed.Total()
}

// HasRecords reports whether First and Last are set.
func (s *State) HasRecords() bool {
	return s.Records() > 0
}

// Add folds one record into the state.
func (s *State) Add(r parser.Record) {
	s.extend(r.Timestamp, r.Timestamp)
	s.Counts.inc(r.Level)
	s.Timeline[s.Granularity.Bucket(r.Timestamp)]++

	if r.Level == parser.LevelError {
		s.ErrorMessages[r.Message]++
	}
}

// AddMalformed counts one line that yielded no record.
func (s *State) AddMalformed(reason MalformedReason) {
	s.Malformed.add(reason)
}

func (s *State) extend(first, last time.Time) {
	if !s.HasRecords() {
		s.First, s.Last = first, last
		return
	}
	if first.Before(s.First) {
		s.First = first
	}
	if last.After(s.Last) {
		s.Last = last
	}
}

// Merge adds other into s: counters and maps are summed pointwise and the
// first/last bounds are widened. Merging is commutative and associative.
// Both states must use the same granularity.
func (s *State) Merge(other *State) error {
	if other == nil {
		return nil
	}
	if other.Granularity != s.Granularity {
		return fmt.Errorf("cannot merge %s state into %s state", other.Granularity, s.Granularity)
	}

	if other.HasRecords() {
		s.extend(other.First, other.Last)
	}

	s.Counts.Info += other.Counts.Info
	s.Counts.Warning += other.Counts.Warning
	s.Counts.Error += other.Counts.Error

	s.Malformed.Unmatched += other.Malformed.Unmatched
	s.Malformed.InvalidTimestamp += other.Malformed.InvalidTimestamp
	s.Malformed.Unreadable += other.Malformed.Unreadable

	for bucket, n := range other.Timeline {
		s.Timeline[bucket] += n
	}
	for msg, n := range other.ErrorMessages {
		s.ErrorMessages[msg] += n
	}

	return nil
}

// SortedTimeline returns the timeline in ascending bucket order.
func (s *State) SortedTimeline() []TimelineBucket {
	buckets := make([]TimelineBucket, 0, len(s.Timeline))
	for start, n := range s.Timeline {
		buckets = append(buckets, TimelineBucket{Start: start, Count: n})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Start.Before(buckets[j].Start)
	})
	return buckets
}
