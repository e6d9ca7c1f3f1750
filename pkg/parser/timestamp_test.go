package parser

import (
	"errors"
	"testing"
	"time"
)

func TestTimestampResolver_Resolve(t *testing.T) {
	r := NewTimestampResolver(nil)

	tests := []struct {
		name    string
		raw     string
		want    time.Time
		wantErr bool
	}{
		{
			name: "space separated",
			raw:  "2025-09-05 14:32:10",
			want: time.Date(2025, 9, 5, 14, 32, 10, 0, time.UTC),
		},
		{
			name: "comma fraction",
			raw:  "2025-09-05 14:32:10,123",
			want: time.Date(2025, 9, 5, 14, 32, 10, 123000000, time.UTC),
		},
		{
			name: "dot fraction",
			raw:  "2025-09-05 14:32:10.5",
			want: time.Date(2025, 9, 5, 14, 32, 10, 500000000, time.UTC),
		},
		{
			name: "T separator",
			raw:  "2025-09-05T14:32:10",
			want: time.Date(2025, 9, 5, 14, 32, 10, 0, time.UTC),
		},
		{
			name: "zulu marker discarded",
			raw:  "2025-09-05T14:32:10Z",
			want: time.Date(2025, 9, 5, 14, 32, 10, 0, time.UTC),
		},
		{
			name: "positive offset discarded",
			raw:  "2025-09-05T14:32:10+02:00",
			want: time.Date(2025, 9, 5, 14, 32, 10, 0, time.UTC),
		},
		{
			name: "negative compact offset discarded",
			raw:  "2025-09-05T14:32:10.250-0700",
			want: time.Date(2025, 9, 5, 14, 32, 10, 250000000, time.UTC),
		},
		{
			name:    "month out of range",
			raw:     "2025-13-05 14:32:10",
			wantErr: true,
		},
		{
			name:    "day out of range",
			raw:     "2025-02-30T10:00:00Z",
			wantErr: true,
		},
		{
			name:    "not a timestamp",
			raw:     "yesterday",
			wantErr: true,
		},
		{
			name:    "empty",
			raw:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if tt.wantErr {
				var tsErr *TimestampError
				if !errors.As(err, &tsErr) || tsErr.Raw != tt.raw {
					t.Errorf("Resolve(%q) error = %#v, want *TimestampError carrying the input", tt.raw, err)
				}
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("Resolve(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			if got.Location() != time.UTC {
				t.Errorf("Resolve(%q) location = %v, want UTC", tt.raw, got.Location())
			}
		})
	}
}

func TestTimestampResolver_ResolveSyslog(t *testing.T) {
	clock := FixedClock(time.Date(2025, 11, 20, 8, 0, 0, 0, time.UTC))
	r := NewTimestampResolver(clock)

	tests := []struct {
		name    string
		raw     string
		want    time.Time
		wantErr bool
	}{
		{
			name: "padded day",
			raw:  "Sep  5 14:32:10",
			want: time.Date(2025, 9, 5, 14, 32, 10, 0, time.UTC),
		},
		{
			name: "two digit day",
			raw:  "Dec 31 23:59:59",
			want: time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC),
		},
		{
			name:    "feb 29 outside leap year",
			raw:     "Feb 29 10:00:00",
			wantErr: true,
		},
		{
			name:    "impossible day",
			raw:     "Feb 30 10:00:00",
			wantErr: true,
		},
		{
			name:    "unknown month",
			raw:     "Foo 5 10:00:00",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveSyslog(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveSyslog(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ResolveSyslog(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestTimestampResolver_ResolveSyslogLeapYear(t *testing.T) {
	r := NewTimestampResolver(FixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	got, err := r.ResolveSyslog("Feb 29 10:00:00")
	if err != nil {
		t.Fatalf("ResolveSyslog() error = %v", err)
	}
	want := time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ResolveSyslog() = %v, want %v", got, want)
	}
}

func TestTimestampResolver_ClockIsConsultedPerCall(t *testing.T) {
	year := 2023
	r := NewTimestampResolver(ClockFunc(func() time.Time {
		return time.Date(year, 6, 1, 0, 0, 0, 0, time.UTC)
	}))

	first, _ := r.ResolveSyslog("Jan 1 00:00:00")
	year = 2026
	second, _ := r.ResolveSyslog("Jan 1 00:00:00")

	if first.Year() != 2023 || second.Year() != 2026 {
		t.Errorf("years = %d, %d, want 2023, 2026", first.Year(), second.Year())
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2025, 9, 5, 4, 2, 1, 999000000, time.UTC)
	if got := FormatTimestamp(ts); got != "2025-09-05 04:02:01" {
		t.Errorf("FormatTimestamp() = %q, want %q", got, "2025-09-05 04:02:01")
	}
}
