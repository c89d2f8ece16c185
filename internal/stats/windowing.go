package stats

import (
	"fmt"
	"time"
)

// MonthBoundary is a calendar month in UTC with inclusive start and end instants.
type MonthBoundary struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Start time.Time  `json:"start"`
	End   time.Time  `json:"end"`
}

// NewMonthBoundary returns the boundary of the given month. End is the last microsecond of the
// month (23:59:59.999999), so 28/29/30/31-day months and leap years fall out of the calendar.
func NewMonthBoundary(year int, month time.Month) MonthBoundary {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	next := start.AddDate(0, 1, 0)
	return MonthBoundary{
		Year:  start.Year(),
		Month: start.Month(),
		Start: start,
		End:   next.Add(-time.Microsecond),
	}
}

// GenerateMonthBoundaries returns one boundary per month from the month containing start through
// the month containing end, inclusive and in order. A zero end means now. An end before start yields
// no months.
func GenerateMonthBoundaries(start, end time.Time) []MonthBoundary {
	if end.IsZero() {
		end = time.Now()
	}
	start, end = start.UTC(), end.UTC()

	last := NewMonthBoundary(end.Year(), end.Month())
	var months []MonthBoundary
	for current := NewMonthBoundary(start.Year(), start.Month()); !current.Start.After(last.Start); {
		months = append(months, current)
		next := current.Start.AddDate(0, 1, 0)
		current = NewMonthBoundary(next.Year(), next.Month())
	}
	return months
}

// ParseMonthKey parses a "YYYY-MM" key.
func ParseMonthKey(key string) (MonthBoundary, error) {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return MonthBoundary{}, fmt.Errorf("invalid month %q, expected YYYY-MM: %w", key, err)
	}
	return NewMonthBoundary(t.Year(), t.Month()), nil
}

// Key returns the sortable month key, e.g. "2025-03".
func (b MonthBoundary) Key() string {
	return fmt.Sprintf("%04d-%02d", b.Year, int(b.Month))
}

// Contains reports whether t lies within [Start, End].
func (b MonthBoundary) Contains(t time.Time) bool {
	return !t.Before(b.Start) && !t.After(b.End)
}

// IsPartial returns true if the month includes "now", indicating incomplete data.
func (b MonthBoundary) IsPartial() bool {
	return b.Contains(time.Now())
}

// GenerateLabel returns a human-readable label such as "Jan 2025".
func (b MonthBoundary) GenerateLabel() string {
	return b.Start.Format("Jan 2006")
}
