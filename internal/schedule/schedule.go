// Package schedule provides the calendar sources consulted by the
// availability evaluator: a Google Calendar events feed, an ICS feed and a
// static weekly timetable. Every source returns the intervals of one
// calendar day in the reference location.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/garyellow/campus-assist-go/internal/availability"
	domerrors "github.com/garyellow/campus-assist-go/internal/errors"
)

// Fetcher retrieves a remote document. *scraper.Client satisfies it.
type Fetcher interface {
	GetBytes(ctx context.Context, source, url string) ([]byte, string, error)
}

// SkipRecorder counts events that could not be turned into intervals.
type SkipRecorder interface {
	RecordEventsSkipped(source string, n int)
}

// DecodeStats describes one decoded feed.
type DecodeStats struct {
	Events  int // events seen
	Skipped int // events dropped because their times were missing or unparsable
}

// Source is re-exported so callers can depend on this package alone.
type Source = availability.Source

var _ Source = (*GoogleCalendar)(nil)
var _ Source = (*ICSFeed)(nil)
var _ Source = (*Timetable)(nil)
var _ Source = (*Caching)(nil)

// DayBounds returns 00:00:00 and 23:59:59 of the calendar day containing
// day, both in loc.
func DayBounds(day time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = day.Location()
	}
	d := day.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1).Add(-time.Second)
	return start, end
}

// fetchFailure marks err as a schedule fetch failure.
func fetchFailure(source string, err error) error {
	return fmt.Errorf("%w: %s: %w", domerrors.ErrFetchFailure, source, err)
}

func recordSkipped(r SkipRecorder, source string, stats DecodeStats) {
	if r != nil && stats.Skipped > 0 {
		r.RecordEventsSkipped(source, stats.Skipped)
	}
}
