package schedule

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/garyellow/campus-assist-go/internal/availability"
)

const icsSource = "ics"

// ICSFeed reads an iCalendar feed from an http(s) or webcal URL, or from a
// local file path.
type ICSFeed struct {
	URL      string
	Location *time.Location
	Fetcher  Fetcher
	Metrics  SkipRecorder
}

// Intervals lists the timed occurrences overlapping the day containing
// day. Recurring events are expanded and their EXDATEs removed.
func (f *ICSFeed) Intervals(ctx context.Context, day time.Time) ([]availability.Interval, error) {
	body, err := f.read(ctx)
	if err != nil {
		return nil, fetchFailure(icsSource, err)
	}

	intervals, stats, err := DecodeICS(body, day, f.Location)
	if err != nil {
		return nil, fetchFailure(icsSource, err)
	}
	recordSkipped(f.Metrics, icsSource, stats)
	if stats.Skipped > 0 {
		slog.DebugContext(ctx, "Skipped calendar events without usable times",
			"source", icsSource,
			"skipped", stats.Skipped,
			"events", stats.Events)
	}
	return intervals, nil
}

func (f *ICSFeed) read(ctx context.Context) ([]byte, error) {
	u := f.URL
	if rest, ok := strings.CutPrefix(u, "webcal://"); ok {
		u = "https://" + rest
	}
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		if f.Fetcher == nil {
			return nil, errors.New("no fetcher configured")
		}
		body, _, err := f.Fetcher.GetBytes(ctx, icsSource, u)
		return body, err
	}
	return os.ReadFile(u)
}

// DecodeICS parses an iCalendar document and returns the occurrences that
// overlap the day containing day in loc. All-day events and events with
// unusable DTSTART, DTEND or RRULE values are counted as skipped.
func DecodeICS(body []byte, day time.Time, loc *time.Location) ([]availability.Interval, DecodeStats, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, DecodeStats{}, errors.New("empty calendar")
	}
	if loc == nil {
		loc = day.Location()
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, DecodeStats{}, fmt.Errorf("failed to parse calendar: %w", err)
	}

	dayStart, dayEnd := DayBounds(day, loc)
	var (
		stats     DecodeStats
		intervals []availability.Interval
	)

	for _, ve := range cal.Events() {
		stats.Events++

		starts, dur, ok := occurrences(ve, loc, dayStart, dayEnd)
		if !ok {
			stats.Skipped++
			continue
		}

		summary := ""
		if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
			summary = p.Value
		}
		for _, s := range starts {
			e := s.Add(dur)
			if e.Before(dayStart) || s.After(dayEnd) {
				continue
			}
			intervals = append(intervals, availability.Interval{
				Identity: availability.ExtractIdentity(summary),
				Title:    summary,
				Start:    s,
				End:      e,
			})
		}
	}
	return intervals, stats, nil
}

// occurrences returns the start instants of ve that may overlap
// [dayStart, dayEnd] and the event duration. ok is false when the event
// cannot be used.
func occurrences(ve *ical.VEvent, loc *time.Location, dayStart, dayEnd time.Time) ([]time.Time, time.Duration, bool) {
	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return nil, 0, false
	}
	start, allDay, err := parseICSTime(startProp.Value, startProp.ICalParameters, loc)
	if err != nil || allDay {
		return nil, 0, false
	}

	end := start
	if endProp := ve.GetProperty(ical.ComponentPropertyDtEnd); endProp != nil {
		e, endAllDay, err := parseICSTime(endProp.Value, endProp.ICalParameters, loc)
		if err != nil || endAllDay || e.Before(start) {
			return nil, 0, false
		}
		end = e
	}
	dur := end.Sub(start)

	rruleProp := ve.GetProperty(ical.ComponentPropertyRrule)
	if rruleProp == nil || strings.TrimSpace(rruleProp.Value) == "" {
		return []time.Time{start}, dur, true
	}

	r, err := rrule.StrToRRule(rruleProp.Value)
	if err != nil {
		return nil, 0, false
	}
	r.DTStart(start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(ex.Value, ",") {
			t, _, err := parseICSTime(part, ex.ICalParameters, start.Location())
			if err == nil {
				set.ExDate(t)
			}
		}
	}

	return set.Between(dayStart.Add(-dur), dayEnd, true), dur, true
}

// parseICSTime parses a DATE or DATE-TIME value. A TZID parameter wins
// over fallback; floating times use fallback.
func parseICSTime(value string, params map[string][]string, fallback *time.Location) (time.Time, bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false, errors.New("empty time value")
	}

	loc := fallback
	if tzids := params["TZID"]; len(tzids) > 0 && tzids[0] != "" {
		if l, err := time.LoadLocation(tzids[0]); err == nil {
			loc = l
		}
	}

	if vs := params["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		t, err := time.ParseInLocation("20060102", value, loc)
		return t, true, err
	}

	switch {
	case strings.HasSuffix(value, "Z"):
		t, err := time.Parse("20060102T150405Z", value)
		return t, false, err
	case strings.Contains(value, "T"):
		t, err := time.ParseInLocation("20060102T150405", value, loc)
		return t, false, err
	default:
		t, err := time.ParseInLocation("20060102", value, loc)
		return t, true, err
	}
}
