package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/garyellow/campus-assist-go/internal/availability"
)

// DefaultCalendarBaseURL is the Google Calendar v3 API root.
const DefaultCalendarBaseURL = "https://www.googleapis.com/calendar/v3"

const gcalSource = "gcal"

// GoogleCalendar reads a public Google Calendar through the v3 events API
// using an API key.
type GoogleCalendar struct {
	BaseURL    string // DefaultCalendarBaseURL when empty
	CalendarID string
	APIKey     string
	Location   *time.Location
	Fetcher    Fetcher
	Metrics    SkipRecorder
}

type gcalEvents struct {
	Items []gcalEvent `json:"items"`
}

type gcalEvent struct {
	Summary string       `json:"summary"`
	Start   gcalDateTime `json:"start"`
	End     gcalDateTime `json:"end"`
}

type gcalDateTime struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
}

// Intervals lists the timed events of the day containing day.
func (g *GoogleCalendar) Intervals(ctx context.Context, day time.Time) ([]availability.Interval, error) {
	if g.Fetcher == nil {
		return nil, fetchFailure(gcalSource, errors.New("no fetcher configured"))
	}

	body, _, err := g.Fetcher.GetBytes(ctx, gcalSource, g.eventsURL(day))
	if err != nil {
		return nil, fetchFailure(gcalSource, err)
	}

	intervals, stats, err := DecodeGoogleEvents(body)
	if err != nil {
		return nil, fetchFailure(gcalSource, err)
	}
	recordSkipped(g.Metrics, gcalSource, stats)
	if stats.Skipped > 0 {
		slog.DebugContext(ctx, "Skipped calendar events without usable times",
			"source", gcalSource,
			"skipped", stats.Skipped,
			"events", stats.Events)
	}
	return intervals, nil
}

func (g *GoogleCalendar) eventsURL(day time.Time) string {
	base := g.BaseURL
	if base == "" {
		base = DefaultCalendarBaseURL
	}
	start, end := DayBounds(day, g.Location)

	q := url.Values{}
	q.Set("key", g.APIKey)
	q.Set("timeMin", start.Format(time.RFC3339))
	q.Set("timeMax", end.Format(time.RFC3339))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")

	return fmt.Sprintf("%s/calendars/%s/events?%s",
		strings.TrimRight(base, "/"), url.PathEscape(g.CalendarID), q.Encode())
}

// DecodeGoogleEvents turns an events list response into intervals. Only
// timed events are kept; all-day events and events whose times do not
// parse are counted in DecodeStats.Skipped.
func DecodeGoogleEvents(body []byte) ([]availability.Interval, DecodeStats, error) {
	var resp gcalEvents
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, DecodeStats{}, fmt.Errorf("failed to decode events: %w", err)
	}

	stats := DecodeStats{Events: len(resp.Items)}
	intervals := make([]availability.Interval, 0, len(resp.Items))
	for _, ev := range resp.Items {
		start, errStart := time.Parse(time.RFC3339, ev.Start.DateTime)
		end, errEnd := time.Parse(time.RFC3339, ev.End.DateTime)
		if errStart != nil || errEnd != nil || end.Before(start) {
			stats.Skipped++
			continue
		}
		intervals = append(intervals, availability.Interval{
			Identity: availability.ExtractIdentity(ev.Summary),
			Title:    ev.Summary,
			Start:    start,
			End:      end,
		})
	}
	return intervals, stats, nil
}
