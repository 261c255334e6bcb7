package schedule

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domerrors "github.com/garyellow/campus-assist-go/internal/errors"
	"github.com/garyellow/campus-assist-go/internal/scraper"
)

var ist = time.FixedZone("IST", 5*3600+1800)

type skipCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (s *skipCounter) RecordEventsSkipped(source string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts == nil {
		s.counts = make(map[string]int)
	}
	s.counts[source] += n
}

const eventsJSON = `{
  "items": [
    {"summary": "Jane Doe – Algorithms", "start": {"dateTime": "2025-03-03T10:00:00+05:30"}, "end": {"dateTime": "2025-03-03T11:00:00+05:30"}},
    {"summary": "Campus Holiday", "start": {"date": "2025-03-03"}, "end": {"date": "2025-03-04"}},
    {"summary": "Ravi Kumar - Optics", "start": {"dateTime": "not a time"}, "end": {"dateTime": "2025-03-03T12:00:00+05:30"}}
  ]
}`

func TestDecodeGoogleEvents(t *testing.T) {
	intervals, stats, err := DecodeGoogleEvents([]byte(eventsJSON))
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Events)
	assert.Equal(t, 2, stats.Skipped)
	require.Len(t, intervals, 1)
	assert.Equal(t, "Jane Doe", intervals[0].Identity)
	assert.Equal(t, "Jane Doe – Algorithms", intervals[0].Title)
	assert.True(t, intervals[0].Start.Equal(time.Date(2025, 3, 3, 10, 0, 0, 0, ist)))
	assert.True(t, intervals[0].End.Equal(time.Date(2025, 3, 3, 11, 0, 0, 0, ist)))
}

func TestDecodeGoogleEvents_Malformed(t *testing.T) {
	_, _, err := DecodeGoogleEvents([]byte(`{"items": [`))
	assert.Error(t, err)
}

func TestGoogleCalendar_Intervals(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/calendars/dept@group.calendar.google.com/events" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		gotQuery = map[string]string{
			"key":          q.Get("key"),
			"timeMin":      q.Get("timeMin"),
			"timeMax":      q.Get("timeMax"),
			"singleEvents": q.Get("singleEvents"),
			"orderBy":      q.Get("orderBy"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(eventsJSON))
	}))
	defer srv.Close()

	skips := &skipCounter{}
	cal := &GoogleCalendar{
		BaseURL:    srv.URL,
		CalendarID: "dept@group.calendar.google.com",
		APIKey:     "test-key",
		Location:   ist,
		Fetcher:    scraper.NewClient(5 * time.Second),
		Metrics:    skips,
	}

	intervals, err := cal.Intervals(context.Background(), time.Date(2025, 3, 3, 14, 5, 0, 0, ist))
	require.NoError(t, err)
	require.Len(t, intervals, 1)

	assert.Equal(t, map[string]string{
		"key":          "test-key",
		"timeMin":      "2025-03-03T00:00:00+05:30",
		"timeMax":      "2025-03-03T23:59:59+05:30",
		"singleEvents": "true",
		"orderBy":      "startTime",
	}, gotQuery)
	assert.Equal(t, 2, skips.counts["gcal"])
}

func TestGoogleCalendar_UpstreamErrorIsFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer srv.Close()

	cal := &GoogleCalendar{
		BaseURL:    srv.URL,
		CalendarID: "x",
		Location:   ist,
		Fetcher:    scraper.NewClient(5 * time.Second),
	}

	_, err := cal.Intervals(context.Background(), time.Date(2025, 3, 3, 9, 0, 0, 0, ist))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domerrors.ErrFetchFailure))
}

func TestGoogleCalendar_NoFetcher(t *testing.T) {
	cal := &GoogleCalendar{CalendarID: "x"}
	_, err := cal.Intervals(context.Background(), time.Now())
	assert.ErrorIs(t, err, domerrors.ErrFetchFailure)
}

func TestDayBounds(t *testing.T) {
	// 23:30 UTC on March 2 is already March 3 in India.
	start, end := DayBounds(time.Date(2025, 3, 2, 23, 30, 0, 0, time.UTC), ist)

	assert.True(t, start.Equal(time.Date(2025, 3, 3, 0, 0, 0, 0, ist)))
	assert.True(t, end.Equal(time.Date(2025, 3, 3, 23, 59, 59, 0, ist)))
}
