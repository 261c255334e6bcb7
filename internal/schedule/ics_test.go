package schedule

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Times are UTC; 04:30Z is 10:00 in India.
var icsLines = []string{
	"BEGIN:VCALENDAR",
	"VERSION:2.0",
	"PRODID:-//campus//test//EN",
	"BEGIN:VEVENT",
	"UID:single-1",
	"DTSTAMP:20250201T000000Z",
	"SUMMARY:Jane Doe – Algorithms",
	"DTSTART:20250303T043000Z",
	"DTEND:20250303T053000Z",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:weekly-1",
	"DTSTAMP:20250201T000000Z",
	"SUMMARY:Ravi Kumar - Optics",
	"DTSTART:20250224T063000Z",
	"DTEND:20250224T073000Z",
	"RRULE:FREQ=WEEKLY;COUNT=5",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:weekly-2",
	"DTSTAMP:20250201T000000Z",
	"SUMMARY:Ann Lee - Lab",
	"DTSTART:20250224T083000Z",
	"DTEND:20250224T093000Z",
	"RRULE:FREQ=WEEKLY",
	"EXDATE:20250303T083000Z",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:allday-1",
	"DTSTAMP:20250201T000000Z",
	"SUMMARY:Founders Day",
	"DTSTART;VALUE=DATE:20250303",
	"DTEND;VALUE=DATE:20250304",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:tomorrow-1",
	"DTSTAMP:20250201T000000Z",
	"SUMMARY:Jane Doe - Seminar",
	"DTSTART:20250304T043000Z",
	"DTEND:20250304T053000Z",
	"END:VEVENT",
	"END:VCALENDAR",
}

func icsBody() []byte {
	return []byte(strings.Join(icsLines, "\r\n") + "\r\n")
}

func TestDecodeICS(t *testing.T) {
	day := time.Date(2025, 3, 3, 9, 0, 0, 0, ist)

	intervals, stats, err := DecodeICS(icsBody(), day, ist)
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Events)
	assert.Equal(t, 1, stats.Skipped, "all-day event is skipped")

	got := map[string]time.Time{}
	for _, iv := range intervals {
		got[iv.Identity] = iv.Start
	}
	require.Len(t, got, 2, "intervals: %+v", intervals)

	assert.True(t, got["Jane Doe"].Equal(time.Date(2025, 3, 3, 10, 0, 0, 0, ist)))
	assert.True(t, got["Ravi Kumar"].Equal(time.Date(2025, 3, 3, 12, 0, 0, 0, ist)))
	_, excluded := got["Ann Lee"]
	assert.False(t, excluded, "EXDATE removes the occurrence")
}

func TestDecodeICS_RecurrenceOnLaterWeek(t *testing.T) {
	day := time.Date(2025, 3, 10, 9, 0, 0, 0, ist)

	intervals, _, err := DecodeICS(icsBody(), day, ist)
	require.NoError(t, err)

	var names []string
	for _, iv := range intervals {
		names = append(names, iv.Identity)
		assert.Equal(t, time.Hour, iv.End.Sub(iv.Start))
	}
	assert.ElementsMatch(t, []string{"Ravi Kumar", "Ann Lee"}, names)
}

func TestDecodeICS_Empty(t *testing.T) {
	_, _, err := DecodeICS([]byte("  "), time.Now(), ist)
	assert.Error(t, err)
}

func TestICSFeed_ReadsLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dept.ics")
	require.NoError(t, os.WriteFile(path, icsBody(), 0o644))

	skips := &skipCounter{}
	feed := &ICSFeed{URL: path, Location: ist, Metrics: skips}

	intervals, err := feed.Intervals(context.Background(), time.Date(2025, 3, 3, 9, 0, 0, 0, ist))
	require.NoError(t, err)
	assert.Len(t, intervals, 2)
	assert.Equal(t, 1, skips.counts["ics"])
}

func TestParseICSTime(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		params     map[string][]string
		want       time.Time
		wantAllDay bool
	}{
		{"utc", "20250303T043000Z", nil, time.Date(2025, 3, 3, 4, 30, 0, 0, time.UTC), false},
		{"floating uses fallback", "20250303T100000", nil, time.Date(2025, 3, 3, 10, 0, 0, 0, ist), false},
		{"date value", "20250303", map[string][]string{"VALUE": {"DATE"}}, time.Date(2025, 3, 3, 0, 0, 0, 0, ist), true},
		{"bare date", "20250303", nil, time.Date(2025, 3, 3, 0, 0, 0, 0, ist), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, allDay, err := parseICSTime(tt.value, tt.params, ist)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
			assert.Equal(t, tt.wantAllDay, allDay)
		})
	}
}
