package schedule

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/garyellow/campus-assist-go/internal/availability"
)

const timetableJSON = `[
  {"faculty": "Jane Doe", "schedule": [
    {"day": "Monday", "start_time": "10:00", "end_time": "11:00"},
    {"day": "Wednesday", "start_time": "14:00", "end_time": "15:30"}
  ]},
  {"faculty": "Ravi Kumar", "schedule": [
    {"day": "Mon", "start_time": "12:00", "end_time": "13:00"}
  ]}
]`

const timetableYAML = `
entries:
  - faculty: Jane Doe
    schedule:
      - day: Monday
        start_time: "10:00"
        end_time: "11:00"
`

const timetableTOML = `
[[entries]]
faculty = "Jane Doe"

  [[entries.schedule]]
  day = "Monday"
  start_time = "10:00"
  end_time = "11:00"
`

func TestParseTimetable_Formats(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		data    string
		entries int
	}{
		{"json array", ".json", timetableJSON, 2},
		{"json object", "json", `{"entries": [{"faculty": "Jane Doe", "schedule": []}]}`, 1},
		{"yaml", ".yaml", timetableYAML, 1},
		{"yaml list", ".yml", "- faculty: Jane Doe\n  schedule: []\n", 1},
		{"toml", ".toml", timetableTOML, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := ParseTimetable([]byte(tt.data), tt.format, ist)
			if err != nil {
				t.Fatalf("ParseTimetable failed: %v", err)
			}
			if tbl.Len() != tt.entries {
				t.Errorf("Len() = %d, want %d", tbl.Len(), tt.entries)
			}
		})
	}
}

func TestParseTimetable_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad day", `[{"faculty": "A", "schedule": [{"day": "Funday", "start_time": "10:00", "end_time": "11:00"}]}]`},
		{"bad time", `[{"faculty": "A", "schedule": [{"day": "Monday", "start_time": "10am", "end_time": "11:00"}]}]`},
		{"end before start", `[{"faculty": "A", "schedule": [{"day": "Monday", "start_time": "11:00", "end_time": "10:00"}]}]`},
		{"missing faculty", `[{"faculty": " ", "schedule": []}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseTimetable([]byte(tt.data), ".json", ist); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := ParseTimetable([]byte(timetableJSON), ".xml", ist); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestTimetable_IntervalsOnWeekday(t *testing.T) {
	tbl, err := ParseTimetable([]byte(timetableJSON), ".json", ist)
	if err != nil {
		t.Fatalf("ParseTimetable failed: %v", err)
	}

	// 2025-03-03 is a Monday.
	monday := time.Date(2025, 3, 3, 8, 0, 0, 0, ist)
	intervals, err := tbl.Intervals(context.Background(), monday)
	if err != nil {
		t.Fatalf("Intervals failed: %v", err)
	}
	if len(intervals) != 2 {
		t.Fatalf("got %d intervals, want 2", len(intervals))
	}

	jane := intervals[0]
	if jane.Identity != "Jane Doe" {
		t.Errorf("Identity = %q", jane.Identity)
	}
	if !jane.Start.Equal(time.Date(2025, 3, 3, 10, 0, 0, 0, ist)) {
		t.Errorf("Start = %v", jane.Start)
	}
	if !jane.End.Equal(time.Date(2025, 3, 3, 11, 0, 59, 0, ist)) {
		t.Errorf("End = %v", jane.End)
	}

	tuesday := monday.AddDate(0, 0, 1)
	intervals, _ = tbl.Intervals(context.Background(), tuesday)
	if len(intervals) != 0 {
		t.Errorf("Tuesday intervals = %d, want 0", len(intervals))
	}
}

func TestTimetable_WithEvaluate(t *testing.T) {
	tbl, err := ParseTimetable([]byte(timetableJSON), ".json", ist)
	if err != nil {
		t.Fatalf("ParseTimetable failed: %v", err)
	}

	tests := []struct {
		name string
		at   time.Time
		want availability.StatusKind
	}{
		{"before class", time.Date(2025, 3, 3, 9, 59, 0, 0, ist), availability.Available},
		{"start minute", time.Date(2025, 3, 3, 10, 0, 0, 0, ist), availability.InSession},
		{"end minute", time.Date(2025, 3, 3, 11, 0, 30, 0, ist), availability.InSession},
		{"after class", time.Date(2025, 3, 3, 11, 1, 0, 0, ist), availability.Available},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intervals, _ := tbl.Intervals(context.Background(), tt.at)
			res := availability.Evaluate(tt.at, "Jane Doe", availability.Feed{Intervals: intervals}, nil)
			if res.Status != tt.want {
				t.Errorf("Status = %v, want %v", res.Status, tt.want)
			}
		})
	}
}

func TestTimetable_DaylightSavingDay(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation failed: %v", err)
	}
	tbl, err := NewTimetable([]TimetableEntry{{
		Faculty:  "Jane Doe",
		Schedule: []Period{{Day: "Sunday", StartTime: "10:00", EndTime: "11:00"}},
	}}, ny)
	if err != nil {
		t.Fatalf("NewTimetable failed: %v", err)
	}

	// Clocks jump from 02:00 to 03:00 on 2026-03-08 and back on 2026-11-01.
	for _, date := range []time.Time{
		time.Date(2026, 3, 8, 0, 0, 0, 0, ny),
		time.Date(2026, 11, 1, 0, 0, 0, 0, ny),
	} {
		t.Run(date.Format(time.DateOnly), func(t *testing.T) {
			at := time.Date(date.Year(), date.Month(), date.Day(), 10, 30, 0, 0, ny)
			intervals, _ := tbl.Intervals(context.Background(), at)
			if len(intervals) != 1 {
				t.Fatalf("got %d intervals, want 1", len(intervals))
			}
			iv := intervals[0]
			if got := iv.Start.In(ny).Format("15:04:05"); got != "10:00:00" {
				t.Errorf("Start = %s, want 10:00:00", got)
			}
			if got := iv.End.In(ny).Format("15:04:05"); got != "11:00:59" {
				t.Errorf("End = %s, want 11:00:59", got)
			}

			res := availability.Evaluate(at, "jane", availability.Feed{Intervals: intervals}, nil)
			if res.Status != availability.InSession {
				t.Errorf("Status = %v, want %v", res.Status, availability.InSession)
			}
		})
	}
}

func TestTimetable_Has(t *testing.T) {
	tbl, err := ParseTimetable([]byte(timetableJSON), ".json", ist)
	if err != nil {
		t.Fatalf("ParseTimetable failed: %v", err)
	}

	tests := []struct {
		identity string
		want     bool
	}{
		{"Jane Doe", true},
		{"jane", true},
		{"Dr. Ravi Kumar", true},
		{"Ann Lee", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := tbl.Has(tt.identity); got != tt.want {
			t.Errorf("Has(%q) = %v, want %v", tt.identity, got, tt.want)
		}
	}
}

func TestLoadTimetable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timetable.toml")
	if err := os.WriteFile(path, []byte(timetableTOML), 0o644); err != nil {
		t.Fatal(err)
	}

	tbl, err := LoadTimetable(path, ist)
	if err != nil {
		t.Fatalf("LoadTimetable failed: %v", err)
	}
	if !tbl.Has("Jane Doe") {
		t.Error("expected Jane Doe in timetable")
	}

	if _, err := LoadTimetable(filepath.Join(t.TempDir(), "missing.json"), ist); err == nil {
		t.Error("expected error for missing file")
	}
}
