package schedule

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/garyellow/campus-assist-go/internal/availability"
)

// Period is one weekly teaching block, e.g. Monday 10:00-11:00.
type Period struct {
	Day       string `json:"day" yaml:"day" toml:"day"`
	StartTime string `json:"start_time" yaml:"start_time" toml:"start_time"`
	EndTime   string `json:"end_time" yaml:"end_time" toml:"end_time"`
}

// TimetableEntry is the weekly schedule of one faculty member.
type TimetableEntry struct {
	Faculty  string   `json:"faculty" yaml:"faculty" toml:"faculty"`
	Schedule []Period `json:"schedule" yaml:"schedule" toml:"schedule"`
}

type timetableDoc struct {
	Entries []TimetableEntry `json:"entries" yaml:"entries" toml:"entries"`
}

type clock struct {
	hour, minute int
}

func (c clock) before(o clock) bool {
	return c.hour < o.hour || (c.hour == o.hour && c.minute < o.minute)
}

// on returns the wall-clock time c on the date of day, at second sec.
// Built with time.Date so daylight-saving shifts do not move it.
func (c clock) on(day time.Time, sec int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.hour, c.minute, sec, 0, day.Location())
}

type period struct {
	day        availability.Weekday
	start, end clock
	label      string
}

type entry struct {
	faculty string
	periods []period
}

// Timetable is a static weekly schedule projected onto the evaluated day.
// It never fails at evaluation time; malformed files are rejected on load.
type Timetable struct {
	Location *time.Location
	entries  []entry
}

// LoadTimetable reads a timetable file. The format follows the extension:
// .json, .yaml/.yml or .toml.
func LoadTimetable(path string, loc *time.Location) (*Timetable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timetable: %w", err)
	}
	return ParseTimetable(data, filepath.Ext(path), loc)
}

// ParseTimetable decodes a timetable document. JSON and YAML accept either
// a top-level list of entries or an object with an "entries" list; TOML
// uses [[entries]] tables.
func ParseTimetable(data []byte, format string, loc *time.Location) (*Timetable, error) {
	var raw []TimetableEntry
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "json":
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &raw); err != nil {
				return nil, fmt.Errorf("failed to decode timetable: %w", err)
			}
		} else {
			var doc timetableDoc
			if err := json.Unmarshal(data, &doc); err != nil {
				return nil, fmt.Errorf("failed to decode timetable: %w", err)
			}
			raw = doc.Entries
		}
	case "yaml", "yml":
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, fmt.Errorf("failed to decode timetable: %w", err)
		}
		if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
			if err := node.Content[0].Decode(&raw); err != nil {
				return nil, fmt.Errorf("failed to decode timetable: %w", err)
			}
		} else {
			var doc timetableDoc
			if err := yaml.Unmarshal(data, &doc); err != nil {
				return nil, fmt.Errorf("failed to decode timetable: %w", err)
			}
			raw = doc.Entries
		}
	case "toml":
		var doc timetableDoc
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode timetable: %w", err)
		}
		raw = doc.Entries
	default:
		return nil, fmt.Errorf("unsupported timetable format %q", format)
	}
	return NewTimetable(raw, loc)
}

// NewTimetable validates entries and builds a Timetable.
func NewTimetable(entries []TimetableEntry, loc *time.Location) (*Timetable, error) {
	if loc == nil {
		loc = time.UTC
	}
	tt := &Timetable{Location: loc, entries: make([]entry, 0, len(entries))}

	var errs []error
	for i, e := range entries {
		name := strings.TrimSpace(e.Faculty)
		if name == "" {
			errs = append(errs, fmt.Errorf("entry %d: faculty is required", i))
			continue
		}
		parsed := entry{faculty: name}
		for j, p := range e.Schedule {
			pp, err := parsePeriod(p)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s period %d: %w", name, j, err))
				continue
			}
			parsed.periods = append(parsed.periods, pp)
		}
		tt.entries = append(tt.entries, parsed)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return tt, nil
}

func parsePeriod(p Period) (period, error) {
	day, err := availability.ParseWeekday(p.Day)
	if err != nil {
		return period{}, err
	}
	start, err := parseClock(p.StartTime)
	if err != nil {
		return period{}, fmt.Errorf("start_time: %w", err)
	}
	end, err := parseClock(p.EndTime)
	if err != nil {
		return period{}, fmt.Errorf("end_time: %w", err)
	}
	if end.before(start) {
		return period{}, fmt.Errorf("end_time %s is before start_time %s", p.EndTime, p.StartTime)
	}
	return period{
		day:   day,
		start: start,
		end:   end,
		label: strings.TrimSpace(p.StartTime) + "-" + strings.TrimSpace(p.EndTime),
	}, nil
}

// parseClock parses "HH:MM".
func parseClock(s string) (clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return clock{}, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	return clock{hour: t.Hour(), minute: t.Minute()}, nil
}

// Intervals projects every period falling on the weekday of day onto that
// date. A period's end minute is busy in full, so 10:00-11:00 covers
// 11:00:59.
func (tt *Timetable) Intervals(_ context.Context, day time.Time) ([]availability.Interval, error) {
	midnight, _ := DayBounds(day, tt.Location)
	wd := availability.WeekdayOf(midnight)

	var out []availability.Interval
	for _, e := range tt.entries {
		for _, p := range e.periods {
			if p.day != wd {
				continue
			}
			out = append(out, availability.Interval{
				Identity: e.faculty,
				Title:    e.faculty + " - Class " + p.label,
				Start:    p.start.on(midnight, 0),
				End:      p.end.on(midnight, 59),
			})
		}
	}
	return out, nil
}

// Has reports whether identity has any entry in the timetable, using the
// same containment match as the evaluator.
func (tt *Timetable) Has(identity string) bool {
	id := strings.ToLower(strings.TrimSpace(identity))
	if id == "" {
		return false
	}
	for _, e := range tt.entries {
		name := strings.ToLower(e.faculty)
		if strings.Contains(name, id) || strings.Contains(id, name) {
			return true
		}
	}
	return false
}

// Len returns the number of faculty entries.
func (tt *Timetable) Len() int {
	return len(tt.entries)
}
