// Package timeutil holds the reference-timezone helpers shared by the web
// app and the CLI.
package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTimezone is the campus timezone when none is configured.
const DefaultTimezone = "Asia/Kolkata"

// ist is used when the host has no tzdata for Asia/Kolkata.
var ist = time.FixedZone("IST", 5*3600+1800)

// LoadLocation resolves an IANA name. Empty selects DefaultTimezone, and
// "IST" or Asia/Kolkata fall back to a fixed +05:30 zone when tzdata is
// missing.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultTimezone
	}
	if strings.EqualFold(name, "IST") {
		return ist, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		if name == DefaultTimezone || name == "Asia/Calcutta" {
			return ist, nil
		}
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

// MustLoadLocation is LoadLocation for names known at compile time.
func MustLoadLocation(name string) *time.Location {
	loc, err := LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// Caption renders the dashboard clock, e.g. "Monday, 14:05 IST".
func Caption(now time.Time, loc *time.Location) string {
	if loc != nil {
		now = now.In(loc)
	}
	return now.Format("Monday, 15:04 MST")
}

// FormatUpdated describes when a table was loaded relative to now:
//
//	"today 14:30", "yesterday 09:15" or "Nov 26 18:00"
func FormatUpdated(t, now time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = now.Location()
	}
	t, now = t.In(loc), now.In(loc)

	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	yesterdayStart := todayStart.AddDate(0, 0, -1)

	clock := t.Format("15:04")
	switch {
	case !t.Before(todayStart):
		return "today " + clock
	case !t.Before(yesterdayStart):
		return "yesterday " + clock
	default:
		return t.Format("Jan 02 15:04")
	}
}
