package availability

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Weekday numbers days Monday=0 through Sunday=6.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func (d Weekday) String() string {
	if d < Monday || d > Sunday {
		return "Weekday(" + strconv.Itoa(int(d)) + ")"
	}
	return weekdayNames[d]
}

// WeekdayOf returns the Monday-based weekday of t in t's own location.
func WeekdayOf(t time.Time) Weekday {
	return Weekday((int(t.Weekday()) + 6) % 7)
}

// ParseWeekday accepts a day name ("sunday"), a three-letter abbreviation
// ("Sun") or a Monday-based number ("6").
func ParseWeekday(s string) (Weekday, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return 0, errors.New("empty weekday")
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("weekday %d out of range 0-6 (Monday=0)", n)
		}
		return Weekday(n), nil
	}
	for i, name := range weekdayNames {
		lower := strings.ToLower(name)
		if v == lower || v == lower[:3] {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// OperatingRules gates availability by campus opening times.
// Every field is optional; a nil *OperatingRules disables gating entirely.
type OperatingRules struct {
	HolidayWeekday *Weekday
	OpenHour       *int
	CloseHour      *int

	// CloseHourOpen keeps the close hour itself open (closed only when
	// hour > close). The default closes at the top of the close hour.
	CloseHourOpen bool
}

// HasHours reports whether both open and close hours are set.
func (r *OperatingRules) HasHours() bool {
	return r != nil && r.OpenHour != nil && r.CloseHour != nil
}

// Validate checks hour ranges.
func (r *OperatingRules) Validate() error {
	if r == nil {
		return nil
	}
	if r.HolidayWeekday != nil && (*r.HolidayWeekday < Monday || *r.HolidayWeekday > Sunday) {
		return fmt.Errorf("holiday weekday %d out of range 0-6", *r.HolidayWeekday)
	}
	if (r.OpenHour == nil) != (r.CloseHour == nil) {
		return errors.New("open and close hour must be set together")
	}
	if r.HasHours() {
		if *r.OpenHour < 0 || *r.OpenHour > 23 || *r.CloseHour < 0 || *r.CloseHour > 24 {
			return fmt.Errorf("hours out of range: open=%d close=%d", *r.OpenHour, *r.CloseHour)
		}
		if *r.OpenHour >= *r.CloseHour {
			return fmt.Errorf("open hour %d must be before close hour %d", *r.OpenHour, *r.CloseHour)
		}
	}
	return nil
}

// gate applies the holiday and hours checks. ok is false when neither
// rule closes the campus at now.
func (r *OperatingRules) gate(now time.Time) (Result, bool) {
	if r == nil {
		return Result{}, false
	}
	if r.HolidayWeekday != nil && WeekdayOf(now) == *r.HolidayWeekday {
		return Result{Status: ClosedHoliday}, true
	}
	if r.HasHours() {
		h := now.Hour()
		closed := h >= *r.CloseHour
		if r.CloseHourOpen {
			closed = h > *r.CloseHour
		}
		if h < *r.OpenHour || closed {
			return Result{Status: ClosedHours, OpenHour: *r.OpenHour, CloseHour: *r.CloseHour}, true
		}
	}
	return Result{}, false
}
