package availability

import (
	"fmt"
	"time"
)

// StatusKind classifies an availability result.
type StatusKind int

const (
	Available StatusKind = iota
	InSession
	ClosedHoliday
	ClosedHours
	FetchError
)

func (s StatusKind) String() string {
	switch s {
	case Available:
		return "available"
	case InSession:
		return "in_session"
	case ClosedHoliday:
		return "closed_holiday"
	case ClosedHours:
		return "closed_hours"
	case FetchError:
		return "fetch_error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText encodes the status as its string form.
func (s StatusKind) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is the outcome of one availability evaluation.
type Result struct {
	Available bool
	Status    StatusKind

	// Start and End bound the matching interval (InSession only).
	Start time.Time
	End   time.Time
	Title string

	// OpenHour and CloseHour echo the rules that closed the campus (ClosedHours only).
	OpenHour  int
	CloseHour int

	// Err is the source failure (FetchError only).
	Err error
}

// Label renders the status the way the dashboard shows it. Interval times
// are printed in loc; a nil loc keeps the times' own location.
func (r Result) Label(loc *time.Location) string {
	switch r.Status {
	case Available:
		return "Available"
	case InSession:
		start, end := r.Start, r.End
		if loc != nil {
			start, end = start.In(loc), end.In(loc)
		}
		return fmt.Sprintf("In Session (%s - %s)", start.Format("15:04"), end.Format("15:04"))
	case ClosedHoliday:
		return "Closed (Holiday)"
	case ClosedHours:
		return fmt.Sprintf("Closed - Hours: %s to %s", formatHour(r.OpenHour), formatHour(r.CloseHour))
	case FetchError:
		return "Unable to fetch calendar data"
	default:
		return r.Status.String()
	}
}

// formatHour prints a 24h hour as "7 AM" / "5 PM".
func formatHour(h int) string {
	h %= 24
	switch {
	case h == 0:
		return "12 AM"
	case h < 12:
		return fmt.Sprintf("%d AM", h)
	case h == 12:
		return "12 PM"
	default:
		return fmt.Sprintf("%d PM", h-12)
	}
}
