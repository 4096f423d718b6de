package availability

import (
	"errors"
	"time"
)

var (
	// ErrInvalidRange is returned when the requested start is after the end.
	ErrInvalidRange = errors.New("startDate cannot be after endDate")

	// ErrUpstreamUnavailable is returned when busy data cannot be fetched.
	ErrUpstreamUnavailable = errors.New("calendar unavailable")
)

// TimeRange is an inclusive [Start, End] span of instants.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// BusyInterval marks [Start, End) as occupied.
type BusyInterval struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls in the half-open interval.
func (b BusyInterval) Contains(t time.Time) bool {
	return !t.Before(b.Start) && t.Before(b.End)
}

// Request asks for free slots. Empty dates are defaulted.
type Request struct {
	TimeZone  string `json:"timeZone"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// Response lists free slot starts rendered in TimeZone.
type Response struct {
	TimeZone       string   `json:"timeZone"`
	AvailableSlots []string `json:"availableSlots"`
}

// Policy controls the slot grid.
type Policy struct {
	WorkStartHour    int
	WorkEndHour      int
	StepMinutes      int
	DefaultRangeDays int
}

// DefaultPolicy is 09:00 to 18:00 in one-hour steps over the next 14 days.
func DefaultPolicy() Policy {
	return Policy{
		WorkStartHour:    9,
		WorkEndHour:      18,
		StepMinutes:      60,
		DefaultRangeDays: 14,
	}
}
