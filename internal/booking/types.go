package booking

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUpstreamUnavailable is returned when the calendar cannot be reached or rejects the call.
	ErrUpstreamUnavailable = errors.New("calendar unavailable")

	// ErrEventExists is returned by a Calendar when an event with the requested id already exists.
	ErrEventExists = errors.New("event already exists")

	// ErrIdempotencyConflict is returned when a key is reused for a different slot.
	ErrIdempotencyConflict = errors.New("idempotency key already used for a different booking")
)

// Defaults for a booked appointment.
const (
	DefaultSummary  = "Appointment Scheduler Event!"
	DefaultDuration = time.Hour
	DefaultListMax  = 10
)

// Request selects a slot to book.
type Request struct {
	SelectedDateTime string `json:"selectedDateTime"`
	TimeZone         string `json:"timeZone,omitempty"`
	IdempotencyKey   string `json:"idempotencyKey,omitempty"`

	// Channel names the entry point for the audit log.
	Channel string `json:"-"`
}

// Event is handed to the calendar. Start and End carry the canonical zone.
type Event struct {
	// ID is optional; when set the calendar must reject a second insert with ErrEventExists.
	ID       string
	Summary  string
	Start    time.Time
	End      time.Time
	TimeZone string
}

// CreatedEvent is what the calendar reports back after an insert or lookup.
type CreatedEvent struct {
	ID       string
	HTMLLink string
	Start    time.Time
}

// Confirmation is returned to the caller.
type Confirmation struct {
	Message    string `json:"message"`
	BookedTime string `json:"bookedTime"`
	EventID    string `json:"eventId,omitempty"`
	HTMLLink   string `json:"htmlLink,omitempty"`
	Replayed   bool   `json:"replayed,omitempty"`
}

// EventSummary is one upcoming event.
type EventSummary struct {
	ID       string `json:"id"`
	Summary  string `json:"summary"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Status   string `json:"status,omitempty"`
	HTMLLink string `json:"htmlLink,omitempty"`
}

// Calendar is the write and list side of the calendar collaborator.
type Calendar interface {
	InsertEvent(ctx context.Context, calendarID string, ev Event) (*CreatedEvent, error)
	GetEvent(ctx context.Context, calendarID, eventID string) (*CreatedEvent, error)
	ListUpcoming(ctx context.Context, calendarID string, from time.Time, max int) ([]EventSummary, error)
}
