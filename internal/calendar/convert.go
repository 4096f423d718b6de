package calendar

import (
	"fmt"
	"time"

	calendar "google.golang.org/api/calendar/v3"

	"github.com/teemow/apptscheduler/internal/availability"
	"github.com/teemow/apptscheduler/internal/booking"
)

func toBusyInterval(period *calendar.TimePeriod) (availability.BusyInterval, error) {
	if period == nil {
		return availability.BusyInterval{}, fmt.Errorf("empty period")
	}
	start, err := time.Parse(time.RFC3339, period.Start)
	if err != nil {
		return availability.BusyInterval{}, fmt.Errorf("bad start %q: %w", period.Start, err)
	}
	end, err := time.Parse(time.RFC3339, period.End)
	if err != nil {
		return availability.BusyInterval{}, fmt.Errorf("bad end %q: %w", period.End, err)
	}
	if !end.After(start) {
		return availability.BusyInterval{}, fmt.Errorf("end %s not after start %s", period.End, period.Start)
	}
	return availability.BusyInterval{Start: start, End: end}, nil
}

func toCalendarEvent(ev booking.Event) *calendar.Event {
	zone := ev.TimeZone
	if zone == "" {
		zone = ev.Start.Location().String()
	}
	return &calendar.Event{
		Id:      ev.ID,
		Summary: ev.Summary,
		Start: &calendar.EventDateTime{
			DateTime: ev.Start.Format(time.RFC3339),
			TimeZone: zone,
		},
		End: &calendar.EventDateTime{
			DateTime: ev.End.Format(time.RFC3339),
			TimeZone: zone,
		},
	}
}

func toCreatedEvent(event *calendar.Event) *booking.CreatedEvent {
	if event == nil {
		return &booking.CreatedEvent{}
	}
	created := &booking.CreatedEvent{ID: event.Id, HTMLLink: event.HtmlLink}
	if event.Start != nil {
		created.Start, _ = time.Parse(time.RFC3339, event.Start.DateTime)
	}
	return created
}

// eventTime renders a timed event's dateTime or an all-day event's date.
func eventTime(dt *calendar.EventDateTime) string {
	if dt == nil {
		return ""
	}
	if dt.DateTime != "" {
		return dt.DateTime
	}
	return dt.Date
}

func toEventSummary(event *calendar.Event) booking.EventSummary {
	if event == nil {
		return booking.EventSummary{}
	}
	return booking.EventSummary{
		ID:       event.Id,
		Summary:  event.Summary,
		Start:    eventTime(event.Start),
		End:      eventTime(event.End),
		Status:   event.Status,
		HTMLLink: event.HtmlLink,
	}
}
