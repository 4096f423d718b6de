package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/apptscheduler/internal/availability"
	"github.com/teemow/apptscheduler/internal/booking"
	"github.com/teemow/apptscheduler/internal/instrumentation"
	"github.com/teemow/apptscheduler/internal/logging"
)

// Client wraps the Google Calendar service. It is built once at startup and
// shared by all requests.
type Client struct {
	svc     *calendar.Service
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for skipped busy intervals and call failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records every API call on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a Calendar client sending requests through httpClient,
// which must already carry credentials.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...Option) (*Client, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("http client cannot be nil")
	}

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return NewClientFromService(svc, opts...), nil
}

// NewClientFromService wraps an existing service.
func NewClientFromService(svc *calendar.Service, opts ...Option) *Client {
	c := &Client{svc: svc, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "calendar"))
	return c
}

// observe wraps one API call with a span, a metric and a failure log.
func (c *Client) observe(ctx context.Context, operation, calendarID string, call func(context.Context) error) error {
	ctx, span := instrumentation.StartCalendarSpan(ctx, operation, calendarID)
	defer span.End()

	start := time.Now()
	err := call(ctx)
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
		c.logger.WarnContext(ctx, "calendar call failed",
			logging.Operation(operation),
			logging.Calendar(calendarID),
			logging.Err(err))
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordCalendarOperation(ctx, operation, status, time.Since(start))
	return err
}

// QueryBusy returns the busy intervals of calendarID overlapping r.
// Entries with unparseable or inverted bounds are skipped and logged.
func (c *Client) QueryBusy(ctx context.Context, r availability.TimeRange, calendarID string) ([]availability.BusyInterval, error) {
	var busy []availability.BusyInterval

	err := c.observe(ctx, instrumentation.OperationFreeBusy, calendarID, func(ctx context.Context) error {
		query := &calendar.FreeBusyRequest{
			TimeMin:  r.Start.Format(time.RFC3339),
			TimeMax:  r.End.Format(time.RFC3339),
			TimeZone: r.Start.Location().String(),
			Items:    []*calendar.FreeBusyRequestItem{{Id: calendarID}},
		}

		result, err := c.svc.Freebusy.Query(query).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to query freebusy: %w", err)
		}

		cal, ok := result.Calendars[calendarID]
		if !ok {
			return fmt.Errorf("calendar %q missing from freebusy response", calendarID)
		}
		if len(cal.Errors) > 0 {
			reasons := make([]string, 0, len(cal.Errors))
			for _, e := range cal.Errors {
				reasons = append(reasons, e.Reason)
			}
			return fmt.Errorf("freebusy for %q failed: %s", calendarID, strings.Join(reasons, ", "))
		}

		busy = make([]availability.BusyInterval, 0, len(cal.Busy))
		for _, period := range cal.Busy {
			interval, err := toBusyInterval(period)
			if err != nil {
				c.logger.WarnContext(ctx, "skipping malformed busy interval",
					logging.Calendar(calendarID),
					logging.Err(err))
				c.metrics.RecordBusyIntervalSkipped(ctx)
				continue
			}
			busy = append(busy, interval)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return busy, nil
}

// InsertEvent creates ev on calendarID. When ev.ID is set and already taken,
// the returned error wraps booking.ErrEventExists.
func (c *Client) InsertEvent(ctx context.Context, calendarID string, ev booking.Event) (*booking.CreatedEvent, error) {
	var created *calendar.Event

	err := c.observe(ctx, instrumentation.OperationInsert, calendarID, func(ctx context.Context) error {
		var err error
		created, err = c.svc.Events.Insert(calendarID, toCalendarEvent(ev)).Context(ctx).Do()
		if err != nil {
			if isConflict(err) {
				return fmt.Errorf("%w: %w", booking.ErrEventExists, err)
			}
			return fmt.Errorf("failed to create event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toCreatedEvent(created), nil
}

// GetEvent fetches one event by id.
func (c *Client) GetEvent(ctx context.Context, calendarID, eventID string) (*booking.CreatedEvent, error) {
	var event *calendar.Event

	err := c.observe(ctx, instrumentation.OperationGet, calendarID, func(ctx context.Context) error {
		var err error
		event, err = c.svc.Events.Get(calendarID, eventID).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to get event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toCreatedEvent(event), nil
}

// ListUpcoming lists up to max single events starting at or after from, ordered by start.
func (c *Client) ListUpcoming(ctx context.Context, calendarID string, from time.Time, max int) ([]booking.EventSummary, error) {
	var summaries []booking.EventSummary

	err := c.observe(ctx, instrumentation.OperationList, calendarID, func(ctx context.Context) error {
		events, err := c.svc.Events.List(calendarID).
			TimeMin(from.Format(time.RFC3339)).
			MaxResults(int64(max)).
			SingleEvents(true).
			OrderBy("startTime").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to list events: %w", err)
		}

		summaries = make([]booking.EventSummary, 0, len(events.Items))
		for _, event := range events.Items {
			summaries = append(summaries, toEventSummary(event))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

func isConflict(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}
