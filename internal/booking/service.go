package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/apptscheduler/internal/instrumentation"
	"github.com/teemow/apptscheduler/internal/logging"
	"github.com/teemow/apptscheduler/internal/timezone"
)

// DefaultUpstreamTimeout bounds a single calendar call.
const DefaultUpstreamTimeout = 10 * time.Second

// Config configures a Service. Zero values take defaults.
type Config struct {
	CalendarID      string
	Summary         string
	Duration        time.Duration
	UpstreamTimeout time.Duration

	// Store enables Idempotency-Key replay when set.
	Store          IdempotencyStore
	IdempotencyTTL time.Duration

	Now     func() time.Time
	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
}

// Service books slots and lists upcoming events.
type Service struct {
	conv   *timezone.Converter
	cal    Calendar
	cfg    Config
	logger *slog.Logger
}

// NewService creates a Service writing to cal.
func NewService(conv *timezone.Converter, cal Calendar, cfg Config) *Service {
	if cfg.CalendarID == "" {
		cfg.CalendarID = "primary"
	}
	if cfg.Summary == "" {
		cfg.Summary = DefaultSummary
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = DefaultUpstreamTimeout
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = DefaultIdempotencyTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{conv: conv, cal: cal, cfg: cfg, logger: logger}
}

// Book converts req to the canonical zone and inserts a calendar event.
//
// Errors wrap timezone.ErrInvalidZone, timezone.ErrInvalidInstant,
// ErrIdempotencyConflict or ErrUpstreamUnavailable. Upstream failures are
// never retried.
func (s *Service) Book(ctx context.Context, req Request) (*Confirmation, error) {
	ctx, span := instrumentation.StartSpan(ctx, "booking.book",
		attribute.String(instrumentation.SpanAttrTimeZone, req.TimeZone))
	defer span.End()

	logger := logging.WithOperation(s.logger, "booking.book")
	channel := req.Channel
	if channel == "" {
		channel = "http"
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	record := instrumentation.NewBookingRecord(channel).
		WithRequest(req.SelectedDateTime, req.TimeZone, key).
		WithSpanContext(ctx)

	conf, result, err := s.book(ctx, req, key, logger)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		s.cfg.Metrics.RecordBooking(ctx, result)
		s.cfg.Audit.LogBooking(ctx, record.CompleteWithError(err))
		return nil, err
	}

	span.SetAttributes(
		attribute.String(instrumentation.SpanAttrEventID, conf.EventID),
		attribute.Bool(instrumentation.SpanAttrReplayed, conf.Replayed),
	)
	instrumentation.SetSpanSuccess(span)
	s.cfg.Metrics.RecordBooking(ctx, result)
	bookedAt, _ := time.Parse(time.RFC3339, conf.BookedTime)
	s.cfg.Audit.LogBooking(ctx, record.CompleteSuccess(s.cfg.CalendarID, conf.EventID, bookedAt, conf.Replayed))

	return conf, nil
}

func (s *Service) book(ctx context.Context, req Request, key string, logger *slog.Logger) (*Confirmation, string, error) {
	start, err := s.conv.ToCanonical(req.SelectedDateTime, req.TimeZone)
	if err != nil {
		return nil, instrumentation.BookingResultRejected, err
	}
	bookedTime := start.Format(time.RFC3339)

	useStore := key != "" && s.cfg.Store != nil
	if useStore {
		cached, ok, err := s.cfg.Store.Get(ctx, key)
		if err != nil {
			// A broken cache must not block bookings; the deterministic event id still dedupes.
			logger.WarnContext(ctx, "idempotency lookup failed", logging.Err(err))
		} else if ok {
			if cached.BookedTime != bookedTime {
				return nil, instrumentation.BookingResultRejected,
					fmt.Errorf("%w: key was used for %s", ErrIdempotencyConflict, cached.BookedTime)
			}
			cached.Replayed = true
			return cached, instrumentation.BookingResultReplayed, nil
		}
	}

	ev := Event{
		Summary:  s.cfg.Summary,
		Start:    start,
		End:      start.Add(s.cfg.Duration),
		TimeZone: s.conv.Canonical().String(),
	}
	if key != "" {
		ev.ID = EventIDFromKey(s.cfg.CalendarID, key)
	}

	created, replayed, err := s.insert(ctx, ev)
	if err != nil {
		logger.ErrorContext(ctx, "event insert failed",
			logging.Calendar(s.cfg.CalendarID),
			logging.Err(err))
		return nil, instrumentation.BookingResultFailed, err
	}
	// The existing event may hold a different slot when the key is reused
	// after the store lost it.
	if replayed && !created.Start.Equal(start) {
		return nil, instrumentation.BookingResultRejected,
			fmt.Errorf("%w: key was used for %s", ErrIdempotencyConflict, created.Start.In(s.conv.Canonical()).Format(time.RFC3339))
	}

	conf := &Confirmation{
		Message:    "Appointment booked successfully in " + s.conv.Canonical().String(),
		BookedTime: bookedTime,
		EventID:    created.ID,
		HTMLLink:   created.HTMLLink,
		Replayed:   replayed,
	}

	if useStore {
		stored := *conf
		stored.Replayed = false
		if err := s.cfg.Store.Put(ctx, key, &stored, s.cfg.IdempotencyTTL); err != nil {
			logger.WarnContext(ctx, "idempotency store failed", logging.Err(err))
		}
	}

	logger.InfoContext(ctx, "appointment booked",
		logging.Calendar(s.cfg.CalendarID),
		logging.TimeZone(req.TimeZone),
		slog.String("event_id", created.ID),
		slog.Bool("replayed", replayed))

	result := instrumentation.BookingResultBooked
	if replayed {
		result = instrumentation.BookingResultReplayed
	}
	return conf, result, nil
}

// insert creates ev, treating an id collision as a replay of an earlier insert.
func (s *Service) insert(ctx context.Context, ev Event) (*CreatedEvent, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()

	created, err := s.cal.InsertEvent(ctx, s.cfg.CalendarID, ev)
	if err == nil {
		return created, false, nil
	}
	if ev.ID == "" || !errors.Is(err, ErrEventExists) {
		return nil, false, upstream(err)
	}

	existing, err := s.cal.GetEvent(ctx, s.cfg.CalendarID, ev.ID)
	if err != nil {
		return nil, false, upstream(err)
	}
	return existing, true, nil
}

// ListUpcoming returns up to max events starting from now. max <= 0 means DefaultListMax.
func (s *Service) ListUpcoming(ctx context.Context, max int) ([]EventSummary, error) {
	if max <= 0 {
		max = DefaultListMax
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()

	events, err := s.cal.ListUpcoming(ctx, s.cfg.CalendarID, s.cfg.Now(), max)
	if err != nil {
		logging.WithOperation(s.logger, "booking.list").WarnContext(ctx, "list events failed",
			logging.Calendar(s.cfg.CalendarID),
			logging.Err(err))
		return nil, upstream(err)
	}
	if events == nil {
		events = []EventSummary{}
	}
	return events, nil
}

func upstream(err error) error {
	if errors.Is(err, ErrUpstreamUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
}
