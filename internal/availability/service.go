package availability

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

// DefaultUpstreamTimeout bounds a single busy-interval query.
const DefaultUpstreamTimeout = 10 * time.Second

// BusyQuerier reports busy intervals of one calendar.
type BusyQuerier interface {
	QueryBusy(ctx context.Context, r TimeRange, calendarID string) ([]BusyInterval, error)
}

// Config configures a Service. Zero values take defaults.
type Config struct {
	CalendarID      string
	Policy          Policy
	UpstreamTimeout time.Duration
	Now             func() time.Time
	Logger          *slog.Logger
	Metrics         *instrumentation.Metrics
}

// Service answers availability requests.
type Service struct {
	conv    *timezone.Converter
	busy    BusyQuerier
	cfg     Config
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewService creates a Service computing slots with conv against busy.
func NewService(conv *timezone.Converter, busy BusyQuerier, cfg Config) *Service {
	if cfg.CalendarID == "" {
		cfg.CalendarID = "primary"
	}
	if cfg.Policy == (Policy{}) {
		cfg.Policy = DefaultPolicy()
	}
	if cfg.Policy.DefaultRangeDays <= 0 {
		cfg.Policy.DefaultRangeDays = DefaultPolicy().DefaultRangeDays
	}
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = DefaultUpstreamTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		conv:    conv,
		busy:    busy,
		cfg:     cfg,
		logger:  logging.WithOperation(logger, "availability.check"),
		metrics: cfg.Metrics,
	}
}

// CalendarID returns the calendar this service reads.
func (s *Service) CalendarID() string {
	return s.cfg.CalendarID
}

// Check returns the free slots for req rendered in the caller's zone.
//
// Errors wrap timezone.ErrInvalidZone, timezone.ErrInvalidInstant,
// ErrInvalidRange or ErrUpstreamUnavailable.
func (s *Service) Check(ctx context.Context, req Request) (*Response, error) {
	ctx, span := instrumentation.StartSpan(ctx, "availability.check",
		attribute.String(instrumentation.SpanAttrTimeZone, req.TimeZone))
	defer span.End()

	callerZone, err := s.conv.ResolveZone(req.TimeZone)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	r, err := s.resolveRange(req)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	// An explicit end before the defaulted start is an empty window, not an error.
	var busy []BusyInterval
	if !r.End.Before(r.Start) {
		busy, err = s.fetchBusy(ctx, r)
		if err != nil {
			instrumentation.SetSpanError(span, err)
			return nil, err
		}
	}

	p := s.cfg.Policy
	free := FreeSlots(Generate(r, p.WorkStartHour, p.WorkEndHour, p.StepMinutes), busy)

	slots := make([]string, 0, len(free))
	for _, slot := range free {
		slots = append(slots, slot.In(callerZone).Format(timezone.DisplayLayout))
	}

	zone := strings.TrimSpace(req.TimeZone)
	if zone == "" {
		zone = s.conv.Canonical().String()
	}

	span.SetAttributes(attribute.Int(instrumentation.SpanAttrSlotCount, len(slots)))
	instrumentation.SetSpanSuccess(span)
	s.metrics.RecordSlotsReturned(ctx, zone, len(slots))
	s.logger.DebugContext(ctx, "computed available slots",
		logging.TimeZone(zone),
		slog.Int("busy_intervals", len(busy)),
		slog.Int("slots", len(slots)))

	return &Response{TimeZone: zone, AvailableSlots: slots}, nil
}

// resolveRange validates the supplied dates and fills in defaults.
// Dates without an offset are read in the canonical zone.
//
// The result spans whole canonical days: from 00:00 of the start date to the
// last instant of the end date, where each date is the one written in the
// input, in the input's own offset. The grid covers exactly these days, so
// the busy query over the same range sees every candidate slot.
func (s *Service) resolveRange(req Request) (TimeRange, error) {
	canonical := s.conv.Canonical()

	var start, end time.Time
	var hasStart, hasEnd bool

	if strings.TrimSpace(req.StartDate) != "" {
		t, err := timezone.ParseInLocation(req.StartDate, canonical)
		if err != nil {
			return TimeRange{}, fmt.Errorf("startDate: %w", err)
		}
		start, hasStart = t, true
	}
	if strings.TrimSpace(req.EndDate) != "" {
		t, err := timezone.ParseInLocation(req.EndDate, canonical)
		if err != nil {
			return TimeRange{}, fmt.Errorf("endDate: %w", err)
		}
		end, hasEnd = t, true
	}

	if hasStart && hasEnd && start.After(end) {
		return TimeRange{}, ErrInvalidRange
	}

	if !hasStart {
		start = s.cfg.Now().In(canonical)
	}
	start = startOfDay(start, canonical)

	if hasEnd {
		end = startOfDay(end, canonical).AddDate(0, 0, 1).Add(-time.Nanosecond)
	} else {
		end = start.AddDate(0, 0, s.cfg.Policy.DefaultRangeDays+1).Add(-time.Nanosecond)
	}

	return TimeRange{Start: start, End: end}, nil
}

// startOfDay returns midnight in loc of the calendar date t carries in its
// own location.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func (s *Service) fetchBusy(ctx context.Context, r TimeRange) ([]BusyInterval, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()

	busy, err := s.busy.QueryBusy(ctx, r, s.cfg.CalendarID)
	if err != nil {
		s.logger.WarnContext(ctx, "busy query failed",
			logging.Calendar(s.cfg.CalendarID),
			logging.Err(err))
		if errors.Is(err, ErrUpstreamUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return busy, nil
}
