package instrumentation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// BookingRecord captures one booking attempt for the audit log.
// Bookings are the only write this service performs against the calendar.
type BookingRecord struct {
	// Channel is where the request came from ("http" or "mcp").
	Channel string

	CallerZone       string
	SelectedDateTime string
	CalendarID       string

	// IdempotencyKey is hashed before logging.
	IdempotencyKey string

	EventID   string
	BookedAt  time.Time
	Replayed  bool
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewBookingRecord starts timing a booking attempt.
func NewBookingRecord(channel string) *BookingRecord {
	return &BookingRecord{Channel: channel, StartTime: time.Now()}
}

// WithRequest sets the caller-supplied fields.
func (r *BookingRecord) WithRequest(selected, zone, idempotencyKey string) *BookingRecord {
	r.SelectedDateTime = selected
	r.CallerZone = zone
	r.IdempotencyKey = idempotencyKey
	return r
}

// WithSpanContext copies the trace and span ids from ctx.
func (r *BookingRecord) WithSpanContext(ctx context.Context) *BookingRecord {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		r.TraceID = sc.TraceID().String()
		r.SpanID = sc.SpanID().String()
	}
	return r
}

// CompleteSuccess marks the attempt as booked.
func (r *BookingRecord) CompleteSuccess(calendarID, eventID string, bookedAt time.Time, replayed bool) *BookingRecord {
	r.Duration = time.Since(r.StartTime)
	r.Success = true
	r.CalendarID = calendarID
	r.EventID = eventID
	r.BookedAt = bookedAt
	r.Replayed = replayed
	return r
}

// CompleteWithError marks the attempt as failed.
func (r *BookingRecord) CompleteWithError(err error) *BookingRecord {
	r.Duration = time.Since(r.StartTime)
	r.Success = false
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Status returns "success" or "error".
func (r *BookingRecord) Status() string {
	if r.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns the slog attributes written for this record.
func (r *BookingRecord) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("channel", r.Channel),
		slog.String("selected_date_time", r.SelectedDateTime),
		slog.String("time_zone", r.CallerZone),
		slog.Duration("duration", r.Duration),
		slog.Bool("success", r.Success),
	}

	if r.IdempotencyKey != "" {
		attrs = append(attrs, slog.String("idempotency_key_hash", hashKey(r.IdempotencyKey)))
	}
	if r.CalendarID != "" {
		attrs = append(attrs, slog.String("calendar", r.CalendarID))
	}
	if r.EventID != "" {
		attrs = append(attrs, slog.String("event_id", r.EventID))
	}
	if !r.BookedAt.IsZero() {
		attrs = append(attrs, slog.Time("booked_at", r.BookedAt))
	}
	if r.Replayed {
		attrs = append(attrs, slog.Bool("replayed", true))
	}
	if r.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", r.TraceID), slog.String("span_id", r.SpanID))
	}
	if r.Error != "" {
		attrs = append(attrs, slog.String("error", r.Error))
	}
	return attrs
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

// AuditLogger writes booking records to a dedicated slog stream.
type AuditLogger struct {
	logger  *slog.Logger
	enabled bool
}

// NewAuditLogger creates an AuditLogger. A nil logger means slog.Default().
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger.With("component", "audit"), enabled: config.Enabled}
}

// LogBooking writes r. Safe to call on a nil AuditLogger.
func (al *AuditLogger) LogBooking(ctx context.Context, r *BookingRecord) {
	if al == nil || !al.enabled || r == nil {
		return
	}

	if r.Success {
		al.logger.LogAttrs(ctx, slog.LevelInfo, "booking_audit", r.LogAttrs()...)
	} else {
		al.logger.LogAttrs(ctx, slog.LevelWarn, "booking_failed", r.LogAttrs()...)
	}
}
