package instrumentation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogger_LogBooking(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)), AuditLoggingConfig{Enabled: true})

	bookedAt := time.Date(2024, 6, 10, 11, 0, 0, 0, time.UTC)
	rec := NewBookingRecord("http").
		WithRequest("2024-06-10 11:00:00", "Asia/Kolkata", "retry-me").
		CompleteSuccess("primary", "evt123", bookedAt, false)
	al.LogBooking(context.Background(), rec)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "booking_audit", entry["msg"])
	assert.Equal(t, "audit", entry["component"])
	assert.Equal(t, "evt123", entry["event_id"])
	assert.Equal(t, "primary", entry["calendar"])
	assert.Equal(t, true, entry["success"])
	assert.NotEmpty(t, entry["idempotency_key_hash"])
	assert.NotContains(t, buf.String(), "retry-me")
}

func TestAuditLogger_Failure(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)), AuditLoggingConfig{Enabled: true})

	rec := NewBookingRecord("mcp").CompleteWithError(errors.New("calendar unavailable"))
	al.LogBooking(context.Background(), rec)

	assert.Contains(t, buf.String(), "booking_failed")
	assert.Contains(t, buf.String(), "calendar unavailable")
	assert.Equal(t, StatusError, rec.Status())
}

func TestAuditLogger_Disabled(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)), AuditLoggingConfig{Enabled: false})
	al.LogBooking(context.Background(), NewBookingRecord("http").CompleteSuccess("primary", "e", time.Now(), false))
	assert.Empty(t, buf.String())

	var nilLogger *AuditLogger
	nilLogger.LogBooking(context.Background(), NewBookingRecord("http"))
}
