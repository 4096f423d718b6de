package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{name: "json info", level: "info", format: "json"},
		{name: "text debug", level: "debug", format: "text"},
		{name: "empty format defaults to text", level: "warn", format: ""},
		{name: "upper case level", level: "ERROR", format: "json"},
		{name: "bad level", level: "loud", format: "json", wantErr: true},
		{name: "bad format", level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := NewLogger(&buf, tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, logger)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestNewLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "info", "json")
	require.NoError(t, err)

	WithOperation(logger, "booking.save").Info("booked",
		TimeZone("Asia/Kolkata"),
		Calendar("primary"),
		Status(StatusSuccess))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "booked", entry["msg"])
	assert.Equal(t, "booking.save", entry[KeyOperation])
	assert.Equal(t, "Asia/Kolkata", entry[KeyTimeZone])
	assert.Equal(t, "primary", entry[KeyCalendar])
	assert.Equal(t, StatusSuccess, entry[KeyStatus])
}

func TestNewLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "warn", "text")
	require.NoError(t, err)

	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestAttributes(t *testing.T) {
	tests := []struct {
		name    string
		attr    slog.Attr
		wantKey string
		wantVal string
	}{
		{"operation", Operation("availability.check"), KeyOperation, "availability.check"},
		{"calendar", Calendar("primary"), KeyCalendar, "primary"},
		{"time zone", TimeZone("America/New_York"), KeyTimeZone, "America/New_York"},
		{"request id", RequestID("abc"), KeyRequestID, "abc"},
		{"tool", Tool("save_booking"), KeyTool, "save_booking"},
		{"status", Status(StatusError), KeyStatus, StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantKey, tt.attr.Key)
			assert.Equal(t, tt.wantVal, tt.attr.Value.String())
		})
	}
}

func TestWithTool(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	WithTool(logger, "list_events").Info("called")
	assert.Contains(t, buf.String(), "tool=list_events")
}

func TestErr(t *testing.T) {
	t.Run("nil error is omitted", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		logger.Info("ok", Err(nil))
		assert.NotContains(t, buf.String(), KeyError)
	})

	t.Run("error message is kept", func(t *testing.T) {
		attr := Err(errors.New("boom"))
		assert.Equal(t, KeyError, attr.Key)
		assert.Equal(t, "boom", attr.Value.String())
	})
}

func TestSanitizeToken(t *testing.T) {
	assert.Equal(t, "<empty>", SanitizeToken(""))
	assert.Equal(t, "[token:5 chars]", SanitizeToken("abcde"))
	assert.NotContains(t, SanitizeToken("ya29.secret"), "ya29")
}
