package calendar

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/apptscheduler/internal/availability"
	"github.com/teemow/apptscheduler/internal/booking"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := calendar.NewService(context.Background(),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)
	return NewClientFromService(svc)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func testRange(t *testing.T) availability.TimeRange {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return availability.TimeRange{
		Start: time.Date(2024, 6, 10, 0, 0, 0, 0, loc),
		End:   time.Date(2024, 6, 10, 23, 59, 59, 0, loc),
	}
}

func TestQueryBusy(t *testing.T) {
	var got calendar.FreeBusyRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/freeBusy"), r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{
			"calendars": map[string]any{
				"primary": map[string]any{
					"busy": []map[string]any{
						{"start": "2024-06-10T05:30:00Z", "end": "2024-06-10T07:30:00Z"},
						{"start": "not-a-time", "end": "2024-06-10T09:00:00Z"},
						{"start": "2024-06-10T10:00:00Z", "end": "2024-06-10T09:00:00Z"},
						{"start": "2024-06-10T11:00:00+05:30", "end": "2024-06-10T11:30:00+05:30"},
					},
				},
			},
		})
	})

	busy, err := client.QueryBusy(context.Background(), testRange(t), "primary")
	require.NoError(t, err)

	assert.Equal(t, "2024-06-10T00:00:00+05:30", got.TimeMin)
	assert.Equal(t, "2024-06-10T23:59:59+05:30", got.TimeMax)
	assert.Equal(t, "Asia/Kolkata", got.TimeZone)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "primary", got.Items[0].Id)

	// Malformed and inverted entries are skipped.
	require.Len(t, busy, 2)
	assert.True(t, busy[0].Start.Equal(time.Date(2024, 6, 10, 5, 30, 0, 0, time.UTC)))
	assert.True(t, busy[0].End.Equal(time.Date(2024, 6, 10, 7, 30, 0, 0, time.UTC)))
	assert.Equal(t, 30*time.Minute, busy[1].End.Sub(busy[1].Start))
}

func TestQueryBusy_CalendarErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"calendars": map[string]any{
				"primary": map[string]any{
					"errors": []map[string]any{{"domain": "global", "reason": "notFound"}},
				},
			},
		})
	})

	_, err := client.QueryBusy(context.Background(), testRange(t), "primary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notFound")
}

func TestQueryBusy_MissingCalendar(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"calendars": map[string]any{}})
	})

	_, err := client.QueryBusy(context.Background(), testRange(t), "team@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestQueryBusy_HTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": map[string]any{"code": 500, "message": "backend error"},
		})
	})

	_, err := client.QueryBusy(context.Background(), testRange(t), "primary")
	assert.Error(t, err)
}

func TestInsertEvent(t *testing.T) {
	var got calendar.Event
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/calendars/primary/events"), r.URL.Path)
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, &got))
		writeJSON(w, http.StatusOK, map[string]any{
			"id":       "abc123",
			"htmlLink": "https://calendar.google.com/event?eid=abc123",
			"start":    map[string]any{"dateTime": got.Start.DateTime, "timeZone": got.Start.TimeZone},
		})
	})

	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	start := time.Date(2024, 6, 10, 11, 0, 0, 0, loc)

	created, err := client.InsertEvent(context.Background(), "primary", booking.Event{
		ID:       "00112233445566778899aabbccddeeff",
		Summary:  booking.DefaultSummary,
		Start:    start,
		End:      start.Add(time.Hour),
		TimeZone: "Asia/Kolkata",
	})
	require.NoError(t, err)

	assert.Equal(t, "00112233445566778899aabbccddeeff", got.Id)
	assert.Equal(t, "Appointment Scheduler Event!", got.Summary)
	assert.Equal(t, "2024-06-10T11:00:00+05:30", got.Start.DateTime)
	assert.Equal(t, "Asia/Kolkata", got.Start.TimeZone)
	assert.Equal(t, "2024-06-10T12:00:00+05:30", got.End.DateTime)
	assert.Equal(t, "Asia/Kolkata", got.End.TimeZone)

	assert.Equal(t, "abc123", created.ID)
	assert.Equal(t, "https://calendar.google.com/event?eid=abc123", created.HTMLLink)
	assert.True(t, created.Start.Equal(start))
}

func TestInsertEvent_Conflict(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": map[string]any{"code": 409, "message": "The requested identifier already exists."},
		})
	})

	now := time.Now()
	_, err := client.InsertEvent(context.Background(), "primary", booking.Event{ID: "dup00", Start: now, End: now.Add(time.Hour)})
	assert.ErrorIs(t, err, booking.ErrEventExists)
}

func TestGetEvent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/calendars/primary/events/evt1"), r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"id":       "evt1",
			"htmlLink": "link",
			"start":    map[string]any{"dateTime": "2024-06-10T11:00:00+05:30"},
		})
	})

	ev, err := client.GetEvent(context.Background(), "primary", "evt1")
	require.NoError(t, err)
	assert.Equal(t, "evt1", ev.ID)
	assert.Equal(t, "link", ev.HTMLLink)
}

func TestListUpcoming(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2024-06-10T08:00:00Z", q.Get("timeMin"))
		assert.Equal(t, "10", q.Get("maxResults"))
		assert.Equal(t, "true", q.Get("singleEvents"))
		assert.Equal(t, "startTime", q.Get("orderBy"))
		writeJSON(w, http.StatusOK, map[string]any{
			"items": []map[string]any{
				{
					"id":      "ev1",
					"summary": "Daily Standup",
					"status":  "confirmed",
					"start":   map[string]any{"dateTime": "2024-06-10T09:00:00Z"},
					"end":     map[string]any{"dateTime": "2024-06-10T09:30:00Z"},
				},
				{
					"id":      "ev2",
					"summary": "Holiday",
					"start":   map[string]any{"date": "2024-06-11"},
					"end":     map[string]any{"date": "2024-06-12"},
				},
			},
		})
	})

	events, err := client.ListUpcoming(context.Background(), "primary", time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC), 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, booking.EventSummary{
		ID:      "ev1",
		Summary: "Daily Standup",
		Start:   "2024-06-10T09:00:00Z",
		End:     "2024-06-10T09:30:00Z",
		Status:  "confirmed",
	}, events[0])
	assert.Equal(t, "2024-06-11", events[1].Start)
}

func TestListUpcoming_Empty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"items": []any{}})
	})

	events, err := client.ListUpcoming(context.Background(), "primary", time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestClientHonoursDeadline(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server watches the connection and cancels
		// r.Context() when the client gives up; otherwise srv.Close blocks.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.QueryBusy(ctx, testRange(t), "primary")
	assert.Error(t, err)
}

func TestNewClientRequiresHTTPClient(t *testing.T) {
	_, err := NewClient(context.Background(), nil)
	assert.Error(t, err)
}
