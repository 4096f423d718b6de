package scheduling_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/apptscheduler/internal/availability"
	"github.com/teemow/apptscheduler/internal/booking"
	"github.com/teemow/apptscheduler/internal/timezone"
)

type fakeAvailability struct {
	resp *availability.Response
	err  error
	got  []availability.Request
}

func (f *fakeAvailability) Check(_ context.Context, req availability.Request) (*availability.Response, error) {
	f.got = append(f.got, req)
	return f.resp, f.err
}

type fakeBooker struct {
	conf    *booking.Confirmation
	bookErr error
	events  []booking.EventSummary
	listErr error

	gotBook []booking.Request
	gotMax  []int
}

func (f *fakeBooker) Book(_ context.Context, req booking.Request) (*booking.Confirmation, error) {
	f.gotBook = append(f.gotBook, req)
	return f.conf, f.bookErr
}

func (f *fakeBooker) ListUpcoming(_ context.Context, max int) ([]booking.EventSummary, error) {
	f.gotMax = append(f.gotMax, max)
	return f.events, f.listErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func call(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args

	result, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", result.Content[0])
	return result, text.Text
}

func TestRegisterSchedulingTools(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterSchedulingTools(s, Deps{Availability: &fakeAvailability{}, Booking: &fakeBooker{}}))

	tools := s.ListTools()
	for _, name := range []string{ToolCheckAvailability, ToolSaveBooking, ToolListEvents} {
		assert.Contains(t, tools, name)
	}
	assert.Contains(t, tools[ToolSaveBooking].Tool.InputSchema.Required, "selectedDateTime")

	assert.Error(t, RegisterSchedulingTools(s, Deps{}))
}

func TestCheckAvailabilityTool(t *testing.T) {
	t.Run("slots", func(t *testing.T) {
		avail := &fakeAvailability{resp: &availability.Response{
			TimeZone:       "America/New_York",
			AvailableSlots: []string{"2025-03-10 00:30:00"},
		}}
		h := &handlers{deps: Deps{Availability: avail}}

		result, text := call(t, h.checkAvailability, map[string]any{
			"timeZone":  "America/New_York",
			"startDate": "2025-03-10",
			"endDate":   "2025-03-10",
		})
		assert.False(t, result.IsError)
		assert.Equal(t, []availability.Request{{TimeZone: "America/New_York", StartDate: "2025-03-10", EndDate: "2025-03-10"}}, avail.got)

		var resp availability.Response
		require.NoError(t, json.Unmarshal([]byte(text), &resp))
		assert.Equal(t, []string{"2025-03-10 00:30:00"}, resp.AvailableSlots)
	})

	t.Run("inverted range message is shown", func(t *testing.T) {
		h := &handlers{deps: Deps{Availability: &fakeAvailability{err: availability.ErrInvalidRange}}}
		result, text := call(t, h.checkAvailability, map[string]any{"startDate": "2025-03-12", "endDate": "2025-03-10"})
		assert.True(t, result.IsError)
		assert.Equal(t, "startDate cannot be after endDate", text)
	})

	t.Run("upstream cause is hidden", func(t *testing.T) {
		h := &handlers{deps: Deps{
			Availability: &fakeAvailability{err: fmt.Errorf("%w: oauth2: token expired", availability.ErrUpstreamUnavailable)},
			Logger:       discardLogger(),
		}}
		result, text := call(t, h.checkAvailability, nil)
		assert.True(t, result.IsError)
		assert.Equal(t, "Error fetching available slots", text)
	})

	t.Run("wrong argument type", func(t *testing.T) {
		avail := &fakeAvailability{}
		h := &handlers{deps: Deps{Availability: avail}}
		result, _ := call(t, h.checkAvailability, map[string]any{"timeZone": 5})
		assert.True(t, result.IsError)
		assert.Empty(t, avail.got)
	})
}

func TestSaveBookingTool(t *testing.T) {
	conf := &booking.Confirmation{Message: "Appointment booked successfully in Asia/Kolkata", BookedTime: "2025-03-10T15:00:00+05:30", EventID: "evt1"}

	t.Run("booked", func(t *testing.T) {
		book := &fakeBooker{conf: conf}
		h := &handlers{deps: Deps{Booking: book}}

		result, text := call(t, h.saveBooking, map[string]any{
			"selectedDateTime": "2025-03-10 10:30:00",
			"timeZone":         "Europe/London",
			"idempotencyKey":   "k1",
		})
		assert.False(t, result.IsError)
		require.Len(t, book.gotBook, 1)
		assert.Equal(t, booking.Request{
			SelectedDateTime: "2025-03-10 10:30:00",
			TimeZone:         "Europe/London",
			IdempotencyKey:   "k1",
			Channel:          "mcp",
		}, book.gotBook[0])

		var got booking.Confirmation
		require.NoError(t, json.Unmarshal([]byte(text), &got))
		assert.Equal(t, *conf, got)
	})

	t.Run("missing slot", func(t *testing.T) {
		book := &fakeBooker{}
		h := &handlers{deps: Deps{Booking: book}}
		result, text := call(t, h.saveBooking, map[string]any{})
		assert.True(t, result.IsError)
		assert.Equal(t, "selectedDateTime is required", text)
		assert.Empty(t, book.gotBook)
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name string
			err  error
			want string
		}{
			{"bad instant", fmt.Errorf("%w: soon", timezone.ErrInvalidInstant), "invalid date-time: soon"},
			{"key conflict", booking.ErrIdempotencyConflict, booking.ErrIdempotencyConflict.Error()},
			{"calendar down", booking.ErrUpstreamUnavailable, "Error booking appointment"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				h := &handlers{deps: Deps{Booking: &fakeBooker{bookErr: tt.err}, Logger: discardLogger()}}
				result, text := call(t, h.saveBooking, map[string]any{"selectedDateTime": "soon"})
				assert.True(t, result.IsError)
				assert.Equal(t, tt.want, text)
			})
		}
	})
}

func TestListEventsTool(t *testing.T) {
	t.Run("default limit", func(t *testing.T) {
		book := &fakeBooker{events: []booking.EventSummary{{ID: "a", Summary: "Appointment Scheduler Event!"}}}
		h := &handlers{deps: Deps{Booking: book}}

		result, text := call(t, h.listEvents, nil)
		assert.False(t, result.IsError)
		assert.Equal(t, []int{booking.DefaultListMax}, book.gotMax)
		assert.Contains(t, text, `"events"`)
		assert.Contains(t, text, "Appointment Scheduler Event!")
	})

	t.Run("empty", func(t *testing.T) {
		h := &handlers{deps: Deps{Booking: &fakeBooker{}}}
		result, text := call(t, h.listEvents, map[string]any{"maxResults": 3.0})
		assert.False(t, result.IsError)
		assert.Equal(t, "No upcoming events found.", text)
	})

	t.Run("out of range", func(t *testing.T) {
		book := &fakeBooker{}
		h := &handlers{deps: Deps{Booking: book}}
		result, _ := call(t, h.listEvents, map[string]any{"maxResults": 0.0})
		assert.True(t, result.IsError)
		assert.Empty(t, book.gotMax)
	})

	t.Run("upstream failure", func(t *testing.T) {
		h := &handlers{deps: Deps{Booking: &fakeBooker{listErr: booking.ErrUpstreamUnavailable}, Logger: discardLogger()}}
		result, text := call(t, h.listEvents, nil)
		assert.True(t, result.IsError)
		assert.Equal(t, "Error fetching events", text)
	})
}
