package scheduling_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/apptscheduler/internal/availability"
	"github.com/teemow/apptscheduler/internal/booking"
	"github.com/teemow/apptscheduler/internal/instrumentation"
	"github.com/teemow/apptscheduler/internal/logging"
	"github.com/teemow/apptscheduler/internal/timezone"
	"github.com/teemow/apptscheduler/internal/tools/common"
)

// Tool names.
const (
	ToolCheckAvailability = "check_availability"
	ToolSaveBooking       = "save_booking"
	ToolListEvents        = "list_events"
)

// AvailabilityChecker computes free slots.
type AvailabilityChecker interface {
	Check(ctx context.Context, req availability.Request) (*availability.Response, error)
}

// Booker books slots and lists upcoming events.
type Booker interface {
	Book(ctx context.Context, req booking.Request) (*booking.Confirmation, error)
	ListUpcoming(ctx context.Context, max int) ([]booking.EventSummary, error)
}

// Deps are the services behind the tools. Metrics and Logger may be nil.
type Deps struct {
	Availability AvailabilityChecker
	Booking      Booker
	Metrics      *instrumentation.Metrics
	Logger       *slog.Logger
}

// RegisterSchedulingTools registers the scheduling tools with the MCP server.
func RegisterSchedulingTools(s *mcpserver.MCPServer, d Deps) error {
	if d.Availability == nil || d.Booking == nil {
		return fmt.Errorf("scheduling tools need both availability and booking services")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	h := &handlers{deps: d}

	checkAvailabilityTool := mcp.NewTool(ToolCheckAvailability,
		mcp.WithDescription("List free one-hour appointment slots between startDate and endDate, rendered in the caller's time zone"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("timeZone",
			mcp.Description("IANA time zone for the returned slots, e.g. 'America/New_York' (default: the calendar's zone)"),
		),
		mcp.WithString("startDate",
			mcp.Description("Start of the search window, a date ('2025-03-10') or RFC3339 time (default: today)"),
		),
		mcp.WithString("endDate",
			mcp.Description("End of the search window, a date or RFC3339 time (default: two weeks after startDate)"),
		),
	)
	s.AddTool(checkAvailabilityTool, mcpserver.ToolHandlerFunc(common.InstrumentedToolHandler(ToolCheckAvailability, d.Metrics, d.Logger, h.checkAvailability)))

	saveBookingTool := mcp.NewTool(ToolSaveBooking,
		mcp.WithDescription("Book a one-hour appointment starting at selectedDateTime"),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("selectedDateTime",
			mcp.Required(),
			mcp.Description("Slot start as shown by check_availability, e.g. '2025-03-10 10:30:00', read in timeZone"),
		),
		mcp.WithString("timeZone",
			mcp.Description("IANA time zone of selectedDateTime (default: the calendar's zone)"),
		),
		mcp.WithString("idempotencyKey",
			mcp.Description("Client-chosen key; retrying with the same key returns the original booking instead of creating a duplicate"),
		),
	)
	s.AddTool(saveBookingTool, mcpserver.ToolHandlerFunc(common.InstrumentedToolHandler(ToolSaveBooking, d.Metrics, d.Logger, h.saveBooking)))

	listEventsTool := mcp.NewTool(ToolListEvents,
		mcp.WithDescription("List upcoming events on the booking calendar"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of events to return (default: 10, max: 250)"),
			mcp.Min(1),
			mcp.Max(250),
		),
	)
	s.AddTool(listEventsTool, mcpserver.ToolHandlerFunc(common.InstrumentedToolHandler(ToolListEvents, d.Metrics, d.Logger, h.listEvents)))

	return nil
}

type handlers struct {
	deps Deps
}

func (h *handlers) checkAvailability(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	var req availability.Request
	var err error
	if req.TimeZone, err = common.StringArg(args, "timeZone"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.StartDate, err = common.StringArg(args, "startDate"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.EndDate, err = common.StringArg(args, "endDate"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := h.deps.Availability.Check(ctx, req)
	if err != nil {
		return h.errorResult(ctx, ToolCheckAvailability, err, "Error fetching available slots"), nil
	}
	return jsonResult(resp)
}

func (h *handlers) saveBooking(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	req := booking.Request{Channel: "mcp"}
	var err error
	if req.SelectedDateTime, err = common.StringArg(args, "selectedDateTime"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.SelectedDateTime == "" {
		return mcp.NewToolResultError("selectedDateTime is required"), nil
	}
	if req.TimeZone, err = common.StringArg(args, "timeZone"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.IdempotencyKey, err = common.StringArg(args, "idempotencyKey"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	conf, err := h.deps.Booking.Book(ctx, req)
	if err != nil {
		return h.errorResult(ctx, ToolSaveBooking, err, "Error booking appointment"), nil
	}
	return jsonResult(conf)
}

func (h *handlers) listEvents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit, err := common.IntArg(request.GetArguments(), "maxResults", booking.DefaultListMax)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if limit < 1 || limit > 250 {
		return mcp.NewToolResultError("maxResults must be between 1 and 250"), nil
	}

	events, err := h.deps.Booking.ListUpcoming(ctx, limit)
	if err != nil {
		return h.errorResult(ctx, ToolListEvents, err, "Error fetching events"), nil
	}
	if len(events) == 0 {
		return mcp.NewToolResultText("No upcoming events found."), nil
	}
	return jsonResult(map[string]any{"events": events})
}

// errorResult shows validation messages to the caller and hides everything else.
func (h *handlers) errorResult(ctx context.Context, tool string, err error, generic string) *mcp.CallToolResult {
	if errors.Is(err, availability.ErrInvalidRange) ||
		errors.Is(err, timezone.ErrInvalidZone) ||
		errors.Is(err, timezone.ErrInvalidInstant) ||
		errors.Is(err, booking.ErrIdempotencyConflict) {
		return mcp.NewToolResultError(err.Error())
	}
	logging.WithTool(h.deps.Logger, tool).ErrorContext(ctx, "tool call failed", logging.Err(err))
	return mcp.NewToolResultError(generic)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
