package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/teemow/apptscheduler/internal/availability"
	"github.com/teemow/apptscheduler/internal/booking"
	"github.com/teemow/apptscheduler/internal/logging"
	"github.com/teemow/apptscheduler/internal/timezone"
)

// IdempotencyKeyHeader lets HTTP callers make save_booking safe to retry.
const IdempotencyKeyHeader = "Idempotency-Key"

// Generic 500 messages. The underlying cause is only logged.
const (
	msgAvailabilityFailed = "Error fetching available slots"
	msgBookingFailed      = "Error booking appointment"
	msgListFailed         = "Error fetching events"
	msgNoUpcomingEvents   = "No upcoming events found."
)

// AvailabilityChecker computes free slots.
type AvailabilityChecker interface {
	Check(ctx context.Context, req availability.Request) (*availability.Response, error)
}

// Booker books slots and lists what is already booked.
type Booker interface {
	Book(ctx context.Context, req booking.Request) (*booking.Confirmation, error)
	ListUpcoming(ctx context.Context, max int) ([]booking.EventSummary, error)
}

// API serves the scheduling endpoints.
type API struct {
	availability AvailabilityChecker
	booking      Booker
	logger       *slog.Logger
}

// NewAPI creates the JSON handlers over the two services.
func NewAPI(avail AvailabilityChecker, book Booker, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{availability: avail, booking: book, logger: logger}
}

// Register mounts the API routes on mux, each wrapped with mw.
func (a *API) Register(mux *http.ServeMux, mw ...Middleware) {
	mux.Handle("POST /check_availability", Chain(http.HandlerFunc(a.handleCheckAvailability), mw...))
	mux.Handle("POST /save_booking", Chain(http.HandlerFunc(a.handleSaveBooking), mw...))
	mux.Handle("GET /list_events", Chain(http.HandlerFunc(a.handleListEvents), mw...))
}

type invalidBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type errorBody struct {
	Error string `json:"error"`
}

type listBody struct {
	Events  []booking.EventSummary `json:"events,omitempty"`
	Message string                 `json:"message,omitempty"`
}

func (a *API) handleCheckAvailability(w http.ResponseWriter, r *http.Request) {
	logger := a.requestLogger(r, "availability.check")

	var req availability.Request
	if err := decodeArgs(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	resp, err := a.availability.Check(r.Context(), req)
	if err != nil {
		if isClientError(err) {
			writeJSON(w, http.StatusBadRequest, invalidBody{Status: "invalid", Message: err.Error()})
			return
		}
		logger.ErrorContext(r.Context(), "check availability failed", logging.Err(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgAvailabilityFailed})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleSaveBooking(w http.ResponseWriter, r *http.Request) {
	logger := a.requestLogger(r, "booking.save")

	var req booking.Request
	if err := decodeArgs(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader)); key != "" {
		req.IdempotencyKey = key
	}
	req.Channel = "http"

	conf, err := a.booking.Book(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, conf)
	case errors.Is(err, booking.ErrIdempotencyConflict):
		writeJSON(w, http.StatusConflict, invalidBody{Status: "conflict", Message: err.Error()})
	case isClientError(err):
		writeJSON(w, http.StatusBadRequest, invalidBody{Status: "invalid", Message: err.Error()})
	default:
		logger.ErrorContext(r.Context(), "save booking failed", logging.Err(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgBookingFailed})
	}
}

func (a *API) handleListEvents(w http.ResponseWriter, r *http.Request) {
	logger := a.requestLogger(r, "booking.list")

	limit := 0
	if v := r.URL.Query().Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 250 {
			writeJSON(w, http.StatusBadRequest, invalidBody{Status: "invalid", Message: "max must be between 1 and 250"})
			return
		}
		limit = n
	}

	events, err := a.booking.ListUpcoming(r.Context(), limit)
	if err != nil {
		logger.ErrorContext(r.Context(), "list events failed", logging.Err(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgListFailed})
		return
	}
	if len(events) == 0 {
		writeJSON(w, http.StatusOK, listBody{Message: msgNoUpcomingEvents})
		return
	}
	writeJSON(w, http.StatusOK, listBody{Events: events})
}

func (a *API) requestLogger(r *http.Request, operation string) *slog.Logger {
	return logging.WithOperation(a.logger, operation).
		With(logging.RequestID(RequestIDFromContext(r.Context())))
}

func isClientError(err error) bool {
	return errors.Is(err, availability.ErrInvalidRange) ||
		errors.Is(err, timezone.ErrInvalidZone) ||
		errors.Is(err, timezone.ErrInvalidInstant)
}

var errMalformedBody = errors.New("malformed JSON body")

// decodeArgs reads a JSON body into dst. The fields may also arrive nested
// under an "args" object, which is how tool-calling clients post them.
func decodeArgs(r *http.Request, dst any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}

	var envelope struct {
		Args json.RawMessage `json:"args"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("%w: %w", errMalformedBody, err)
	}
	if len(envelope.Args) > 0 && !bytes.Equal(envelope.Args, []byte("null")) {
		body = envelope.Args
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %w", errMalformedBody, err)
	}
	return nil
}

func writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, invalidBody{Status: "invalid", Message: "request body too large"})
		return
	}
	writeJSON(w, http.StatusBadRequest, invalidBody{Status: "invalid", Message: errMalformedBody.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
