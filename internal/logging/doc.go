// Package logging provides structured logging utilities for the appointment
// scheduler.
//
// It centralizes attribute naming so every package logs the same keys
// (operation, calendar, time_zone, request_id, status, error) on top of the
// standard library's slog package.
//
// # Usage Patterns
//
// Build the process logger once at startup:
//
//	logger, err := logging.NewLogger(os.Stderr, "info", "json")
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "availability.check")
//	logger.Info("computed slots",
//	    logging.TimeZone("Europe/Berlin"),
//	    logging.Status(logging.StatusSuccess))
//
// OAuth tokens are never logged directly; use SanitizeToken.
package logging
