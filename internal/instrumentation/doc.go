// Package instrumentation provides OpenTelemetry metrics and tracing for the
// appointment scheduler.
//
// # Configuration
//
// Instrumentation is configured through environment variables:
//
//	INSTRUMENTATION_ENABLED       - enable/disable instrumentation (default: true)
//	METRICS_EXPORTER              - prometheus, otlp, stdout (default: prometheus)
//	TRACING_EXPORTER              - otlp, stdout, none (default: none)
//	OTEL_EXPORTER_OTLP_ENDPOINT   - OTLP collector endpoint, e.g. localhost:4318
//	OTEL_EXPORTER_OTLP_INSECURE   - plain HTTP for OTLP (default: false)
//	OTEL_TRACES_SAMPLER_ARG       - sampling rate 0.0-1.0 (default: 0.1)
//	OTEL_SERVICE_NAME             - service name (default: apptscheduler)
//	METRICS_DETAILED_LABELS       - full time zone labels (default: false)
//	AUDIT_LOGGING_ENABLED         - booking audit log (default: true)
//
// # Metrics
//
//   - http_requests_total, http_request_duration_seconds
//   - calendar_api_operations_total, calendar_api_operation_duration_seconds
//   - availability_slots_returned
//   - calendar_busy_intervals_skipped_total
//   - bookings_total (result: booked, replayed, rejected, failed)
//   - oauth_auth_total, oauth_token_refresh_total
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds
//
// With the prometheus exporter the metrics are served by the metrics server
// in internal/server at /metrics.
//
// # Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer provider.Shutdown(ctx)
//
//	ctx, span := instrumentation.StartCalendarSpan(ctx, instrumentation.OperationFreeBusy, "primary")
//	defer span.End()
//	provider.Metrics().RecordCalendarOperation(ctx, instrumentation.OperationFreeBusy, instrumentation.StatusSuccess, elapsed)
package instrumentation
