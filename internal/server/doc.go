// Package server exposes the scheduling services over HTTP.
//
// The public listener serves:
//   - POST /check_availability and POST /save_booking (JSON, optionally
//     wrapped in an "args" object)
//   - GET /list_events
//   - GET / and GET /redirect for the one-time Google consent flow
//   - /mcp, the same operations as MCP tools over streamable HTTP
//   - /healthz, /readyz and /healthz/detailed for Kubernetes probes
//
// Every request gets a request id, an access log line, HTTP metrics and an
// OpenTelemetry span. Scheduling routes are also rate limited per client IP,
// body-size limited and bounded by a timeout.
//
// MetricsServer serves Prometheus metrics on a separate port.
package server
