// Package scheduling_tools exposes the appointment operations as MCP tools:
// check_availability, save_booking and list_events.
//
// The tools call the same availability and booking services as the HTTP API,
// so validation, idempotency and the error taxonomy are identical. Invalid
// input comes back as a tool error result carrying the validation message;
// calendar failures come back as a generic error result with the cause
// logged server side.
package scheduling_tools
