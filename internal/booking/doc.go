// Package booking turns a selected slot into a calendar event.
//
// The caller sends the wall-clock slot it picked from an availability
// response together with the zone it was rendered in. The service converts it
// to the canonical zone, inserts a one-hour event on the configured calendar
// and returns a confirmation. Nothing is stored locally apart from an optional
// idempotency cache of confirmations keyed by the client's Idempotency-Key.
//
// Bookings are not checked against availability. Two callers booking the same
// slot both succeed.
package booking
