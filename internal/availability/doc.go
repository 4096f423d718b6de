// Package availability computes open appointment slots.
//
// A request flows through a fixed pipeline: the caller's date range is
// validated and defaulted, busy intervals are fetched from the calendar
// collaborator, an hourly grid of candidate slots is generated inside the
// working-hour window, busy slots are dropped, and the remaining slot starts
// are rendered in the caller's time zone.
//
// All computation happens in the canonical zone configured on the
// timezone.Converter. Busy intervals are half-open: a slot starting exactly
// when a busy interval ends is free.
package availability
