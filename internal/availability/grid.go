package availability

import (
	"iter"
	"slices"
	"time"
)

// Generate yields candidate slot starts for every date touched by r.
//
// For each date from r.Start's date to r.End's date, in r.Start's location,
// slots start at workStartHour:00 and advance by stepMinutes while strictly
// before workEndHour:00 of the same date. The grid is anchored on dates, so
// the time of day of r.Start does not shift the first slot.
//
// The sequence is lazy and can be ranged over any number of times.
func Generate(r TimeRange, workStartHour, workEndHour, stepMinutes int) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		if stepMinutes <= 0 || workStartHour < 0 || workEndHour > 24 || workStartHour >= workEndHour {
			return
		}
		if r.End.Before(r.Start) {
			return
		}

		loc := r.Start.Location()
		step := time.Duration(stepMinutes) * time.Minute
		y, m, d := r.Start.Date()
		last := civilDate(r.End.In(loc))

		for i := 0; ; i++ {
			day := time.Date(y, m, d+i, 0, 0, 0, 0, loc)
			if civilDate(day).After(last) {
				return
			}
			dy, dm, dd := day.Date()
			stop := time.Date(dy, dm, dd, workEndHour, 0, 0, 0, loc)
			for cur := time.Date(dy, dm, dd, workStartHour, 0, 0, 0, loc); cur.Before(stop); cur = cur.Add(step) {
				if !yield(cur) {
					return
				}
			}
		}
	}
}

// Collect materializes a grid.
func Collect(seq iter.Seq[time.Time]) []time.Time {
	return slices.Collect(seq)
}

// civilDate drops the clock and zone so dates compare independently of DST.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
