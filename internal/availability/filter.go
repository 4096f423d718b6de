package availability

import (
	"iter"
	"time"
)

// IsFree reports whether no busy interval contains slot.
func IsFree(slot time.Time, busy []BusyInterval) bool {
	for _, b := range busy {
		if b.Contains(slot) {
			return false
		}
	}
	return true
}

// FreeSlots keeps the free slots of seq in generation order.
func FreeSlots(seq iter.Seq[time.Time], busy []BusyInterval) []time.Time {
	free := []time.Time{}
	for slot := range seq {
		if IsFree(slot, busy) {
			free = append(free, slot)
		}
	}
	return free
}
