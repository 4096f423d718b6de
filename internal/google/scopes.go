package google

import calendar "google.golang.org/api/calendar/v3"

// Scopes are the OAuth scopes the scheduler requests: free/busy reads and event writes.
var Scopes = []string{
	calendar.CalendarScope,
}
