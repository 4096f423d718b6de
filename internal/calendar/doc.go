// Package calendar adapts the Google Calendar v3 API to the scheduler.
//
// Client implements availability.BusyQuerier (free/busy queries) and
// booking.Calendar (insert, get and list events). Every call is traced,
// counted in calendar_api_operations_total and bounded by the caller's
// context deadline.
//
// Example usage:
//
//	httpClient := google.NewHTTPClient(tokenSource)
//	client, err := calendar.NewClient(ctx, httpClient, calendar.WithMetrics(provider.Metrics()))
//	if err != nil {
//	    return err
//	}
//	busy, err := client.QueryBusy(ctx, availability.TimeRange{Start: from, End: to}, "primary")
package calendar
