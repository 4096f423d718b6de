package instrumentation

import "strings"

// ZoneLabel reduces an IANA zone name to a bounded metric label.
//
// Caller zones come straight from request bodies, so the full name is only
// used when detailed labels are enabled. Otherwise the area prefix is kept:
//
//	ZoneLabel("America/New_York", false)  // "America"
//	ZoneLabel("UTC", false)               // "UTC"
//	ZoneLabel("", false)                  // "unknown"
func ZoneLabel(zone string, detailed bool) string {
	zone = strings.TrimSpace(zone)
	if zone == "" {
		return "unknown"
	}
	if detailed {
		return zone
	}
	if area, _, ok := strings.Cut(zone, "/"); ok && area != "" {
		return area
	}
	return zone
}
