package instrumentation

import "testing"

func TestZoneLabel(t *testing.T) {
	tests := []struct {
		zone     string
		detailed bool
		want     string
	}{
		{"America/New_York", false, "America"},
		{"America/Argentina/Buenos_Aires", false, "America"},
		{"Asia/Kolkata", true, "Asia/Kolkata"},
		{"UTC", false, "UTC"},
		{"", false, "unknown"},
		{"  ", true, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.zone, func(t *testing.T) {
			if got := ZoneLabel(tt.zone, tt.detailed); got != tt.want {
				t.Errorf("ZoneLabel(%q, %v) = %q, want %q", tt.zone, tt.detailed, got, tt.want)
			}
		})
	}
}
