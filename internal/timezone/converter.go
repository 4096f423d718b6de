// Package timezone converts instants between a canonical scheduling zone and
// arbitrary caller zones.
package timezone

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultCanonicalZone is the zone all scheduling computation happens in.
const DefaultCanonicalZone = "Asia/Kolkata"

// DisplayLayout is the wall-clock layout returned to callers.
const DisplayLayout = "2006-01-02 15:04:05"

var (
	// ErrInvalidZone is returned for zone identifiers the tz database does not know.
	ErrInvalidZone = errors.New("invalid time zone")
	// ErrInvalidInstant is returned for date-time strings that cannot be parsed.
	ErrInvalidInstant = errors.New("invalid date-time")
)

// Layouts without an offset are read as wall-clock time in the source zone.
var wallClockLayouts = []string{
	"2006-01-02T15:04:05",
	DisplayLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Converter maps instants to and from the canonical zone.
type Converter struct {
	canonical *time.Location
}

// NewConverter returns a Converter for the named canonical zone.
func NewConverter(canonical string) (*Converter, error) {
	loc, err := LoadZone(canonical)
	if err != nil {
		return nil, err
	}
	return &Converter{canonical: loc}, nil
}

// Canonical returns the canonical location.
func (c *Converter) Canonical() *time.Location {
	return c.canonical
}

// ResolveZone loads zone, falling back to the canonical zone when zone is empty.
func (c *Converter) ResolveZone(zone string) (*time.Location, error) {
	if strings.TrimSpace(zone) == "" {
		return c.canonical, nil
	}
	return LoadZone(zone)
}

// ToCanonical interprets instant in sourceZone and returns it in the canonical zone.
// Strings carrying an explicit offset keep their instant regardless of sourceZone.
func (c *Converter) ToCanonical(instant, sourceZone string) (time.Time, error) {
	loc, err := c.ResolveZone(sourceZone)
	if err != nil {
		return time.Time{}, err
	}
	t, err := ParseInLocation(instant, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(c.canonical), nil
}

// FromCanonical formats t as wall-clock time in targetZone.
func (c *Converter) FromCanonical(t time.Time, targetZone string) (string, error) {
	loc, err := c.ResolveZone(targetZone)
	if err != nil {
		return "", err
	}
	return t.In(loc).Format(DisplayLayout), nil
}

// LoadZone loads an IANA zone, wrapping failures in ErrInvalidZone.
func LoadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	// time.LoadLocation maps "" to UTC; an empty name is never a valid caller zone here.
	if name == "" {
		return nil, fmt.Errorf("%w: empty zone name", ErrInvalidZone)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidZone, name)
	}
	return loc, nil
}

// ParseInLocation parses s as RFC 3339 or as one of the wall-clock layouts in loc.
func ParseInLocation(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidInstant)
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range wallClockLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidInstant, s)
}
