// Package timezone converts between civil (wall-clock) date/times in an IANA
// zone and absolute UTC instants. It is the only place in the system that
// touches the timezone database, so the DST resolution policy lives here and
// nowhere else.
package timezone

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidTimezone is returned when the identifier names no known IANA zone.
	ErrInvalidTimezone = errors.New("timezone: invalid timezone")
	// ErrInvalidDateTime is returned when a civil date/time string cannot be parsed.
	ErrInvalidDateTime = errors.New("timezone: invalid date/time")
)

// Accepted civil layouts, tried in order. Values carrying an explicit offset
// are handled separately via RFC 3339.
var civilLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Normalizer performs civil/UTC conversions. The zero value is ready to use;
// it is stateless and safe for concurrent use.
type Normalizer struct{}

// ToUTC interprets the civil date/time string as wall-clock time in the given
// IANA zone and returns the corresponding UTC instant. Strings carrying an
// explicit offset (RFC 3339) are honored as-is and the zone parameter only
// needs to be valid.
//
// DST policy: an ambiguous local time (clocks fell back) resolves to the
// earlier of the two possible UTC instants; a nonexistent local time (clocks
// sprang forward) resolves using the offset in force before the transition.
func (Normalizer) ToUTC(civil, tz string) (time.Time, error) {
	loc, err := loadLocation(tz)
	if err != nil {
		return time.Time{}, err
	}

	civil = strings.TrimSpace(civil)
	if civil == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidDateTime)
	}

	if ts, err := time.Parse(time.RFC3339Nano, civil); err == nil {
		return ts.UTC(), nil
	}
	if ts, err := time.Parse(time.RFC3339, civil); err == nil {
		return ts.UTC(), nil
	}

	naive, err := parseCivil(civil)
	if err != nil {
		return time.Time{}, err
	}

	return resolveLocal(naive, loc), nil
}

// ToCivil projects a UTC instant into the wall-clock representation for the
// given zone. Total for any valid zone and representable instant.
func (Normalizer) ToCivil(utc time.Time, tz string) (time.Time, error) {
	loc, err := loadLocation(tz)
	if err != nil {
		return time.Time{}, err
	}
	return utc.In(loc), nil
}

// WeekBounds returns the UTC instants of Monday 00:00:00 through the
// following Monday 00:00:00 (exclusive) of the week containing the anchor
// civil date, in the given zone's wall-clock frame. Monday is day 1
// regardless of locale; weeks straddling a DST transition are shorter or
// longer than 168 hours accordingly.
func (n Normalizer) WeekBounds(anchor, tz string) (time.Time, time.Time, error) {
	loc, err := loadLocation(tz)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	naive, err := parseCivil(strings.TrimSpace(anchor))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	day := time.Date(naive.Year(), naive.Month(), naive.Day(), 0, 0, 0, 0, time.UTC)
	// In Go, Monday == 1 and Sunday == 0.
	offset := (int(day.Weekday()) + 6) % 7
	monday := day.AddDate(0, 0, -offset)

	start := resolveLocal(monday, loc)
	end := resolveLocal(monday.AddDate(0, 0, 7), loc)
	return start, end, nil
}

func loadLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return nil, fmt.Errorf("%w: empty identifier", ErrInvalidTimezone)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	return loc, nil
}

// parseCivil parses a naive civil string into a time.Time whose components
// carry the wall-clock fields. The returned value is in UTC purely as a
// carrier; it is not an instant.
func parseCivil(value string) (time.Time, error) {
	for _, layout := range civilLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateTime, value)
}

// resolveLocal maps wall-clock fields onto a UTC instant in loc. The zone
// offsets 24 hours before and after the naive instant bracket any transition
// that could affect it; each distinct offset yields a candidate instant, and
// the earliest candidate that reproduces the wall clock wins. When none does
// (the time fell in a spring-forward gap) the pre-transition offset applies.
func resolveLocal(naive time.Time, loc *time.Location) time.Time {
	_, before := naive.Add(-24 * time.Hour).In(loc).Zone()
	_, after := naive.Add(24 * time.Hour).In(loc).Zone()

	offsets := []int{before}
	if after != before {
		offsets = append(offsets, after)
	}

	var candidates []time.Time
	for _, off := range offsets {
		candidates = append(candidates, naive.Add(-time.Duration(off)*time.Second))
	}
	if len(candidates) == 2 && candidates[1].Before(candidates[0]) {
		candidates[0], candidates[1] = candidates[1], candidates[0]
	}

	for _, candidate := range candidates {
		if sameWallClock(candidate.In(loc), naive) {
			return candidate
		}
	}

	return naive.Add(-time.Duration(before) * time.Second)
}

func sameWallClock(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day() &&
		a.Hour() == b.Hour() && a.Minute() == b.Minute() && a.Second() == b.Second()
}
