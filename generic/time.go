package generic

import (
	"fmt"
	"regexp"
	"time"
)

// =============================================================================
// DATE KEYS - Calendar-day identifiers independent of time-of-day
// =============================================================================

const (
	// DateKeyLayout is the canonical YYYY-MM-DD layout.
	DateKeyLayout = "2006-01-02"

	// ClockLayout is the 24-hour HH:MM layout.
	ClockLayout = "15:04"
)

var clockPattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

// DateKey returns the YYYY-MM-DD key of t, built from t's own local
// year/month/day components. It never goes through UTC.
func DateKey(t time.Time) string {
	y, m, d := t.Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

// DateKeyOf returns the date key of an instant as seen in loc.
func DateKeyOf(t time.Time, loc *time.Location) string {
	return DateKey(t.In(orLocal(loc)))
}

// HourOf returns the 0..23 hour of an instant as seen in loc.
func HourOf(t time.Time, loc *time.Location) int {
	return t.In(orLocal(loc)).Hour()
}

// ClockOf formats the time-of-day of an instant as HH:MM in loc.
func ClockOf(t time.Time, loc *time.Location) string {
	return t.In(orLocal(loc)).Format(ClockLayout)
}

// ParseDateKey parses a YYYY-MM-DD key into midnight of that day in loc.
func ParseDateKey(key string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateKeyLayout, key, orLocal(loc))
	if err != nil {
		return time.Time{}, &FormatError{Kind: "date", Value: key}
	}
	return t, nil
}

// ValidClock reports whether s is a well-formed HH:MM between 00:00 and 23:59.
func ValidClock(s string) bool {
	if !clockPattern.MatchString(s) {
		return false
	}
	_, err := time.Parse(ClockLayout, s)
	return err == nil
}

// ComposeInstant builds the instant for a calendar day and a 24-hour clock
// time in loc. Callers validate input first; malformed strings yield a
// *FormatError.
func ComposeInstant(dateKey, hhmm string, loc *time.Location) (time.Time, error) {
	day, err := ParseDateKey(dateKey, loc)
	if err != nil {
		return time.Time{}, err
	}
	if !ValidClock(hhmm) {
		return time.Time{}, &FormatError{Kind: "time", Value: hhmm}
	}
	clock, _ := time.Parse(ClockLayout, hhmm)
	y, m, d := day.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, day.Location()), nil
}

// ShiftDateKey moves a date key by n calendar days.
func ShiftDateKey(key string, n int, loc *time.Location) (string, error) {
	day, err := ParseDateKey(key, loc)
	if err != nil {
		return "", err
	}
	y, m, d := day.Date()
	return DateKey(time.Date(y, m, d+n, 0, 0, 0, 0, day.Location())), nil
}

// Today returns the date key of now in loc.
func Today(now time.Time, loc *time.Location) string {
	return DateKeyOf(now, loc)
}

func orLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
