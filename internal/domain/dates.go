package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateFormat is the wire format for calendar dates
const DateFormat = "2006-01-02"

// readDateFormats are tried in order; the first allows single-digit month/day.
var readDateFormats = []string{
	"2006-1-2",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/1/2",
}

// Day returns the canonical representation of a calendar day (midnight UTC)
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate drops the time-of-day, keeping the calendar day in its own location
func Truncate(t time.Time) time.Time {
	return Day(t.Date())
}

// ParseDate parses a calendar date leniently ("2025-7-1", "2025-07-01", timestamps).
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range readDateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return Truncate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q want format %q: %w", s, DateFormat, ErrInvalidArgument)
}

// MustParseDate is like ParseDate but panics on error.
func MustParseDate(s string) time.Time {
	d, err := ParseDate(s)
	if err != nil {
		panic(err.Error())
	}
	return d
}

// FormatDate formats a date in DateFormat
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}
