package utils

import "time"

const DefaultDateFormat = "2006-01-02"

// Day truncates t to its calendar day in UTC, dropping the time of day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

// FormatDate formats a date with the default format.
func FormatDate(t time.Time) string {
	return t.Format(DefaultDateFormat)
}

// ParseDate parses a date with the default format.
func ParseDate(dateStr string) (time.Time, error) {
	return time.Parse(DefaultDateFormat, dateStr)
}
