package utils

import (
	"fmt"
	"time"
)

// ParseDate parses a YYYY-MM-DD string into a UTC midnight timestamp.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date value")
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date: %w", err)
	}
	return t, nil
}

// DateOnly truncates a timestamp to UTC midnight.
func DateOnly(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first day of the timestamp's month.
func MonthStart(ts time.Time) time.Time {
	y, m, _ := ts.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// NextMonth advances a month-start timestamp by one month.
func NextMonth(ts time.Time) time.Time {
	return MonthStart(ts).AddDate(0, 1, 0)
}

// DaysBetween returns the whole-day distance from a to b, negative when b
// precedes a.
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}
