package models

import (
	"strings"
	"time"
)

// TrendsEpoch is the earliest date the upstream source has data for.
var TrendsEpoch = time.Date(2004, time.January, 1, 0, 0, 0, 0, time.UTC)

const dateLayout = "2006-01-02"

// Timeframe is a closed date interval resolved at parse time. Raw preserves
// the caller's spelling for request echoing and cache keys.
type Timeframe struct {
	Raw   string
	Start time.Time
	End   time.Time
}

// namedWindows maps relative timeframe spellings to their lookback.
var namedWindows = map[string]func(now time.Time) time.Time{
	"today 1-m":  func(now time.Time) time.Time { return now.AddDate(0, -1, 0) },
	"today 3-m":  func(now time.Time) time.Time { return now.AddDate(0, -3, 0) },
	"today 12-m": func(now time.Time) time.Time { return now.AddDate(0, -12, 0) },
	"today 5-y":  func(now time.Time) time.Time { return now.AddDate(-5, 0, 0) },
}

// subDailyWindows are upstream spellings for hourly resolution. The engine
// reconciles daily and monthly cadences only, so these are rejected outright.
var subDailyWindows = map[string]struct{}{
	"now 1-H": {},
	"now 4-H": {},
	"now 1-d": {},
	"now 7-d": {},
}

// ParseTimeframe validates and resolves a timeframe expression against now.
// Accepted forms: a named relative window ("today 3-m", "all") or an explicit
// "YYYY-MM-DD YYYY-MM-DD" interval.
func ParseTimeframe(raw string, now time.Time) (Timeframe, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Timeframe{}, NewValidationError("timeframe", "must not be empty")
	}

	today := dateOnly(now)

	if _, ok := subDailyWindows[trimmed]; ok {
		return Timeframe{}, NewValidationError("timeframe", "sub-daily windows are not supported")
	}

	if trimmed == "all" {
		return Timeframe{Raw: trimmed, Start: TrendsEpoch, End: today}, nil
	}

	if lookback, ok := namedWindows[trimmed]; ok {
		start := dateOnly(lookback(today))
		if start.Before(TrendsEpoch) {
			start = TrendsEpoch
		}
		return Timeframe{Raw: trimmed, Start: start, End: today}, nil
	}

	fields := strings.Fields(trimmed)
	if len(fields) != 2 {
		return Timeframe{}, NewValidationError("timeframe", "expected a named window or \"YYYY-MM-DD YYYY-MM-DD\"")
	}
	start, err := time.Parse(dateLayout, fields[0])
	if err != nil {
		return Timeframe{}, NewValidationError("timeframe", "malformed start date "+fields[0])
	}
	end, err := time.Parse(dateLayout, fields[1])
	if err != nil {
		return Timeframe{}, NewValidationError("timeframe", "malformed end date "+fields[1])
	}
	if end.Before(start) {
		return Timeframe{}, NewValidationError("timeframe", "start date must not be after end date")
	}
	if start.Before(TrendsEpoch) {
		return Timeframe{}, NewValidationError("timeframe", "start date precedes 2004-01-01")
	}
	if end.After(today) {
		return Timeframe{}, NewValidationError("timeframe", "end date is in the future")
	}
	return Timeframe{Raw: trimmed, Start: start, End: end}, nil
}

// Days returns the inclusive day count of the interval.
func (t Timeframe) Days() int {
	if t.Start.IsZero() || t.End.IsZero() {
		return 0
	}
	return int(t.End.Sub(t.Start).Hours()/24) + 1
}

// Contains reports whether the date falls inside the closed interval.
func (t Timeframe) Contains(date time.Time) bool {
	d := dateOnly(date)
	return !d.Before(t.Start) && !d.After(t.End)
}

// String returns the caller's original spelling.
func (t Timeframe) String() string {
	return t.Raw
}

func dateOnly(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
