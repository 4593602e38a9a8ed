package utils

import (
	"fmt"
	"time"
)

// DefaultDateFormat is the ISO calendar date used by every record table.
const DefaultDateFormat = "2006-01-02"

// MonthRange returns the first and last day of a month as YYYY-MM-DD.
func MonthRange(year, month int) (start, end string, err error) {
	if month < 1 || month > 12 {
		return "", "", fmt.Errorf("invalid month %d", month)
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format(DefaultDateFormat), last.Format(DefaultDateFormat), nil
}

// DaysBetween returns the whole days from start to end, both YYYY-MM-DD.
func DaysBetween(start, end string) (int, error) {
	s, err := time.Parse(DefaultDateFormat, start)
	if err != nil {
		return 0, err
	}
	e, err := time.Parse(DefaultDateFormat, end)
	if err != nil {
		return 0, err
	}
	return int(e.Sub(s).Hours() / 24), nil
}

// MonthKey returns the YYYY-MM prefix of an ISO date.
func MonthKey(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}
