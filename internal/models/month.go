package models

import (
	"fmt"
	"time"
)

// Date and month layouts used across the API. Transactions carry plain
// calendar dates; a transaction belongs to a month when its date's calendar
// month component matches.
const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// ParseMonth validates a "YYYY-MM" month string and returns it normalized.
func ParseMonth(s string) (string, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid month %q: expected YYYY-MM", s)
	}
	return t.Format(MonthLayout), nil
}

// MonthBounds returns the first day of the month and the first day of the
// following month, for use in half-open date range queries.
func MonthBounds(month string) (start, end time.Time, err error) {
	start, err = time.Parse(MonthLayout, month)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %q: expected YYYY-MM", month)
	}
	return start, start.AddDate(0, 1, 0), nil
}
