// Package billingperiod resolves calendar-month billing periods.
package billingperiod

import (
	"fmt"
	"strings"
	"time"
)

const (
	keyLayout  = "2006-01"
	DateLayout = "2006-01-02"
)

// Period is a half-open calendar month [Start, End) in UTC.
type Period struct {
	Start time.Time
	End   time.Time
}

// Of returns the calendar month containing t. Month and year are taken from t as given.
func Of(t time.Time) Period {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 1, 0)}
}

// Key is the YYYY-MM identifier used by per-month unique indexes.
func (p Period) Key() string {
	return p.Start.Format(keyLayout)
}

func (p Period) Contains(t time.Time) bool {
	d := Date(t)
	return !d.Before(p.Start) && d.Before(p.End)
}

func (p Period) String() string {
	return p.Key()
}

// KeyOf is shorthand for Of(t).Key().
func KeyOf(t time.Time) string {
	return Of(t).Key()
}

// Date truncates t to midnight UTC, keeping its calendar date.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts YYYY-MM-DD, YYYY-MM or RFC3339 values.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(keyLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	return Date(t), nil
}
