package core

import (
	"errors"
	"fmt"
	"time"
)

// Dates in this package are calendar dates without time-of-day meaning.
// Comparisons reduce each operand to its own calendar day first so that
// DST and timezone artifacts cannot shift a due date by a day.

// ErrInvalidMonthKey reports a month key that is not "YYYY-MM".
var ErrInvalidMonthKey = errors.New("invalid month key")

// Midnight truncates a time to 00:00:00 of its calendar day.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	// Day zero of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonths adds n calendar months to a date. When the original
// day-of-month does not exist in the target month (Jan 31 + 1 month),
// the day clamps to the last valid day of the target month; it never
// rolls into the following month.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := DaysInMonth(first.Year(), first.Month())
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, t.Location())
}

// MonthKeyOf returns the "YYYY-MM" key of a date.
func MonthKeyOf(t time.Time) string {
	return t.Format("2006-01")
}

// ParseMonthKey splits a "YYYY-MM" key into year and month.
func ParseMonthKey(key string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonthKey, key)
	}
	return t.Year(), t.Month(), nil
}

// AddMonthsToKey shifts a "YYYY-MM" key by n months. An unparseable key
// is returned unchanged.
func AddMonthsToKey(key string, n int) string {
	y, m, err := ParseMonthKey(key)
	if err != nil {
		return key
	}
	return MonthKeyOf(time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC))
}

// CompareMonths orders two "YYYY-MM" keys: -1 when a precedes b, 0 when
// equal, 1 when a follows b. Keys are zero-padded so byte order is
// chronological order.
func CompareMonths(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// DateInMonth builds the date for dayOfMonth within the keyed month,
// clamping to the month's last day exactly like AddMonths does. This
// keeps previewed due dates identical to rolled-over ones.
func DateInMonth(key string, dayOfMonth int) (time.Time, error) {
	y, m, err := ParseMonthKey(key)
	if err != nil {
		return time.Time{}, err
	}
	last := DaysInMonth(y, m)
	if dayOfMonth > last {
		dayOfMonth = last
	}
	if dayOfMonth < 1 {
		dayOfMonth = 1
	}
	return time.Date(y, m, dayOfMonth, 0, 0, 0, 0, time.UTC), nil
}

// IsWithinDays reports whether date falls in [today, today+n], both ends
// inclusive, comparing calendar days only. Each operand is reduced to
// its own calendar day first, so a stored UTC due date and a local
// clock reading compare as dates, not instants.
func IsWithinDays(date, now time.Time, n int) bool {
	day := civilDay(date)
	today := civilDay(now)
	limit := today.AddDate(0, 0, n)
	return !day.Before(today) && !day.After(limit)
}

// civilDay pins a time's calendar day to UTC midnight so days read in
// different locations stay comparable.
func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether two times fall on the same calendar day,
// regardless of location.
func SameDay(a, b time.Time) bool {
	return civilDay(a).Equal(civilDay(b))
}
