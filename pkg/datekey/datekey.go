package datekey

import (
	"fmt"
	"time"
)

// Layout is the calendar date key format used for daily documents.
const Layout = "2006-01-02"

// Today returns the date key for now in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return now.In(loc).Format(Layout)
}

// Parse validates a YYYY-MM-DD key and returns it as midnight UTC.
func Parse(key string) (time.Time, error) {
	if key == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	t, err := time.Parse(Layout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %w", err)
	}
	return t, nil
}

// Valid reports whether key is a well formed date key.
func Valid(key string) bool {
	_, err := Parse(key)
	return err == nil
}

// DaysBetween returns the number of calendar days from a to b.
// Both keys are interpreted as UTC midnights so DST shifts never produce
// fractional days.
func DaysBetween(a, b string) (int, error) {
	ta, err := Parse(a)
	if err != nil {
		return 0, err
	}
	tb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}

// AddDays shifts a date key by n calendar days.
func AddDays(key string, n int) (string, error) {
	t, err := Parse(key)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(Layout), nil
}
