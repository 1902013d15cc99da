package workout

import (
	"fmt"
	"time"
)

const (
	dateKeyLayout     = "2006-01-02"
	displayDateLayout = "1/2/2006"
)

// DateKey formats t as a workout key.
func DateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

// TodayKey is the key for the current local date.
func TodayKey() string {
	return DateKey(time.Now())
}

// ParseDateKey parses a yyyy-MM-dd key. Keys that do not round-trip, such as
// "2024-2-30", are rejected.
func ParseDateKey(value string) (time.Time, error) {
	parsed, err := time.ParseInLocation(dateKeyLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("workout: invalid date key %q: %w", value, err)
	}
	if DateKey(parsed) != value {
		return time.Time{}, fmt.Errorf("workout: invalid date key %q", value)
	}
	return parsed, nil
}

// FormatDisplayDate renders a key as M/d/yyyy, or returns it unchanged when
// it is not a valid key.
func FormatDisplayDate(value string) string {
	parsed, err := ParseDateKey(value)
	if err != nil {
		return value
	}
	return parsed.Format(displayDateLayout)
}
