// Package schedule turns a weekday name into the calendar date to book.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/v0xg/teetime/internal/config"
)

// Offsets are Monday-based: monday=0 ... sunday=6.
var weekdays = map[string]int{
	"monday":    0,
	"tuesday":   1,
	"wednesday": 2,
	"thursday":  3,
	"friday":    4,
	"saturday":  5,
	"sunday":    6,
}

// ParseWeekday maps a case-insensitive weekday name to its Monday-based offset.
func ParseWeekday(name string) (int, error) {
	d, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, &config.Error{Field: "day-of-week", Err: fmt.Errorf("unknown day of week: %q", name)}
	}
	return d, nil
}

// NextDateForWeekday returns the next date after today falling on the named
// weekday. The result is 1 to 7 days out, never today, and keeps today's
// clock time and location.
func NextDateForWeekday(name string, today time.Time) (time.Time, error) {
	target, err := ParseWeekday(name)
	if err != nil {
		return time.Time{}, err
	}
	current := (int(today.Weekday()) + 6) % 7
	days := ((target-current)%7 + 7) % 7
	if days == 0 {
		days = 7
	}
	return today.AddDate(0, 0, days), nil
}
