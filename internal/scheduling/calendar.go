package scheduling

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/model"
)

// civilDate strips the clock and zone, keeping the calendar date the caller
// entered. Day arithmetic happens in UTC so DST never shifts a day.
func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// addDays moves t by n calendar days and truncates it to midnight in t's zone.
func addDays(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+n, 0, 0, 0, 0, t.Location())
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// eachSessionDay calls fn for every day in [start, end] that receives a
// session under rule. It is the single iterator behind both slot generation
// and session counting.
func eachSessionDay(start, end time.Time, rule model.RecurrenceRule, fn func(day time.Time)) {
	from := civilDate(start)
	to := civilDate(end)

	// civil dates are UTC midnights, so a day is exactly 24h
	stride := 24 * time.Hour
	if rule == model.RecurrenceWeekly {
		// weekly relies on the stride alone, no weekday filter
		stride *= 7
	}

	for day := from; !day.After(to); day = day.Add(stride) {
		if rule == model.RecurrenceWeekdays && isWeekend(day) {
			continue
		}
		fn(day)
	}
}

// CountSessions returns how many sessions rule produces over [start, end].
// It always equals len(Generate(...)) for the same inputs.
func CountSessions(start, end time.Time, rule model.RecurrenceRule) int {
	if start.IsZero() || !rule.IsValid() {
		return 0
	}
	if end.IsZero() {
		end = start
	}
	count := 0
	eachSessionDay(start, end, rule, func(time.Time) { count++ })
	return count
}

// ParseTimeOfDay parses a 24h "HH:MM" value.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: time of day %q", ErrInvalidInput, s)
	}

	if !isDigits(h, 1, 2) || !isDigits(m, 2, 2) {
		return 0, 0, fmt.Errorf("%w: time of day %q", ErrInvalidInput, s)
	}

	hour, err = strconv.Atoi(h)
	if err != nil || hour > 23 {
		return 0, 0, fmt.Errorf("%w: hour in %q", ErrInvalidInput, s)
	}

	minute, err = strconv.Atoi(m)
	if err != nil || minute > 59 {
		return 0, 0, fmt.Errorf("%w: minute in %q", ErrInvalidInput, s)
	}

	return hour, minute, nil
}

func isDigits(s string, minLen, maxLen int) bool {
	if len(s) < minLen || len(s) > maxLen {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
