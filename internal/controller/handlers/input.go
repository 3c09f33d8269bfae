package handlers

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	minDurationMinutes = 5
	maxDurationMinutes = 240
)

var (
	errBadDate     = errors.New("date must look like 25.12.2024 or 2024-12-25")
	errBadDuration = errors.New("duration must be a whole number of minutes")
)

var dateLayouts = []string{"02.01.2006", "2.1.2006", "2006-01-02"}

// parseDate accepts the date formats operators type in chat. Only the
// calendar date is kept.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errBadDate
}

// parseDuration accepts minutes, with an optional "min" suffix.
func parseDuration(s string) (int, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "min"))
	minutes, err := strconv.Atoi(s)
	if err != nil {
		return 0, errBadDuration
	}
	if minutes < minDurationMinutes || minutes > maxDurationMinutes {
		return 0, errors.New("duration must be between 5 and 240 minutes")
	}
	return minutes, nil
}

// parseOperatorQuery returns the text after a command, e.g. "/credits ravi".
func parseOperatorQuery(text string) string {
	parts := strings.SplitN(strings.TrimSpace(text), " ", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
