package scheduling

import (
	"time"

	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/model"
)

// MaxCredit is the largest credit MaxEndDate honours. Larger values are
// treated as MaxCredit so the bound stays a real calendar date.
const MaxCredit = 100000

// MaxEndDate returns the latest end date for which Generate produces at most
// remainingCredit slots starting at start under rule. It is the inverse of
// CountSessions: CountSessions(start, MaxEndDate(start, rule, n), rule) == n
// for every 1 <= n <= MaxCredit.
//
// A non-positive credit or a zero start returns start unchanged.
func MaxEndDate(start time.Time, rule model.RecurrenceRule, remainingCredit int) time.Time {
	if remainingCredit <= 0 || start.IsZero() {
		return start
	}
	if remainingCredit > MaxCredit {
		remainingCredit = MaxCredit
	}

	extraDays := remainingCredit - 1

	switch rule {
	case model.RecurrenceDaily:
		return addDays(start, extraDays)
	case model.RecurrenceWeekly:
		return addDays(start, extraDays*7)
	case model.RecurrenceWeekdays:
		day := addDays(start, 0)
		// a weekend start books nothing until Monday
		for isWeekend(day) {
			day = addDays(day, 1)
		}
		// five weekdays always span seven calendar days
		day = addDays(day, extraDays/5*7)
		for counted := 0; counted < extraDays%5; {
			day = addDays(day, 1)
			if !isWeekend(day) {
				counted++
			}
		}
		return day
	default:
		return start
	}
}

// ClampEndDate limits a proposed end date to the credit bound. The boolean is
// true when the proposal was past the bound and has been corrected, so the
// caller can tell the operator. A zero proposal is replaced by the bound
// without a notice.
func ClampEndDate(start, proposedEnd time.Time, rule model.RecurrenceRule, remainingCredit int) (time.Time, bool) {
	bound := MaxEndDate(start, rule, remainingCredit)
	if proposedEnd.IsZero() {
		return bound, false
	}
	if civilDate(proposedEnd).After(civilDate(bound)) {
		return bound, true
	}
	return proposedEnd, false
}
