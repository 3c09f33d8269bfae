package formatting

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/model"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/scheduling"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/service"
)

// maxListedSlots caps the slot list in a chat message. The image shows the rest.
const maxListedSlots = 10

func FormatDate(t time.Time) string {
	return t.Format("Mon 02 Jan 2006")
}

func FormatDateTime(t time.Time) string {
	return t.Format("Mon 02 Jan 2006 15:04")
}

func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	if mins == 0 {
		return fmt.Sprintf("%d h", hours)
	}
	return fmt.Sprintf("%d h %d min", hours, mins)
}

// PluralizeSessions returns "1 session" or "N sessions".
func PluralizeSessions(count int) string {
	if count == 1 {
		return "1 session"
	}
	return fmt.Sprintf("%d sessions", count)
}

func FormatRule(rule model.RecurrenceRule, recurring bool) string {
	if !recurring {
		return "One-off"
	}
	switch rule {
	case model.RecurrenceDaily:
		return "Daily"
	case model.RecurrenceWeekdays:
		return "Weekdays (Mon–Fri)"
	case model.RecurrenceWeekly:
		return "Weekly"
	}
	return string(rule)
}

// FormatPackage renders a credit package as a single button/line label.
func FormatPackage(pkg *model.CreditPackage) string {
	label := fmt.Sprintf("#%d · %d of %d left", pkg.ID, pkg.Remaining(), pkg.SessionCount)
	if !pkg.AmountPaid.IsZero() {
		label += " · ₹" + pkg.AmountPaid.StringFixed(2)
	}
	if pkg.PaidAt != nil {
		label += " · " + pkg.PaidAt.Format("02 Jan 2006")
	}
	return label
}

// FormatSlots lists the first slots of a preview, marking clashes.
func FormatSlots(slots []model.GeneratedSlot, clashes []time.Time) string {
	if len(slots) == 0 {
		return "No sessions match these dates."
	}

	clashSet := make(map[int64]struct{}, len(clashes))
	for _, c := range clashes {
		clashSet[c.Unix()] = struct{}{}
	}

	var sb strings.Builder
	for i, slot := range slots {
		if i == maxListedSlots {
			fmt.Fprintf(&sb, "… and %d more\n", len(slots)-maxListedSlots)
			break
		}
		marker := "•"
		if _, ok := clashSet[slot.AppointmentInstant.Unix()]; ok {
			marker = "⚠️"
		}
		fmt.Fprintf(&sb, "%s %s\n", marker, FormatDateTime(slot.AppointmentInstant))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// RejectionMessage turns a scheduling failure into operator-facing text.
func RejectionMessage(err error) string {
	var ve *scheduling.ValidationError
	if errors.As(err, &ve) {
		return reasonMessage(ve.Reason, ve.Field, ve.Remaining)
	}

	var ce *service.CommitError
	if errors.As(err, &ce) {
		if ce.Reason == scheduling.ReasonCreditExceeded {
			return fmt.Sprintf("❌ Credit changed while you were booking: only %s left. Nothing was booked.",
				PluralizeSessions(ce.Remaining))
		}
		return "❌ Booking conflicts with an existing session or the package is no longer available. Nothing was booked."
	}

	switch {
	case errors.Is(err, service.ErrDuplicateSubmit):
		return "⏳ This booking was already submitted."
	case errors.Is(err, service.ErrNoCreditInfo):
		return "❌ No credit information available. Scheduling is disabled until the ledger is reachable."
	case errors.Is(err, service.ErrPackageNotFound):
		return "❌ The selected package was not found for this patient."
	}
	return "❌ Something went wrong. Please try again later."
}

func reasonMessage(reason scheduling.Reason, field string, remaining int) string {
	switch reason {
	case scheduling.ReasonMissingField:
		return fmt.Sprintf("❌ Missing %s.", strings.ReplaceAll(field, "_", " "))
	case scheduling.ReasonInvalidInput:
		return "❌ The date or time could not be understood."
	case scheduling.ReasonInvalidRange:
		return "❌ End date cannot be before the start date."
	case scheduling.ReasonNoCreditSelected:
		return "❌ Select a credit package first."
	case scheduling.ReasonNoCreditRemaining:
		return "❌ The selected package has no sessions left."
	case scheduling.ReasonDurationTooShort:
		return "❌ Session duration must be greater than zero."
	case scheduling.ReasonNoSessions:
		return "❌ No sessions fall within these dates for the chosen recurrence."
	case scheduling.ReasonCreditExceeded:
		return fmt.Sprintf("❌ Only %s available. Shorten the date range.", PluralizeSessions(remaining))
	case scheduling.ReasonConflict:
		return "❌ The booking conflicts with an existing session."
	}
	return "❌ " + string(reason)
}
