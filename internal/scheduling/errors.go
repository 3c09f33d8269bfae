package scheduling

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when a date or time of day is missing or unparseable.
var ErrInvalidInput = errors.New("invalid input")

// Reason identifies why a booking request was rejected.
type Reason string

const (
	ReasonMissingField      Reason = "missing_field"
	ReasonInvalidInput      Reason = "invalid_input"
	ReasonInvalidRange      Reason = "invalid_range"
	ReasonNoCreditSelected  Reason = "no_credit_selected"
	ReasonNoCreditRemaining Reason = "no_credit_remaining"
	ReasonDurationTooShort  Reason = "duration_too_short"
	ReasonNoSessions        Reason = "no_sessions"
	ReasonCreditExceeded    Reason = "credit_exceeded"
	// ReasonConflict is only produced at commit time.
	ReasonConflict Reason = "conflict"
)

// ValidationError carries a rejection reason with enough detail for the
// operator to correct the request.
type ValidationError struct {
	Reason    Reason
	Field     string // set for ReasonMissingField
	Remaining int    // set for credit reasons
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonMissingField:
		return fmt.Sprintf("missing field: %s", e.Field)
	case ReasonCreditExceeded:
		return fmt.Sprintf("credit exceeded: only %d session(s) available", e.Remaining)
	default:
		return string(e.Reason)
	}
}

// ReasonOf extracts the rejection reason from err, if any.
func ReasonOf(err error) (Reason, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason, true
	}
	return "", false
}
