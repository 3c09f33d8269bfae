package scheduling

import (
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/model"
)

// Outcome is the result of validating a booking request.
type Outcome struct {
	Accepted      bool                  `json:"accepted"`
	Slots         []model.GeneratedSlot `json:"slots"`
	Reason        Reason                `json:"reason,omitempty"`
	Field         string                `json:"field,omitempty"`
	Remaining     int                   `json:"remaining"`
	TotalSessions int                   `json:"total_sessions"`
}

// Err returns the rejection as a *ValidationError, or nil when accepted.
func (o Outcome) Err() error {
	if o.Accepted {
		return nil
	}
	return &ValidationError{Reason: o.Reason, Field: o.Field, Remaining: o.Remaining}
}

// Validator checks a booking request against a selected credit package.
// It is stateless and never mutates the ledger.
type Validator struct {
	gen *Generator
}

func NewValidator(gen *Generator) *Validator {
	return &Validator{gen: gen}
}

// Generator returns the slot generator used for materialising requests
func (v *Validator) Generator() *Generator {
	return v.gen
}

// ParamsFor normalises a request into generator parameters. One-off bookings
// become a single daily day.
func ParamsFor(req model.BookingRequest) SlotParams {
	p := SlotParams{
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		TimeOfDay:       req.TimeOfDay,
		Rule:            req.Rule,
		DurationMinutes: req.DurationMinutes,
		Meta:            req.Meta,
	}
	if !req.IsRecurring {
		p.EndDate = req.StartDate
		p.Rule = model.RecurrenceDaily
	}
	return p
}

// Validate runs the checks in order and stops at the first failure.
func (v *Validator) Validate(req model.BookingRequest, pkg *model.CreditPackage) Outcome {
	if field := missingField(req); field != "" {
		return reject(ReasonMissingField, 0, field)
	}

	if pkg == nil {
		return reject(ReasonNoCreditSelected, 0, "")
	}
	remaining := pkg.Remaining()
	if remaining <= 0 {
		return reject(ReasonNoCreditRemaining, 0, "")
	}

	if req.IsRecurring {
		if req.EndDate.IsZero() {
			return reject(ReasonMissingField, remaining, "end_date")
		}
		if req.Rule == "" {
			return reject(ReasonMissingField, remaining, "rule")
		}
		if !req.Rule.IsValid() {
			return reject(ReasonInvalidInput, remaining, "rule")
		}
		if civilDate(req.EndDate).Before(civilDate(req.StartDate)) {
			return reject(ReasonInvalidRange, remaining, "")
		}
	}

	params := ParamsFor(req)
	total := CountSessions(params.StartDate, params.EndDate, params.Rule)

	if req.DurationMinutes <= 0 {
		out := reject(ReasonDurationTooShort, remaining, "duration_minutes")
		out.TotalSessions = total
		return out
	}

	if _, _, err := ParseTimeOfDay(params.TimeOfDay); err != nil {
		out := reject(ReasonInvalidInput, remaining, "time_of_day")
		out.TotalSessions = total
		return out
	}

	if total == 0 {
		return reject(ReasonNoSessions, remaining, "")
	}

	// total equals len(slots), so oversized ranges are refused before expansion
	if total > remaining {
		out := reject(ReasonCreditExceeded, remaining, "")
		out.TotalSessions = total
		return out
	}

	slots, err := v.gen.Generate(params)
	if err != nil {
		out := reject(ReasonInvalidInput, remaining, "time_of_day")
		out.TotalSessions = total
		return out
	}

	return Outcome{
		Accepted:      true,
		Slots:         slots,
		Remaining:     remaining,
		TotalSessions: len(slots),
	}
}

func missingField(req model.BookingRequest) string {
	switch {
	case req.Meta.PatientID == 0:
		return "patient_id"
	case req.Meta.DoctorID == 0:
		return "doctor_id"
	case req.Meta.PhysioID == 0:
		return "physio_id"
	case req.StartDate.IsZero():
		return "start_date"
	case req.TimeOfDay == "":
		return "time_of_day"
	}
	return ""
}

func reject(reason Reason, remaining int, field string) Outcome {
	return Outcome{
		Reason:    reason,
		Field:     field,
		Remaining: remaining,
		Slots:     []model.GeneratedSlot{},
	}
}
