package scheduling

import (
	"errors"
	"testing"
	"time"

	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/model"
)

func intPtr(v int) *int { return &v }

func newTestValidator() *Validator {
	return NewValidator(NewGenerator(time.UTC))
}

func oneOffRequest() model.BookingRequest {
	return model.BookingRequest{
		StartDate:       date(2024, 1, 2),
		TimeOfDay:       "11:00",
		DurationMinutes: 45,
		Meta:            testMeta,
	}
}

func recurringRequest(rule model.RecurrenceRule, start, end time.Time) model.BookingRequest {
	return model.BookingRequest{
		StartDate:       start,
		EndDate:         end,
		TimeOfDay:       "09:00",
		DurationMinutes: 30,
		Rule:            rule,
		IsRecurring:     true,
		Meta:            testMeta,
	}
}

func TestValidate_AcceptsOneOff(t *testing.T) {
	v := newTestValidator()
	pkg := &model.CreditPackage{ID: 1, SessionCount: 10, SessionsAllocated: 4}

	out := v.Validate(oneOffRequest(), pkg)

	if !out.Accepted {
		t.Fatalf("Expected accepted, got reason %s", out.Reason)
	}
	if len(out.Slots) != 1 || out.TotalSessions != 1 {
		t.Errorf("Expected 1 slot, got %d (total %d)", len(out.Slots), out.TotalSessions)
	}
	if out.Remaining != 6 {
		t.Errorf("Expected remaining 6, got %d", out.Remaining)
	}
	if out.Err() != nil {
		t.Errorf("Expected nil error for accepted outcome, got %v", out.Err())
	}
}

func TestValidate_OneOffIgnoresRuleAndEnd(t *testing.T) {
	v := newTestValidator()
	req := oneOffRequest()
	req.Rule = model.RecurrenceWeekly
	req.EndDate = date(2024, 3, 1)

	out := v.Validate(req, &model.CreditPackage{SessionCount: 1})

	if !out.Accepted || len(out.Slots) != 1 {
		t.Fatalf("Expected a single accepted slot, got accepted=%v slots=%d reason=%s", out.Accepted, len(out.Slots), out.Reason)
	}
}

func TestValidate_AcceptsRecurringWithinCredit(t *testing.T) {
	v := newTestValidator()
	pkg := &model.CreditPackage{SessionCount: 5}

	out := v.Validate(recurringRequest(model.RecurrenceWeekdays, date(2024, 1, 1), date(2024, 1, 7)), pkg)

	if !out.Accepted {
		t.Fatalf("Expected accepted, got %s", out.Reason)
	}
	if out.TotalSessions != 5 || len(out.Slots) != 5 {
		t.Errorf("Expected 5 sessions, got total=%d slots=%d", out.TotalSessions, len(out.Slots))
	}
}

func TestValidate_MissingFields(t *testing.T) {
	v := newTestValidator()
	pkg := &model.CreditPackage{SessionCount: 3}

	tests := []struct {
		name   string
		mutate func(*model.BookingRequest)
		field  string
	}{
		{"patient", func(r *model.BookingRequest) { r.Meta.PatientID = 0 }, "patient_id"},
		{"doctor", func(r *model.BookingRequest) { r.Meta.DoctorID = 0 }, "doctor_id"},
		{"physio", func(r *model.BookingRequest) { r.Meta.PhysioID = 0 }, "physio_id"},
		{"start date", func(r *model.BookingRequest) { r.StartDate = time.Time{} }, "start_date"},
		{"time of day", func(r *model.BookingRequest) { r.TimeOfDay = "" }, "time_of_day"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := oneOffRequest()
			tt.mutate(&req)

			out := v.Validate(req, pkg)

			if out.Accepted || out.Reason != ReasonMissingField {
				t.Fatalf("Expected %s, got accepted=%v reason=%s", ReasonMissingField, out.Accepted, out.Reason)
			}
			if out.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, out.Field)
			}
		})
	}
}

func TestValidate_MissingFieldBeatsCredit(t *testing.T) {
	v := newTestValidator()
	req := oneOffRequest()
	req.Meta.DoctorID = 0

	out := v.Validate(req, nil)

	if out.Reason != ReasonMissingField {
		t.Errorf("Expected %s first, got %s", ReasonMissingField, out.Reason)
	}
}

func TestValidate_NoCreditSelected(t *testing.T) {
	out := newTestValidator().Validate(oneOffRequest(), nil)

	if out.Reason != ReasonNoCreditSelected {
		t.Errorf("Expected %s, got %s", ReasonNoCreditSelected, out.Reason)
	}
}

func TestValidate_NoCreditRemaining(t *testing.T) {
	v := newTestValidator()

	packages := []*model.CreditPackage{
		{SessionCount: 4, SessionsAllocated: 4},
		{SessionCount: 4, SessionsAllocated: 6},
		{SessionCount: 4, SessionsAllocated: 4, SessionsRemaining: intPtr(0)},
	}

	for i, pkg := range packages {
		out := v.Validate(recurringRequest(model.RecurrenceDaily, date(2024, 1, 1), date(2024, 1, 3)), pkg)
		if out.Reason != ReasonNoCreditRemaining {
			t.Errorf("package %d: expected %s, got %s", i, ReasonNoCreditRemaining, out.Reason)
		}
	}
}

func TestValidate_StoredRemainingWinsWhenLarger(t *testing.T) {
	v := newTestValidator()
	pkg := &model.CreditPackage{SessionCount: 4, SessionsAllocated: 4, SessionsRemaining: intPtr(2)}

	out := v.Validate(recurringRequest(model.RecurrenceDaily, date(2024, 1, 1), date(2024, 1, 2)), pkg)

	if !out.Accepted {
		t.Fatalf("Expected accepted using stored remaining, got %s", out.Reason)
	}
	if out.Remaining != 2 {
		t.Errorf("Expected remaining 2, got %d", out.Remaining)
	}
}

func TestValidate_RecurringRequiresEndAndRule(t *testing.T) {
	v := newTestValidator()
	pkg := &model.CreditPackage{SessionCount: 10}

	noEnd := recurringRequest(model.RecurrenceDaily, date(2024, 1, 1), time.Time{})
	if out := v.Validate(noEnd, pkg); out.Reason != ReasonMissingField || out.Field != "end_date" {
		t.Errorf("Expected missing end_date, got %s %s", out.Reason, out.Field)
	}

	noRule := recurringRequest("", date(2024, 1, 1), date(2024, 1, 3))
	if out := v.Validate(noRule, pkg); out.Reason != ReasonMissingField || out.Field != "rule" {
		t.Errorf("Expected missing rule, got %s %s", out.Reason, out.Field)
	}

	badRule := recurringRequest("monthly", date(2024, 1, 1), date(2024, 1, 3))
	if out := v.Validate(badRule, pkg); out.Reason != ReasonInvalidInput {
		t.Errorf("Expected %s, got %s", ReasonInvalidInput, out.Reason)
	}
}

func TestValidate_InvalidRange(t *testing.T) {
	v := newTestValidator()

	out := v.Validate(recurringRequest(model.RecurrenceDaily, date(2024, 1, 10), date(2024, 1, 9)), &model.CreditPackage{SessionCount: 10})

	if out.Reason != ReasonInvalidRange {
		t.Errorf("Expected %s, got %s", ReasonInvalidRange, out.Reason)
	}
}

func TestValidate_DurationTooShort(t *testing.T) {
	v := newTestValidator()
	req := oneOffRequest()
	req.DurationMinutes = 0

	out := v.Validate(req, &model.CreditPackage{SessionCount: 3})

	if out.Reason != ReasonDurationTooShort {
		t.Errorf("Expected %s, got %s", ReasonDurationTooShort, out.Reason)
	}
	if out.TotalSessions != 1 {
		t.Errorf("Expected total sessions 1 reported, got %d", out.TotalSessions)
	}
}

func TestValidate_UnparseableTime(t *testing.T) {
	v := newTestValidator()
	req := oneOffRequest()
	req.TimeOfDay = "25:00"

	out := v.Validate(req, &model.CreditPackage{SessionCount: 3})

	if out.Reason != ReasonInvalidInput {
		t.Errorf("Expected %s, got %s", ReasonInvalidInput, out.Reason)
	}
}

func TestValidate_NoSessionsInRange(t *testing.T) {
	v := newTestValidator()

	out := v.Validate(recurringRequest(model.RecurrenceWeekdays, date(2024, 1, 6), date(2024, 1, 7)), &model.CreditPackage{SessionCount: 3})

	if out.Reason != ReasonNoSessions {
		t.Errorf("Expected %s, got %s", ReasonNoSessions, out.Reason)
	}
}

func TestValidate_CreditExceeded(t *testing.T) {
	v := newTestValidator()
	pkg := &model.CreditPackage{SessionCount: 12, SessionsAllocated: 9}

	out := v.Validate(recurringRequest(model.RecurrenceDaily, date(2024, 1, 1), date(2024, 1, 10)), pkg)

	if out.Reason != ReasonCreditExceeded {
		t.Fatalf("Expected %s, got %s", ReasonCreditExceeded, out.Reason)
	}
	if out.Remaining != 3 {
		t.Errorf("Expected remaining 3 reported, got %d", out.Remaining)
	}
	if out.TotalSessions != 10 {
		t.Errorf("Expected total sessions 10, got %d", out.TotalSessions)
	}
	if len(out.Slots) != 0 {
		t.Errorf("Expected no slots on rejection, got %d", len(out.Slots))
	}

	var ve *ValidationError
	if !errors.As(out.Err(), &ve) || ve.Remaining != 3 {
		t.Errorf("Expected ValidationError with remaining 3, got %v", out.Err())
	}
}

func TestValidate_CreditExceededBeforeExpansion(t *testing.T) {
	v := newTestValidator()
	pkg := &model.CreditPackage{SessionCount: 3}
	req := recurringRequest(model.RecurrenceDaily, date(2024, 1, 1), date(9999, 12, 31))

	began := time.Now()
	out := v.Validate(req, pkg)
	elapsed := time.Since(began)

	if out.Reason != ReasonCreditExceeded {
		t.Fatalf("Expected %s, got %s", ReasonCreditExceeded, out.Reason)
	}
	if want := CountSessions(req.StartDate, req.EndDate, req.Rule); out.TotalSessions != want {
		t.Errorf("Expected total sessions %d, got %d", want, out.TotalSessions)
	}
	if out.Remaining != 3 || len(out.Slots) != 0 {
		t.Errorf("Expected remaining 3 and no slots, got %d and %d", out.Remaining, len(out.Slots))
	}
	if elapsed > time.Second {
		t.Errorf("Expected a quick rejection, took %s", elapsed)
	}
}

func TestValidate_BadTimeReportedBeforeCredit(t *testing.T) {
	v := newTestValidator()
	req := recurringRequest(model.RecurrenceDaily, date(2024, 1, 1), date(2024, 1, 10))
	req.TimeOfDay = "7pm"

	out := v.Validate(req, &model.CreditPackage{SessionCount: 2})

	if out.Reason != ReasonInvalidInput || out.Field != "time_of_day" {
		t.Errorf("Expected %s on time_of_day, got %s on %s", ReasonInvalidInput, out.Reason, out.Field)
	}
}

func TestValidate_NeverAcceptsOverCredit(t *testing.T) {
	v := newTestValidator()
	rules := []model.RecurrenceRule{model.RecurrenceDaily, model.RecurrenceWeekdays, model.RecurrenceWeekly}

	for credit := 0; credit <= 8; credit++ {
		pkg := &model.CreditPackage{SessionCount: credit}
		for span := 0; span <= 30; span++ {
			for _, rule := range rules {
				out := v.Validate(recurringRequest(rule, date(2024, 1, 4), date(2024, 1, 4+span)), pkg)
				if out.Accepted && len(out.Slots) > pkg.Remaining() {
					t.Errorf("%s span %d credit %d: accepted %d slots", rule, span, credit, len(out.Slots))
				}
			}
		}
	}
}

func TestValidate_ClampedEndIsAlwaysAccepted(t *testing.T) {
	v := newTestValidator()
	rules := []model.RecurrenceRule{model.RecurrenceDaily, model.RecurrenceWeekdays, model.RecurrenceWeekly}

	for credit := 1; credit <= 10; credit++ {
		pkg := &model.CreditPackage{SessionCount: credit}
		for _, rule := range rules {
			start := date(2024, 1, 6)
			end, _ := ClampEndDate(start, date(2024, 12, 31), rule, credit)

			out := v.Validate(recurringRequest(rule, start, end), pkg)
			if !out.Accepted || len(out.Slots) != credit {
				t.Errorf("%s credit %d: accepted=%v slots=%d reason=%s", rule, credit, out.Accepted, len(out.Slots), out.Reason)
			}
		}
	}
}

func TestReasonOf(t *testing.T) {
	err := &ValidationError{Reason: ReasonInvalidRange}

	reason, ok := ReasonOf(err)
	if !ok || reason != ReasonInvalidRange {
		t.Errorf("Expected %s, got %s (ok=%v)", ReasonInvalidRange, reason, ok)
	}

	if _, ok := ReasonOf(errors.New("boom")); ok {
		t.Error("Expected no reason for plain error")
	}
}
