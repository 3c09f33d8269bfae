package httpapi

import (
	"fmt"
	"time"

	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/model"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// bookingPayload is the JSON body shared by preview, validate and book.
type bookingPayload struct {
	PatientID       int64  `json:"patient_id"`
	DoctorID        int64  `json:"doctor_id"`
	PhysioID        int64  `json:"physio_id"`
	SurgeryID       *int64 `json:"surgery_id,omitempty"`
	PackageID       int64  `json:"package_id"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	TimeOfDay       string `json:"time_of_day"`
	DurationMinutes int    `json:"duration_minutes"`
	Rule            string `json:"rule"`
	IsRecurring     bool   `json:"is_recurring"`
	SubmitToken     string `json:"submit_token,omitempty"`
}

func (p bookingPayload) request() (model.BookingRequest, error) {
	start, err := parseDate(p.StartDate)
	if err != nil {
		return model.BookingRequest{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := parseDate(p.EndDate)
	if err != nil {
		return model.BookingRequest{}, fmt.Errorf("end_date: %w", err)
	}

	return model.BookingRequest{
		StartDate:       start,
		EndDate:         end,
		TimeOfDay:       p.TimeOfDay,
		DurationMinutes: p.DurationMinutes,
		Rule:            model.RecurrenceRule(p.Rule),
		IsRecurring:     p.IsRecurring,
		Meta: model.BookingMeta{
			PatientID: p.PatientID,
			DoctorID:  p.DoctorID,
			PhysioID:  p.PhysioID,
			SurgeryID: p.SurgeryID,
		},
	}, nil
}

type boundPayload struct {
	StartDate string `json:"start_date"`
	Rule      string `json:"rule"`
	Remaining int    `json:"remaining"`
}

type clampPayload struct {
	PatientID int64  `json:"patient_id"`
	PackageID int64  `json:"package_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Rule      string `json:"rule"`
}

// parseDate accepts an empty string as the zero date.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

type creditView struct {
	ID                int64           `json:"id"`
	SessionCount      int             `json:"session_count"`
	SessionsAllocated int             `json:"sessions_allocated"`
	Remaining         int             `json:"remaining"`
	AmountPaid        decimal.Decimal `json:"amount_paid"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
}

func newCreditView(pkg *model.CreditPackage) creditView {
	return creditView{
		ID:                pkg.ID,
		SessionCount:      pkg.SessionCount,
		SessionsAllocated: pkg.SessionsAllocated,
		Remaining:         pkg.Remaining(),
		AmountPaid:        pkg.AmountPaid,
		PaidAt:            pkg.PaidAt,
	}
}

// rejection is the body of every 409/422 response.
type rejection struct {
	Reason    string `json:"reason"`
	Field     string `json:"field,omitempty"`
	Remaining int    `json:"remaining"`
	Message   string `json:"message"`
}
