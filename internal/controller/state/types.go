package state

import (
	"time"

	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/model"
)

// UserState is the step of the booking dialog an operator is in.
type UserState string

const (
	StateNone UserState = ""

	StatePatientSearch UserState = "patient_search"
	StatePackageChoice UserState = "package_choice"
	StateDoctorSearch  UserState = "doctor_search"
	StatePhysioSearch  UserState = "physio_search"
	StateStartDate     UserState = "start_date"
	StateTimeOfDay     UserState = "time_of_day"
	StateDuration      UserState = "duration"
	StateRecurrence    UserState = "recurrence"
	StateEndDate       UserState = "end_date"
	StateConfirm       UserState = "confirm"
)

// Draft collects the booking while the operator fills it in.
type Draft struct {
	PatientID   int64
	PatientName string
	PackageID   int64
	Remaining   int

	DoctorID   int64
	DoctorName string
	PhysioID   int64
	PhysioName string

	StartDate       time.Time
	EndDate         time.Time
	TimeOfDay       string
	DurationMinutes int
	Rule            model.RecurrenceRule
	IsRecurring     bool

	SubmitToken string
}

// Request converts the draft into a booking request.
func (d Draft) Request() model.BookingRequest {
	return model.BookingRequest{
		StartDate:       d.StartDate,
		EndDate:         d.EndDate,
		TimeOfDay:       d.TimeOfDay,
		DurationMinutes: d.DurationMinutes,
		Rule:            d.Rule,
		IsRecurring:     d.IsRecurring,
		Meta: model.BookingMeta{
			PatientID: d.PatientID,
			DoctorID:  d.DoctorID,
			PhysioID:  d.PhysioID,
		},
	}
}

// UserData holds one operator's dialog.
type UserData struct {
	State     UserState
	Draft     Draft
	UpdatedAt time.Time
}
