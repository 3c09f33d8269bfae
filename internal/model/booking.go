package model

import (
	"time"

	"github.com/google/uuid"
)

// RecurrenceRule is the cadence of a recurring booking. The set is closed.
type RecurrenceRule string

const (
	RecurrenceDaily    RecurrenceRule = "daily"
	RecurrenceWeekdays RecurrenceRule = "weekdays"
	RecurrenceWeekly   RecurrenceRule = "weekly"
)

// IsValid checks the rule is one of the supported cadences
func (r RecurrenceRule) IsValid() bool {
	switch r {
	case RecurrenceDaily, RecurrenceWeekdays, RecurrenceWeekly:
		return true
	}
	return false
}

// BookingMeta carries the identifiers copied onto every generated slot.
type BookingMeta struct {
	PatientID int64  `json:"patient_id"`
	DoctorID  int64  `json:"doctor_id"`
	PhysioID  int64  `json:"physio_id"`
	SurgeryID *int64 `json:"surgery_id,omitempty"`
}

// BookingRequest is the operator's input before expansion into slots.
// Only the calendar date of StartDate and EndDate is significant.
type BookingRequest struct {
	StartDate       time.Time      `json:"start_date"`
	EndDate         time.Time      `json:"end_date"` // used only when IsRecurring
	TimeOfDay       string         `json:"time_of_day"`
	DurationMinutes int            `json:"duration_minutes"`
	Rule            RecurrenceRule `json:"rule"`
	IsRecurring     bool           `json:"is_recurring"`
	Meta            BookingMeta    `json:"meta"`
}

// GeneratedSlot is one concrete appointment produced by expanding a request.
type GeneratedSlot struct {
	AppointmentInstant time.Time `json:"appointment_instant"`
	DurationMinutes    int       `json:"duration_minutes"`
	TimezoneID         string    `json:"timezone_id"`
	BookingMeta
}

// EndsAt returns the instant the session finishes
func (s GeneratedSlot) EndsAt() time.Time {
	return s.AppointmentInstant.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// BookingCommit is handed to the booking store, which re-checks credit and
// persists every slot or none.
type BookingCommit struct {
	BatchID   uuid.UUID
	PackageID int64
	Meta      BookingMeta
	Slots     []GeneratedSlot
}

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCanceled  AppointmentStatus = "canceled"
)

// BookingReceipt describes a successful commit.
type BookingReceipt struct {
	BatchID        uuid.UUID `json:"batch_id"`
	PackageID      int64     `json:"package_id"`
	AppointmentIDs []int64   `json:"appointment_ids"`
	Remaining      int       `json:"remaining"`
}
