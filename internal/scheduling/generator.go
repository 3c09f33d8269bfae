package scheduling

import (
	"fmt"
	"time"

	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/model"
)

// SlotParams describes one expansion of a booking into slots.
type SlotParams struct {
	StartDate       time.Time
	EndDate         time.Time // zero means a single day
	TimeOfDay       string
	Rule            model.RecurrenceRule
	DurationMinutes int
	Meta            model.BookingMeta
}

// Generator expands booking parameters into concrete slots in a fixed zone.
type Generator struct {
	loc *time.Location
}

// NewGenerator creates a generator that interprets wall-clock times in loc.
// A nil loc falls back to UTC.
func NewGenerator(loc *time.Location) *Generator {
	if loc == nil {
		loc = time.UTC
	}
	return &Generator{loc: loc}
}

// Location returns the zone slots are generated in
func (g *Generator) Location() *time.Location {
	return g.loc
}

// Generate returns the slots for p in ascending order. It fails with
// ErrInvalidInput when the start date or time of day is missing or bad.
func (g *Generator) Generate(p SlotParams) ([]model.GeneratedSlot, error) {
	if p.StartDate.IsZero() {
		return nil, fmt.Errorf("%w: start date is required", ErrInvalidInput)
	}
	if !p.Rule.IsValid() {
		return nil, fmt.Errorf("%w: recurrence rule %q", ErrInvalidInput, p.Rule)
	}

	hour, minute, err := ParseTimeOfDay(p.TimeOfDay)
	if err != nil {
		return nil, err
	}

	end := p.EndDate
	if end.IsZero() {
		end = p.StartDate
	}

	zone := g.loc.String()
	slots := make([]model.GeneratedSlot, 0)

	eachSessionDay(p.StartDate, end, p.Rule, func(day time.Time) {
		at := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, g.loc)
		slots = append(slots, model.GeneratedSlot{
			AppointmentInstant: at,
			DurationMinutes:    p.DurationMinutes,
			TimezoneID:         zone,
			BookingMeta:        p.Meta,
		})
	})

	return slots, nil
}

// Preview is Generate for live display: invalid input yields an empty list.
func (g *Generator) Preview(p SlotParams) []model.GeneratedSlot {
	slots, err := g.Generate(p)
	if err != nil {
		return []model.GeneratedSlot{}
	}
	return slots
}
