package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// CreditPackage is one completed payment that funds physiotherapy sessions.
// The scheduler only reads it; sessions are allocated by the booking commit.
type CreditPackage struct {
	ID                int64           `json:"id"`
	PatientID         int64           `json:"patient_id"`
	SessionCount      int             `json:"session_count"`
	SessionsAllocated int             `json:"sessions_allocated"`
	SessionsRemaining *int            `json:"sessions_remaining"` // nil when the ledger never stored it
	AmountPaid        decimal.Decimal `json:"amount_paid"`
	Status            PaymentStatus   `json:"status"`
	PaidAt            *time.Time      `json:"paid_at"`
}

// ComputedRemaining is session_count minus sessions_allocated, unclamped.
func (p *CreditPackage) ComputedRemaining() int {
	return p.SessionCount - p.SessionsAllocated
}

// Remaining returns the effective number of sessions left:
// max(computed, stored, 0).
func (p *CreditPackage) Remaining() int {
	if p == nil {
		return 0
	}
	remaining := p.ComputedRemaining()
	if p.SessionsRemaining != nil && *p.SessionsRemaining > remaining {
		remaining = *p.SessionsRemaining
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}

// HasCredit reports whether at least one session can still be booked.
func (p *CreditPackage) HasCredit() bool {
	return p.Remaining() > 0
}

// HasDrift reports whether the stored remaining figure disagrees with the
// computed one. The two should never differ once the ledger owner is fixed.
func (p *CreditPackage) HasDrift() bool {
	return p.SessionsRemaining != nil && *p.SessionsRemaining != p.ComputedRemaining()
}
