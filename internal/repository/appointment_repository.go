package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/model"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrPackageUnavailable means the payment vanished, changed owner or left
	// the completed state since it was validated.
	ErrPackageUnavailable = errors.New("credit package unavailable")
	// ErrSlotTaken means the physiotherapist already has a session at one of
	// the requested instants.
	ErrSlotTaken = errors.New("physiotherapist already booked at requested time")
)

// InsufficientCreditError is returned when the locked package no longer
// covers every slot of the commit.
type InsufficientCreditError struct {
	Remaining int
}

func (e *InsufficientCreditError) Error() string {
	return fmt.Sprintf("insufficient credit: %d session(s) remaining", e.Remaining)
}

type AppointmentRepository struct {
	*base.Repository
}

func NewAppointmentRepository(pool *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{Repository: base.NewRepository(pool)}
}

// CommitBooking persists every slot of commit and allocates the sessions
// against the payment in one transaction. Either all slots are stored or none.
func (r *AppointmentRepository) CommitBooking(ctx context.Context, commit *model.BookingCommit) (*model.BookingReceipt, error) {
	receipt := &model.BookingReceipt{
		BatchID:   commit.BatchID,
		PackageID: commit.PackageID,
	}

	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		pkg, err := lockPackage(ctx, tx, commit.PackageID)
		if err != nil {
			if base.IsNotFound(err) {
				return ErrPackageUnavailable
			}
			return fmt.Errorf("lock payment: %w", err)
		}

		if pkg.Status != model.PaymentStatusCompleted || pkg.PatientID != commit.Meta.PatientID {
			return ErrPackageUnavailable
		}

		remaining := pkg.Remaining()
		if len(commit.Slots) > remaining {
			return &InsufficientCreditError{Remaining: remaining}
		}

		insert := `
			INSERT INTO appointments (
				batch_id, payment_id, patient_id, doctor_id, physio_id, surgery_id,
				scheduled_at, duration_minutes, timezone_id, status
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id
		`

		for _, slot := range commit.Slots {
			var id int64
			err := tx.QueryRow(
				ctx, insert,
				commit.BatchID,
				commit.PackageID,
				slot.PatientID,
				slot.DoctorID,
				slot.PhysioID,
				slot.SurgeryID,
				slot.AppointmentInstant,
				slot.DurationMinutes,
				slot.TimezoneID,
				model.AppointmentStatusScheduled,
			).Scan(&id)
			if err != nil {
				if base.IsUniqueViolation(err) {
					return ErrSlotTaken
				}
				return fmt.Errorf("insert appointment: %w", err)
			}
			receipt.AppointmentIDs = append(receipt.AppointmentIDs, id)
		}

		allocated := len(commit.Slots)
		receipt.Remaining = remaining - allocated

		update := `
			UPDATE payments
			SET sessions_allocated = sessions_allocated + $2,
			    sessions_remaining = $3,
			    updated_at = now()
			WHERE id = $1
		`
		if _, err := tx.Exec(ctx, update, commit.PackageID, allocated, receipt.Remaining); err != nil {
			return fmt.Errorf("allocate sessions: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return receipt, nil
}

// PhysioSessionsBetween returns the physiotherapist's scheduled session
// start times in [from, to), used to warn about clashes before commit.
func (r *AppointmentRepository) PhysioSessionsBetween(ctx context.Context, physioID int64, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT scheduled_at
		FROM appointments
		WHERE physio_id = $1
		  AND status = 'scheduled'
		  AND scheduled_at >= $2
		  AND scheduled_at < $3
		ORDER BY scheduled_at
	`

	rows, err := r.Query(ctx, query, physioID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get physio sessions: %w", err)
	}
	defer rows.Close()

	var starts []time.Time
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, fmt.Errorf("scan physio session: %w", err)
		}
		starts = append(starts, at)
	}

	return starts, rows.Err()
}
