package repository

import (
	"context"
	"fmt"

	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/model"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const paymentColumns = `id, patient_id, session_count, sessions_allocated, sessions_remaining, amount_paid, status, paid_at`

// PaymentRepository reads the payment ledger as credit packages.
type PaymentRepository struct {
	*base.Repository
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{Repository: base.NewRepository(pool)}
}

// CreditsForPatient returns the patient's completed payments, oldest first.
func (r *PaymentRepository) CreditsForPatient(ctx context.Context, patientID int64) ([]*model.CreditPackage, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE patient_id = $1 AND status = 'completed'
		ORDER BY paid_at ASC NULLS LAST, id ASC
	`

	rows, err := r.Query(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("get credits for patient: %w", err)
	}

	packages, err := scanPackages(rows)
	if err != nil {
		return nil, fmt.Errorf("get credits for patient: %w", err)
	}
	return packages, nil
}

// GetByID returns a payment by id, or nil if it does not exist.
func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*model.CreditPackage, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	pkg, err := scanPackage(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment by id: %w", err)
	}
	return pkg, nil
}

// ListDrifted returns completed payments whose stored remaining figure
// disagrees with session_count - sessions_allocated. The WHERE clause is the
// SQL form of model.CreditPackage.HasDrift; keep the two in step.
func (r *PaymentRepository) ListDrifted(ctx context.Context) ([]*model.CreditPackage, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = 'completed'
		  AND sessions_remaining IS NOT NULL
		  AND sessions_remaining <> session_count - sessions_allocated
		ORDER BY id
	`

	rows, err := r.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list drifted payments: %w", err)
	}

	packages, err := scanPackages(rows)
	if err != nil {
		return nil, fmt.Errorf("list drifted payments: %w", err)
	}
	return packages, nil
}

// lockPackage selects a payment row FOR UPDATE inside tx.
func lockPackage(ctx context.Context, q base.Querier, id int64) (*model.CreditPackage, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`
	return scanPackage(q.QueryRow(ctx, query, id))
}

func scanPackage(row pgx.Row) (*model.CreditPackage, error) {
	var pkg model.CreditPackage
	err := row.Scan(
		&pkg.ID,
		&pkg.PatientID,
		&pkg.SessionCount,
		&pkg.SessionsAllocated,
		&pkg.SessionsRemaining,
		&pkg.AmountPaid,
		&pkg.Status,
		&pkg.PaidAt,
	)
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

func scanPackages(rows pgx.Rows) ([]*model.CreditPackage, error) {
	defer rows.Close()

	var packages []*model.CreditPackage
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		packages = append(packages, pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return packages, nil
}
