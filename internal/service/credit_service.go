package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/model"
	"go.uber.org/zap"
)

// ErrNoCreditInfo is returned whenever the payment ledger cannot be read.
// Callers must disable scheduling rather than assume any credit.
var ErrNoCreditInfo = errors.New("no credit information available")

// PaymentLedger is the read side of the payment ledger.
type PaymentLedger interface {
	CreditsForPatient(ctx context.Context, patientID int64) ([]*model.CreditPackage, error)
	GetByID(ctx context.Context, id int64) (*model.CreditPackage, error)
	ListDrifted(ctx context.Context) ([]*model.CreditPackage, error)
}

// CreditService is a read-only view of a patient's prepaid session credit.
type CreditService struct {
	ledger PaymentLedger
	logger *zap.Logger
}

func NewCreditService(ledger PaymentLedger, logger *zap.Logger) *CreditService {
	return &CreditService{
		ledger: ledger,
		logger: logger,
	}
}

// CreditsFor returns every completed package of the patient.
func (s *CreditService) CreditsFor(ctx context.Context, patientID int64) ([]*model.CreditPackage, error) {
	packages, err := s.ledger.CreditsForPatient(ctx, patientID)
	if err != nil {
		s.logger.Error("Failed to read payment ledger",
			zap.Int64("patient_id", patientID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrNoCreditInfo, err)
	}
	return packages, nil
}

// Available returns only the packages that still have sessions left.
func (s *CreditService) Available(ctx context.Context, patientID int64) ([]*model.CreditPackage, error) {
	packages, err := s.CreditsFor(ctx, patientID)
	if err != nil {
		return nil, err
	}

	available := make([]*model.CreditPackage, 0, len(packages))
	for _, pkg := range packages {
		if pkg.HasCredit() {
			available = append(available, pkg)
		}
	}
	return available, nil
}

// Package re-reads one package for the patient. It returns nil when the
// package does not exist, belongs to someone else or is not completed.
func (s *CreditService) Package(ctx context.Context, patientID, packageID int64) (*model.CreditPackage, error) {
	if packageID == 0 {
		return nil, nil
	}

	pkg, err := s.ledger.GetByID(ctx, packageID)
	if err != nil {
		s.logger.Error("Failed to read credit package",
			zap.Int64("package_id", packageID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrNoCreditInfo, err)
	}

	if pkg == nil || pkg.PatientID != patientID || pkg.Status != model.PaymentStatusCompleted {
		return nil, nil
	}
	return pkg, nil
}

// AuditDrift logs every package whose stored and computed remaining figures
// disagree and returns how many were found. Candidates from the ledger are
// re-checked with HasDrift.
func (s *CreditService) AuditDrift(ctx context.Context) (int, error) {
	drifted, err := s.ledger.ListDrifted(ctx)
	if err != nil {
		return 0, fmt.Errorf("list drifted packages: %w", err)
	}

	count := 0
	for _, pkg := range drifted {
		if !pkg.HasDrift() {
			s.logger.Debug("Ledger reported a consistent package as drifted", zap.Int64("package_id", pkg.ID))
			continue
		}
		count++
		s.logger.Warn("Credit package remaining figures disagree",
			zap.Int64("package_id", pkg.ID),
			zap.Int64("patient_id", pkg.PatientID),
			zap.Int("computed_remaining", pkg.ComputedRemaining()),
			zap.Intp("stored_remaining", pkg.SessionsRemaining),
			zap.Int("effective_remaining", pkg.Remaining()),
		)
	}

	return count, nil
}
