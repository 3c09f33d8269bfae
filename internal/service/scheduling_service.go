package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/model"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/repository"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/scheduling"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxPreviewSlots caps how many slots a live preview expands.
const maxPreviewSlots = 1000

var (
	// ErrPackageNotFound is returned when the selected package is missing,
	// not completed or owned by another patient.
	ErrPackageNotFound = errors.New("credit package not found")
	// ErrDuplicateSubmit is returned when the same submission token is used twice.
	ErrDuplicateSubmit = errors.New("booking already submitted")
)

// BookingStore persists committed bookings.
type BookingStore interface {
	CommitBooking(ctx context.Context, commit *model.BookingCommit) (*model.BookingReceipt, error)
	PhysioSessionsBetween(ctx context.Context, physioID int64, from, to time.Time) ([]time.Time, error)
}

// SubmitGuard deduplicates booking submissions by token.
type SubmitGuard interface {
	Acquire(ctx context.Context, token string) (bool, error)
	Release(ctx context.Context, token string) error
}

// CommitError is a rejection raised by the booking store after validation
// had already accepted the request.
type CommitError struct {
	Reason    scheduling.Reason
	Remaining int
	Err       error
}

func (e *CommitError) Error() string {
	if e.Reason == scheduling.ReasonCreditExceeded {
		return fmt.Sprintf("commit rejected: only %d session(s) remaining", e.Remaining)
	}
	return fmt.Sprintf("commit rejected: %s: %v", e.Reason, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// Preview is the live view of a request while the operator edits it.
type Preview struct {
	Slots         []model.GeneratedSlot `json:"slots"`
	TotalSessions int                   `json:"total_sessions"`
	// Clashes lists instants at which the physiotherapist is already booked.
	Clashes []time.Time `json:"clashes"`
}

// EndDateCheck is the clamped end date for a recurring request.
type EndDateCheck struct {
	EndDate    time.Time `json:"end_date"`
	MaxEndDate time.Time `json:"max_end_date"`
	Clamped    bool      `json:"clamped"`
	Remaining  int       `json:"remaining"`
}

type SchedulingService struct {
	credits   *CreditService
	validator *scheduling.Validator
	store     BookingStore
	guard     SubmitGuard
	logger    *zap.Logger
}

func NewSchedulingService(
	credits *CreditService,
	validator *scheduling.Validator,
	store BookingStore,
	guard SubmitGuard,
	logger *zap.Logger,
) *SchedulingService {
	return &SchedulingService{
		credits:   credits,
		validator: validator,
		store:     store,
		guard:     guard,
		logger:    logger,
	}
}

// Location returns the zone slots are generated in.
func (s *SchedulingService) Location() *time.Location {
	return s.validator.Generator().Location()
}

// Preview expands the request into slots without touching the ledger.
// Unparseable input yields an empty preview. Only the first maxPreviewSlots
// slots are expanded; TotalSessions still counts the whole range. Clash lookup
// is best effort.
func (s *SchedulingService) Preview(ctx context.Context, req model.BookingRequest) *Preview {
	params := scheduling.ParamsFor(req)
	total := scheduling.CountSessions(params.StartDate, params.EndDate, params.Rule)
	if total > maxPreviewSlots {
		params.EndDate = scheduling.MaxEndDate(params.StartDate, params.Rule, maxPreviewSlots)
	}

	slots := s.validator.Generator().Preview(params)
	preview := &Preview{
		Slots:         slots,
		TotalSessions: len(slots),
		Clashes:       []time.Time{},
	}
	if len(slots) > 0 {
		preview.TotalSessions = total
	}

	if len(slots) == 0 || req.Meta.PhysioID == 0 || s.store == nil {
		return preview
	}

	from := slots[0].AppointmentInstant
	to := slots[len(slots)-1].AppointmentInstant.Add(time.Minute)
	booked, err := s.store.PhysioSessionsBetween(ctx, req.Meta.PhysioID, from, to)
	if err != nil {
		s.logger.Warn("Failed to look up physio sessions for preview",
			zap.Int64("physio_id", req.Meta.PhysioID),
			zap.Error(err))
		return preview
	}

	taken := make(map[int64]struct{}, len(booked))
	for _, at := range booked {
		taken[at.Unix()] = struct{}{}
	}
	for _, slot := range slots {
		if _, ok := taken[slot.AppointmentInstant.Unix()]; ok {
			preview.Clashes = append(preview.Clashes, slot.AppointmentInstant)
		}
	}

	return preview
}

// Bound returns the latest end date the remaining credit can cover.
func (s *SchedulingService) Bound(start time.Time, rule model.RecurrenceRule, remaining int) time.Time {
	return scheduling.MaxEndDate(start, rule, remaining)
}

// ClampEndDate clamps the proposed end date against the freshest remaining
// credit of the selected package.
func (s *SchedulingService) ClampEndDate(
	ctx context.Context,
	patientID, packageID int64,
	start, proposedEnd time.Time,
	rule model.RecurrenceRule,
) (*EndDateCheck, error) {
	pkg, err := s.credits.Package(ctx, patientID, packageID)
	if err != nil {
		return nil, err
	}
	if pkg == nil {
		return nil, ErrPackageNotFound
	}

	remaining := pkg.Remaining()
	end, clamped := scheduling.ClampEndDate(start, proposedEnd, rule, remaining)
	return &EndDateCheck{
		EndDate:    end,
		MaxEndDate: scheduling.MaxEndDate(start, rule, remaining),
		Clamped:    clamped,
		Remaining:  remaining,
	}, nil
}

// Validate re-reads the package and validates the request against it.
func (s *SchedulingService) Validate(ctx context.Context, req model.BookingRequest, packageID int64) (scheduling.Outcome, error) {
	pkg, err := s.credits.Package(ctx, req.Meta.PatientID, packageID)
	if err != nil {
		return scheduling.Outcome{}, err
	}
	return s.validator.Validate(req, pkg), nil
}

// Book validates the request and commits every slot against the package.
// A validation rejection is returned as *scheduling.ValidationError, a
// rejection from the store as *CommitError.
func (s *SchedulingService) Book(
	ctx context.Context,
	req model.BookingRequest,
	packageID int64,
	submitToken string,
) (*model.BookingReceipt, error) {
	if submitToken != "" && s.guard != nil {
		acquired, err := s.guard.Acquire(ctx, submitToken)
		if err != nil {
			// The commit transaction still protects the ledger.
			s.logger.Warn("Submit guard unavailable", zap.Error(err))
		} else if !acquired {
			return nil, ErrDuplicateSubmit
		}
	}

	receipt, err := s.book(ctx, req, packageID)
	if err != nil {
		s.releaseToken(ctx, submitToken)
		return nil, err
	}

	return receipt, nil
}

func (s *SchedulingService) book(ctx context.Context, req model.BookingRequest, packageID int64) (*model.BookingReceipt, error) {
	outcome, err := s.Validate(ctx, req, packageID)
	if err != nil {
		return nil, err
	}
	if !outcome.Accepted {
		s.logger.Info("Booking rejected",
			zap.Int64("patient_id", req.Meta.PatientID),
			zap.Int64("package_id", packageID),
			zap.String("reason", string(outcome.Reason)))
		return nil, outcome.Err()
	}

	commit := &model.BookingCommit{
		BatchID:   uuid.New(),
		PackageID: packageID,
		Meta:      req.Meta,
		Slots:     outcome.Slots,
	}

	receipt, err := s.store.CommitBooking(ctx, commit)
	if err != nil {
		return nil, s.commitError(err, outcome.Remaining)
	}

	s.logger.Info("Booking committed",
		zap.String("batch_id", receipt.BatchID.String()),
		zap.Int64("patient_id", req.Meta.PatientID),
		zap.Int64("package_id", packageID),
		zap.Int("sessions", len(receipt.AppointmentIDs)),
		zap.Int("remaining", receipt.Remaining))

	return receipt, nil
}

func (s *SchedulingService) commitError(err error, remaining int) error {
	var insufficient *repository.InsufficientCreditError
	switch {
	case errors.As(err, &insufficient):
		return &CommitError{Reason: scheduling.ReasonCreditExceeded, Remaining: insufficient.Remaining, Err: err}
	case errors.Is(err, repository.ErrPackageUnavailable), errors.Is(err, repository.ErrSlotTaken):
		return &CommitError{Reason: scheduling.ReasonConflict, Remaining: remaining, Err: err}
	}

	s.logger.Error("Failed to commit booking", zap.Error(err))
	return fmt.Errorf("commit booking: %w", err)
}

func (s *SchedulingService) releaseToken(ctx context.Context, token string) {
	if token == "" || s.guard == nil {
		return
	}
	if err := s.guard.Release(ctx, token); err != nil {
		s.logger.Warn("Failed to release submit token", zap.Error(err))
	}
}
