package handlers

import (
	"context"
	"time"

	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/controller/state"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/model"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/service"
	"go.uber.org/zap"
)

// CreditLedger is the read-only credit view the dialog needs.
type CreditLedger interface {
	Available(ctx context.Context, patientID int64) ([]*model.CreditPackage, error)
	Package(ctx context.Context, patientID, packageID int64) (*model.CreditPackage, error)
}

// Scheduler previews, clamps and books the operator's draft.
type Scheduler interface {
	Preview(ctx context.Context, req model.BookingRequest) *service.Preview
	ClampEndDate(ctx context.Context, patientID, packageID int64, start, proposedEnd time.Time, rule model.RecurrenceRule) (*service.EndDateCheck, error)
	Book(ctx context.Context, req model.BookingRequest, packageID int64, submitToken string) (*model.BookingReceipt, error)
	Location() *time.Location
}

// Directory finds patients, doctors and physiotherapists.
type Directory interface {
	Search(ctx context.Context, kind model.DirectoryKind, query string) ([]*model.DirectoryEntry, error)
	Get(ctx context.Context, kind model.DirectoryKind, id int64) (*model.DirectoryEntry, error)
}

// Handlers holds every dependency of the operator bot.
type Handlers struct {
	credits      CreditLedger
	scheduler    Scheduler
	directory    Directory
	stateManager *state.Manager
	operators    map[int64]bool
	logger       *zap.Logger
}

// NewHandlers builds the handlers. An empty operator list lets every
// telegram user book.
func NewHandlers(
	credits CreditLedger,
	scheduler Scheduler,
	directory Directory,
	stateManager *state.Manager,
	operatorIDs []int64,
	logger *zap.Logger,
) *Handlers {
	operators := make(map[int64]bool, len(operatorIDs))
	for _, id := range operatorIDs {
		operators[id] = true
	}

	return &Handlers{
		credits:      credits,
		scheduler:    scheduler,
		directory:    directory,
		stateManager: stateManager,
		operators:    operators,
		logger:       logger,
	}
}
