package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/model"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/repository"
	"go.uber.org/zap"
)

func intPtr(v int) *int { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fakeLedger struct {
	packages map[int64]*model.CreditPackage
	err      error
}

func newFakeLedger(packages ...*model.CreditPackage) *fakeLedger {
	l := &fakeLedger{packages: make(map[int64]*model.CreditPackage)}
	for _, pkg := range packages {
		l.packages[pkg.ID] = pkg
	}
	return l
}

func (l *fakeLedger) CreditsForPatient(_ context.Context, patientID int64) ([]*model.CreditPackage, error) {
	if l.err != nil {
		return nil, l.err
	}
	var result []*model.CreditPackage
	for _, pkg := range l.packages {
		if pkg.PatientID == patientID && pkg.Status == model.PaymentStatusCompleted {
			result = append(result, pkg)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (l *fakeLedger) GetByID(_ context.Context, id int64) (*model.CreditPackage, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.packages[id], nil
}

func (l *fakeLedger) ListDrifted(_ context.Context) ([]*model.CreditPackage, error) {
	if l.err != nil {
		return nil, l.err
	}
	var result []*model.CreditPackage
	for _, pkg := range l.packages {
		if pkg.HasDrift() {
			result = append(result, pkg)
		}
	}
	return result, nil
}

// fakeStore mimics the transactional commit against the same ledger.
type fakeStore struct {
	mu      sync.Mutex
	ledger  *fakeLedger
	booked  map[int64][]time.Time
	nextID  int64
	commits int
}

func newFakeStore(ledger *fakeLedger) *fakeStore {
	return &fakeStore{ledger: ledger, booked: make(map[int64][]time.Time)}
}

func (s *fakeStore) CommitBooking(_ context.Context, commit *model.BookingCommit) (*model.BookingReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pkg := s.ledger.packages[commit.PackageID]
	if pkg == nil || pkg.Status != model.PaymentStatusCompleted || pkg.PatientID != commit.Meta.PatientID {
		return nil, repository.ErrPackageUnavailable
	}
	remaining := pkg.Remaining()
	if len(commit.Slots) > remaining {
		return nil, &repository.InsufficientCreditError{Remaining: remaining}
	}
	for _, slot := range commit.Slots {
		for _, at := range s.booked[commit.Meta.PhysioID] {
			if at.Equal(slot.AppointmentInstant) {
				return nil, repository.ErrSlotTaken
			}
		}
	}

	receipt := &model.BookingReceipt{BatchID: commit.BatchID, PackageID: commit.PackageID}
	for _, slot := range commit.Slots {
		s.nextID++
		s.booked[commit.Meta.PhysioID] = append(s.booked[commit.Meta.PhysioID], slot.AppointmentInstant)
		receipt.AppointmentIDs = append(receipt.AppointmentIDs, s.nextID)
	}
	pkg.SessionsAllocated += len(commit.Slots)
	pkg.SessionsRemaining = intPtr(remaining - len(commit.Slots))
	receipt.Remaining = pkg.Remaining()
	s.commits++
	return receipt, nil
}

func (s *fakeStore) PhysioSessionsBetween(_ context.Context, physioID int64, from, to time.Time) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []time.Time
	for _, at := range s.booked[physioID] {
		if !at.Before(from) && at.Before(to) {
			result = append(result, at)
		}
	}
	return result, nil
}

type fakeGuard struct {
	mu     sync.Mutex
	tokens map[string]bool
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{tokens: make(map[string]bool)}
}

func (g *fakeGuard) Acquire(_ context.Context, token string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.tokens[token] {
		return false, nil
	}
	g.tokens[token] = true
	return true, nil
}

func (g *fakeGuard) Release(_ context.Context, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.tokens, token)
	return nil
}

type fakeDirectory struct {
	entries map[model.DirectoryKind][]*model.DirectoryEntry
	limit   int
}

func (d *fakeDirectory) Search(_ context.Context, kind model.DirectoryKind, query string, limit int) ([]*model.DirectoryEntry, error) {
	d.limit = limit
	return d.entries[kind], nil
}

func (d *fakeDirectory) GetByID(_ context.Context, kind model.DirectoryKind, id int64) (*model.DirectoryEntry, error) {
	for _, e := range d.entries[kind] {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, nil
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
