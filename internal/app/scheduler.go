package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DriftAuditor reports credit packages whose stored and computed remaining
// figures disagree.
type DriftAuditor interface {
	AuditDrift(ctx context.Context) (int, error)
}

// Scheduler runs background jobs.
type Scheduler struct {
	auditor  DriftAuditor
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewScheduler(auditor DriftAuditor, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		auditor:  auditor,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start launches the background jobs.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.Duration("drift_audit_interval", s.interval))

	s.wg.Add(1)
	go s.runDriftAuditTask(ctx)
}

// Stop stops the jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *Scheduler) runDriftAuditTask(ctx context.Context) {
	defer s.wg.Done()

	// First run right after start
	s.auditDrift(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.auditDrift(ctx)
		case <-s.stopChan:
			s.logger.Info("Drift audit task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Drift audit task cancelled")
			return
		}
	}
}

func (s *Scheduler) auditDrift(ctx context.Context) {
	drifted, err := s.auditor.AuditDrift(ctx)
	if err != nil {
		s.logger.Error("Credit drift audit failed", zap.Error(err))
		return
	}

	if drifted > 0 {
		s.logger.Warn("Credit drift audit found inconsistent packages", zap.Int("packages", drifted))
		return
	}
	s.logger.Info("Credit drift audit clean")
}
