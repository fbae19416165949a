package ingest

import (
	"context"
	"time"

	"github.com/ignite/domain-performance/internal/pkg/distlock"
	"github.com/ignite/domain-performance/internal/pkg/logger"
)

// Scheduler runs FetchAndReload on a fixed interval. A distributed lock
// keeps concurrent replicas from fetching the same report twice.
type Scheduler struct {
	svc      *Service
	lock     distlock.DistLock
	interval time.Duration
}

// NewScheduler creates a scheduler. The lock must not be nil; use a
// LocalLock when Redis is not configured.
func NewScheduler(svc *Service, lock distlock.DistLock, interval time.Duration) *Scheduler {
	return &Scheduler{svc: svc, lock: lock, interval: interval}
}

// Run blocks until ctx is cancelled, triggering one ingestion per
// interval. The first run happens after a full interval so a fleet
// restart does not stampede the vendor API.
func (s *Scheduler) Run(ctx context.Context) {
	logger.Info("Ingestion scheduler started", "interval", s.interval.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Ingestion scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		logger.Warn("Ingestion lock error", "error", err.Error())
		return
	}
	if !acquired {
		logger.Debug("Ingestion lock held elsewhere, skipping run")
		return
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			logger.Warn("Ingestion lock release failed", "error", err.Error())
		}
	}()

	if _, err := s.svc.FetchAndReload(ctx); err != nil {
		logger.Warn("Scheduled ingestion failed", "error", err.Error())
	}
}
