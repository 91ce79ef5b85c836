package services

import (
	"context"
	"time"

	"github.com/aqlhr/import-engine/modules/importer/domain/aggregates/importjob"
	"github.com/aqlhr/import-engine/pkg/eventbus"
)

// ReconcilerService periodically recounts job counters from row state. Job
// counters are a derived cache: a retry whose final counter write failed
// leaves them stale, and the recount repairs the drift.
type ReconcilerService struct {
	jobs      importjob.Repository
	publisher eventbus.EventBus
	lookback  time.Duration
}

func NewReconcilerService(jobs importjob.Repository, publisher eventbus.EventBus, lookback time.Duration) *ReconcilerService {
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	return &ReconcilerService{
		jobs:      jobs,
		publisher: publisher,
		lookback:  lookback,
	}
}

// ReconcileRecent recounts every job whose rows changed within the lookback
// window. Returns the number of jobs recounted.
func (s *ReconcilerService) ReconcileRecent(ctx context.Context) (int, error) {
	since := time.Now().Add(-s.lookback)

	ids, err := s.jobs.ListTouchedSince(ctx, since)
	if err != nil {
		return 0, err
	}

	reconciled := 0
	for _, id := range ids {
		// Recount is a single statement, so it runs straight off the pool.
		// The reconciler is cross-tenant by design.
		job, err := s.jobs.Recount(ctx, id)
		if err != nil {
			ctxLogger(ctx).WithError(err).WithField("job_id", id).Warn("failed to recount job")
			continue
		}
		reconciled++
		s.publisher.Publish(&importjob.ReconciledEvent{
			JobID:  job.ID(),
			Status: job.Status(),
		})
	}

	return reconciled, nil
}
