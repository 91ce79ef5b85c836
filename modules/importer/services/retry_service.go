package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/aqlhr/import-engine/modules/importer/domain/aggregates/importjob"
	"github.com/aqlhr/import-engine/modules/importer/domain/aggregates/importrow"
	"github.com/aqlhr/import-engine/pkg/composables"
	"github.com/aqlhr/import-engine/pkg/eventbus"
	"github.com/aqlhr/import-engine/pkg/serrors"
)

// WarnCountersStale is set on the response when per-row writes succeeded but
// the job-counter reconciliation did not. Row state is authoritative; the
// periodic recount repairs the counters.
const WarnCountersStale = "job_counters_not_updated"

type RetryResult struct {
	Retried int
	Success int
	Failed  int
	Warn    string
}

type RetryService struct {
	jobs        importjob.Repository
	rows        importrow.Repository
	strategies  map[importjob.Mode]ModeStrategy
	publisher   eventbus.EventBus
	concurrency int
}

func NewRetryService(
	jobs importjob.Repository,
	rows importrow.Repository,
	strategies map[importjob.Mode]ModeStrategy,
	publisher eventbus.EventBus,
	concurrency int,
) *RetryService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &RetryService{
		jobs:        jobs,
		rows:        rows,
		strategies:  strategies,
		publisher:   publisher,
		concurrency: concurrency,
	}
}

// GetJob resolves the job after the tenant guard.
func (s *RetryService) GetJob(ctx context.Context, jobID uuid.UUID) (importjob.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, importjob.ErrNotFound) {
			return importjob.Job{}, newServiceError(http.StatusNotFound, "job_not_found", "import job not found", err)
		}
		return importjob.Job{}, newServiceError(http.StatusInternalServerError, "unexpected", "failed to load import job", err)
	}
	if err := s.guardTenant(ctx, job); err != nil {
		return importjob.Job{}, err
	}
	return job, nil
}

// GetRows lists the job's rows for the read surface.
func (s *RetryService) GetRows(ctx context.Context, jobID uuid.UUID, onlyFailed bool) ([]importrow.Row, error) {
	if _, err := s.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	rows, err := s.rows.GetByJobID(ctx, jobID, onlyFailed)
	if err != nil {
		return nil, newServiceError(http.StatusInternalServerError, "fetch_rows_failed", "failed to load import rows", err)
	}
	return rows, nil
}

// Retry re-processes the job's failed rows, optionally narrowed to explicit
// row ids. Row failures never abort the batch; the caller always gets the
// counts actually achieved.
func (s *RetryService) Retry(ctx context.Context, jobID uuid.UUID, rowIDs []uuid.UUID) (RetryResult, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return RetryResult{}, err
	}

	candidates, err := s.rows.GetRetryable(ctx, jobID, rowIDs)
	if err != nil {
		return RetryResult{}, newServiceError(http.StatusInternalServerError, "fetch_rows_failed", "failed to load retryable rows", err)
	}
	// An empty candidate set is a successful no-op regardless of the job's
	// mode, so the strategy is resolved only once there is work to do.
	if len(candidates) == 0 {
		return RetryResult{}, nil
	}

	strategy, ok := s.strategies[job.Mode()]
	if !ok {
		return RetryResult{}, newServiceError(http.StatusInternalServerError, "unexpected", "no strategy for mode "+string(job.Mode()), nil)
	}

	var successes, failures atomic.Int64
	g := &errgroup.Group{}
	g.SetLimit(s.concurrency)
	for _, row := range candidates {
		g.Go(func() error {
			if s.processRow(ctx, strategy, row) {
				successes.Add(1)
			} else {
				failures.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	result := RetryResult{
		Retried: len(candidates),
		Success: int(successes.Load()),
		Failed:  int(failures.Load()),
	}

	if err := s.reconcileCounters(ctx, jobID, result.Success, result.Failed); err != nil {
		ctxLogger(ctx).WithError(err).WithField("job_id", jobID).Warn("failed to reconcile job counters")
		result.Warn = WarnCountersStale
	}

	return result, nil
}

func (s *RetryService) guardTenant(ctx context.Context, job importjob.Job) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return newServiceError(http.StatusForbidden, "forbidden", "caller tenant is not resolved", err)
	}
	if job.TenantID() != tenantID {
		return newServiceError(http.StatusForbidden, "forbidden", "job belongs to another tenant", nil)
	}
	return nil
}

// processRow runs one row through normalize and persist, writes the outcome
// back, and reports whether the row settled. Each write-back is its own
// transaction so a crash mid-batch leaves finished rows durable.
func (s *RetryService) processRow(ctx context.Context, strategy ModeStrategy, row importrow.Row) bool {
	record, snapshot, verr := strategy.Normalize(row.Raw())
	if verr != nil {
		s.writeFailure(ctx, row, verr)
		return false
	}

	ids, err := strategy.Persist(ctx, row, record)
	if err != nil {
		s.writeFailure(ctx, row, err)
		return false
	}

	err = composables.InTenantTx(ctx, func(txCtx context.Context) error {
		return s.rows.MarkSettled(txCtx, row.ID(), snapshot, ids)
	})
	if err != nil {
		ctxLogger(ctx).WithError(err).WithField("row_id", row.ID()).Error("failed to settle row after persist")
		return false
	}

	s.publisher.Publish(&importrow.RetriedEvent{
		JobID:   row.JobID(),
		RowID:   row.ID(),
		Success: true,
	})
	return true
}

func (s *RetryService) writeFailure(ctx context.Context, row importrow.Row, cause error) {
	msg := cause.Error()
	var coded *serrors.BaseError
	if errors.As(cause, &coded) {
		// Validation codes are stored verbatim so the UI can translate them.
		msg = coded.Code
	}

	err := composables.InTenantTx(ctx, func(txCtx context.Context) error {
		return s.rows.MarkFailed(txCtx, row.ID(), msg)
	})
	if err != nil {
		ctxLogger(ctx).WithError(err).WithField("row_id", row.ID()).Error("failed to write row error")
	}

	s.publisher.Publish(&importrow.RetriedEvent{
		JobID: row.JobID(),
		RowID: row.ID(),
		Error: msg,
	})
}

func (s *RetryService) reconcileCounters(ctx context.Context, jobID uuid.UUID, successes, failures int) error {
	return composables.InTenantTx(ctx, func(txCtx context.Context) error {
		return s.jobs.ApplyRetryDelta(txCtx, jobID, successes, failures)
	})
}

func ctxLogger(ctx context.Context) *logrus.Entry {
	if l, ok := composables.TryUseLogger(ctx); ok {
		return l
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
