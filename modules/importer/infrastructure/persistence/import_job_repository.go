package persistence

import (
	"context"
	"errors"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aqlhr/import-engine/modules/importer/domain/aggregates/importjob"
	"github.com/aqlhr/import-engine/modules/importer/infrastructure/persistence/models"
	"github.com/aqlhr/import-engine/pkg/composables"
)

var (
	ErrImportJobNotFound = importjob.ErrNotFound
)

const (
	importJobFindQuery = `
		SELECT id, tenant_id, mode, status, total_rows, processed, success, failed, created_at, updated_at
		FROM import_jobs`

	importJobDeltaQuery = `
		UPDATE import_jobs
		SET processed = processed + $2,
			success = success + $3,
			failed = failed - $3,
			updated_at = now()
		WHERE id = $1`

	// Recomputes counters and the derived status from row state in one
	// statement. A settled row has no error and at least one created id;
	// a retryable row carries an error; a row with neither is unprocessed.
	importJobRecountQuery = `
		UPDATE import_jobs j
		SET processed = c.ok + c.bad,
			success = c.ok,
			failed = c.bad,
			status = CASE
				WHEN c.ok + c.bad < j.total_rows THEN 'processing'
				WHEN c.bad > 0 THEN 'completed_with_errors'
				ELSE 'completed'
			END,
			updated_at = now()
		FROM (
			SELECT
				count(*) FILTER (WHERE error IS NULL AND created_ids IS NOT NULL) AS ok,
				count(*) FILTER (WHERE error IS NOT NULL) AS bad
			FROM import_rows
			WHERE job_id = $1
		) c
		WHERE j.id = $1
		RETURNING j.id, j.tenant_id, j.mode, j.status, j.total_rows, j.processed, j.success, j.failed, j.created_at, j.updated_at`

	importJobTouchedQuery = `
		SELECT DISTINCT job_id FROM import_rows WHERE updated_at > $1`
)

type ImportJobRepository struct{}

func NewImportJobRepository() importjob.Repository {
	return &ImportJobRepository{}
}

func (r *ImportJobRepository) GetByID(ctx context.Context, id uuid.UUID) (importjob.Job, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return importjob.Job{}, gerrors.Wrap(err, "failed to get transaction")
	}

	row := tx.QueryRow(ctx, importJobFindQuery+" WHERE id = $1", id.String())
	job, err := scanImportJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return importjob.Job{}, ErrImportJobNotFound
		}
		return importjob.Job{}, gerrors.Wrap(err, "failed to query import job")
	}
	return job, nil
}

func (r *ImportJobRepository) ApplyRetryDelta(ctx context.Context, id uuid.UUID, successes, failures int) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return gerrors.Wrap(err, "failed to get transaction")
	}

	tag, err := tx.Exec(ctx, importJobDeltaQuery, id.String(), successes+failures, successes)
	if err != nil {
		return gerrors.Wrap(err, "failed to update job counters")
	}
	if tag.RowsAffected() == 0 {
		return ErrImportJobNotFound
	}
	return nil
}

func (r *ImportJobRepository) Recount(ctx context.Context, id uuid.UUID) (importjob.Job, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return importjob.Job{}, gerrors.Wrap(err, "failed to get transaction")
	}

	row := tx.QueryRow(ctx, importJobRecountQuery, id.String())
	job, err := scanImportJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return importjob.Job{}, ErrImportJobNotFound
		}
		return importjob.Job{}, gerrors.Wrap(err, "failed to recount import job")
	}
	return job, nil
}

func (r *ImportJobRepository) ListTouchedSince(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, importJobTouchedQuery, since)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to list touched jobs")
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, gerrors.Wrap(err, "failed to scan job id")
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, gerrors.Wrap(err, "invalid job id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, gerrors.Wrap(err, "row iteration error")
	}
	return ids, nil
}

func scanImportJob(row pgx.Row) (importjob.Job, error) {
	var m models.ImportJob
	if err := row.Scan(
		&m.ID,
		&m.TenantID,
		&m.Mode,
		&m.Status,
		&m.TotalRows,
		&m.Processed,
		&m.Success,
		&m.Failed,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return importjob.Job{}, err
	}
	return toDomainImportJob(&m)
}

func toDomainImportJob(m *models.ImportJob) (importjob.Job, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return importjob.Job{}, gerrors.Wrap(err, "invalid job id")
	}
	tenantID, err := uuid.Parse(m.TenantID)
	if err != nil {
		return importjob.Job{}, gerrors.Wrap(err, "invalid tenant id")
	}

	return importjob.Hydrate(
		id,
		tenantID,
		importjob.Mode(m.Mode),
		importjob.Status(m.Status),
		m.TotalRows,
		m.Processed,
		m.Success,
		m.Failed,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}
