package persistence

import (
	"context"
	"encoding/json"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/aqlhr/import-engine/modules/importer/domain/aggregates/importrow"
	"github.com/aqlhr/import-engine/modules/importer/domain/value_objects/rawdata"
	"github.com/aqlhr/import-engine/modules/importer/infrastructure/persistence/models"
	"github.com/aqlhr/import-engine/pkg/composables"
)

var (
	ErrImportRowNotFound = importrow.ErrNotFound
)

const (
	importRowFindQuery = `
		SELECT id, job_id, row_index, raw_data, normalized, error, created_ids, created_at, updated_at
		FROM import_rows`

	importRowMarkFailedQuery = `
		UPDATE import_rows
		SET error = $2, updated_at = now()
		WHERE id = $1`

	importRowMarkSettledQuery = `
		UPDATE import_rows
		SET error = NULL, normalized = $2, created_ids = $3, updated_at = now()
		WHERE id = $1`
)

type ImportRowRepository struct{}

func NewImportRowRepository() importrow.Repository {
	return &ImportRowRepository{}
}

func (r *ImportRowRepository) GetByJobID(ctx context.Context, jobID uuid.UUID, onlyFailed bool) ([]importrow.Row, error) {
	query := importRowFindQuery + " WHERE job_id = $1"
	if onlyFailed {
		query += " AND error IS NOT NULL"
	}
	query += " ORDER BY row_index"
	return r.queryRows(ctx, query, jobID.String())
}

func (r *ImportRowRepository) GetRetryable(ctx context.Context, jobID uuid.UUID, rowIDs []uuid.UUID) ([]importrow.Row, error) {
	query := importRowFindQuery + " WHERE job_id = $1 AND error IS NOT NULL"
	args := []any{jobID.String()}
	if len(rowIDs) > 0 {
		ids := make([]string, len(rowIDs))
		for i, id := range rowIDs {
			ids[i] = id.String()
		}
		query += " AND id = ANY($2::uuid[])"
		args = append(args, ids)
	}
	query += " ORDER BY row_index"
	return r.queryRows(ctx, query, args...)
}

func (r *ImportRowRepository) MarkFailed(ctx context.Context, rowID uuid.UUID, errMsg string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return gerrors.Wrap(err, "failed to get transaction")
	}

	tag, err := tx.Exec(ctx, importRowMarkFailedQuery, rowID.String(), errMsg)
	if err != nil {
		return gerrors.Wrap(err, "failed to mark row failed")
	}
	if tag.RowsAffected() == 0 {
		return ErrImportRowNotFound
	}
	return nil
}

func (r *ImportRowRepository) MarkSettled(ctx context.Context, rowID uuid.UUID, normalized rawdata.Map, createdIDs []uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return gerrors.Wrap(err, "failed to get transaction")
	}

	normalizedJSON, err := json.Marshal(normalized)
	if err != nil {
		return gerrors.Wrap(err, "failed to encode normalized data")
	}

	ids := make([]string, len(createdIDs))
	for i, id := range createdIDs {
		ids[i] = id.String()
	}
	createdJSON, err := json.Marshal(ids)
	if err != nil {
		return gerrors.Wrap(err, "failed to encode created ids")
	}

	tag, err := tx.Exec(ctx, importRowMarkSettledQuery, rowID.String(), normalizedJSON, createdJSON)
	if err != nil {
		return gerrors.Wrap(err, "failed to mark row settled")
	}
	if tag.RowsAffected() == 0 {
		return ErrImportRowNotFound
	}
	return nil
}

func (r *ImportRowRepository) queryRows(ctx context.Context, query string, args ...any) ([]importrow.Row, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to query import rows")
	}
	defer rows.Close()

	var out []importrow.Row
	for rows.Next() {
		var m models.ImportRow
		if err := rows.Scan(
			&m.ID,
			&m.JobID,
			&m.RowIndex,
			&m.RawData,
			&m.Normalized,
			&m.Error,
			&m.CreatedIDs,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, gerrors.Wrap(err, "failed to scan import row")
		}
		row, err := toDomainImportRow(&m)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, gerrors.Wrap(err, "row iteration error")
	}
	return out, nil
}

func toDomainImportRow(m *models.ImportRow) (importrow.Row, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return importrow.Row{}, gerrors.Wrap(err, "invalid row id")
	}
	jobID, err := uuid.Parse(m.JobID)
	if err != nil {
		return importrow.Row{}, gerrors.Wrap(err, "invalid job id")
	}

	var raw rawdata.Map
	if len(m.RawData) > 0 {
		if err := json.Unmarshal(m.RawData, &raw); err != nil {
			return importrow.Row{}, gerrors.Wrap(err, "failed to decode raw data")
		}
	}

	var normalized rawdata.Map
	if len(m.Normalized) > 0 {
		if err := json.Unmarshal(m.Normalized, &normalized); err != nil {
			return importrow.Row{}, gerrors.Wrap(err, "failed to decode normalized data")
		}
	}

	var createdIDs []uuid.UUID
	if len(m.CreatedIDs) > 0 {
		var ids []string
		if err := json.Unmarshal(m.CreatedIDs, &ids); err != nil {
			return importrow.Row{}, gerrors.Wrap(err, "failed to decode created ids")
		}
		for _, s := range ids {
			parsed, err := uuid.Parse(s)
			if err != nil {
				return importrow.Row{}, gerrors.Wrap(err, "invalid created id")
			}
			createdIDs = append(createdIDs, parsed)
		}
	}

	return importrow.Hydrate(
		id,
		jobID,
		m.RowIndex,
		raw,
		normalized,
		m.Error.String,
		createdIDs,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}
