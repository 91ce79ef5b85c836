package importrow

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/aqlhr/import-engine/modules/importer/domain/value_objects/rawdata"
)

var ErrNotFound = errors.New("import row not found")

type Repository interface {
	// GetByJobID lists rows for the job in row-index order, optionally only
	// the retryable (error-carrying) subset.
	GetByJobID(ctx context.Context, jobID uuid.UUID, onlyFailed bool) ([]Row, error)

	// GetRetryable resolves the candidate set for a retry: rows carrying a
	// non-null error, optionally narrowed to explicit row ids. Requested
	// ids that are missing or not failed are silently excluded.
	GetRetryable(ctx context.Context, jobID uuid.UUID, rowIDs []uuid.UUID) ([]Row, error)

	// MarkFailed replaces the row's error after a failed retry attempt.
	MarkFailed(ctx context.Context, rowID uuid.UUID, errMsg string) error

	// MarkSettled clears the row's error and records the normalized snapshot
	// and the ids created in storage.
	MarkSettled(ctx context.Context, rowID uuid.UUID, normalized rawdata.Map, createdIDs []uuid.UUID) error
}
