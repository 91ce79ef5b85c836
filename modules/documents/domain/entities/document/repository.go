package document

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("document not found")

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Document, error)
	GetBySourceRowID(ctx context.Context, rowID uuid.UUID) (Document, error)
	// Save inserts the document, or updates the existing one written by an
	// earlier attempt for the same source row. Returns the persisted id.
	Save(ctx context.Context, d Document) (uuid.UUID, error)
}
