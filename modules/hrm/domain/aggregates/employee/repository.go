package employee

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("employee not found")
	ErrNoConflictKey = errors.New("no_conflict_key")
	// ErrDuplicateKey reports that the upsert's non-target unique key collided
	// with a different employee, e.g. an upsert by iqama number carrying an
	// employee code already owned by someone else.
	ErrDuplicateKey = errors.New("duplicate_key")
)

// UpsertOutcome is the per-record result of a batched upsert. Exactly one of
// ID or Err is meaningful.
type UpsertOutcome struct {
	ID  uuid.UUID
	Err error
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Employee, error)
	GetByIqamaNumber(ctx context.Context, iqamaNumber string) (Employee, error)
	GetByEmployeeCode(ctx context.Context, employeeCode string) (Employee, error)
	// UpsertByIqamaNumber inserts or updates each employee keyed on the iqama
	// number, returning one outcome per input in input order.
	UpsertByIqamaNumber(ctx context.Context, employees []Employee) ([]UpsertOutcome, error)
	// UpsertByEmployeeCode behaves like UpsertByIqamaNumber keyed on the
	// internal employee code.
	UpsertByEmployeeCode(ctx context.Context, employees []Employee) ([]UpsertOutcome, error)
}
