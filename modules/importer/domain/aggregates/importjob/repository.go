package importjob

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("import job not found")

type Repository interface {
	// GetByID fetches the job without tenant scoping. The caller is the
	// tenant guard: ownership is checked before anything else is touched.
	GetByID(ctx context.Context, id uuid.UUID) (Job, error)

	// ApplyRetryDelta reconciles counters after one retry invocation in a
	// single relative update: processed += successes+failures,
	// success += successes, failed -= successes. Relative increments keep
	// concurrent retries of the same job from losing counts.
	ApplyRetryDelta(ctx context.Context, id uuid.UUID, successes, failures int) error

	// Recount recomputes processed/success/failed and the derived status
	// from row state, repairing drift left by failed delta writes.
	Recount(ctx context.Context, id uuid.UUID) (Job, error)

	// ListTouchedSince returns ids of jobs whose rows changed after the
	// given instant. Used by the periodic reconciler.
	ListTouchedSince(ctx context.Context, since time.Time) ([]uuid.UUID, error)
}
