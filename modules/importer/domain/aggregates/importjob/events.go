package importjob

import "github.com/google/uuid"

// ReconciledEvent is published after a periodic recount rewrites a job's
// counters from row state.
type ReconciledEvent struct {
	JobID  uuid.UUID
	Status Status
}
