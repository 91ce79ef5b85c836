package importrow

import "github.com/google/uuid"

// RetriedEvent is published after one row's retry attempt settles, in either
// direction.
type RetriedEvent struct {
	JobID   uuid.UUID
	RowID   uuid.UUID
	Success bool
	Error   string
}
