package importrow

import (
	"time"

	"github.com/google/uuid"

	"github.com/aqlhr/import-engine/modules/importer/domain/value_objects/rawdata"
)

// Row is one source record within an import job. A row carrying an error is
// retryable; a row with no error and at least one created id is settled. It
// is never both.
type Row struct {
	id         uuid.UUID
	jobID      uuid.UUID
	rowIndex   int
	raw        rawdata.Map
	normalized rawdata.Map
	errMsg     string
	createdIDs []uuid.UUID
	createdAt  time.Time
	updatedAt  time.Time
}

func Hydrate(
	id uuid.UUID,
	jobID uuid.UUID,
	rowIndex int,
	raw rawdata.Map,
	normalized rawdata.Map,
	errMsg string,
	createdIDs []uuid.UUID,
	createdAt time.Time,
	updatedAt time.Time,
) Row {
	return Row{
		id:         id,
		jobID:      jobID,
		rowIndex:   rowIndex,
		raw:        raw,
		normalized: normalized,
		errMsg:     errMsg,
		createdIDs: createdIDs,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

func (r Row) ID() uuid.UUID            { return r.id }
func (r Row) JobID() uuid.UUID         { return r.jobID }
func (r Row) RowIndex() int            { return r.rowIndex }
func (r Row) Raw() rawdata.Map         { return r.raw }
func (r Row) Normalized() rawdata.Map  { return r.normalized }
func (r Row) ErrorMessage() string     { return r.errMsg }
func (r Row) CreatedIDs() []uuid.UUID  { return r.createdIDs }
func (r Row) CreatedAt() time.Time     { return r.createdAt }
func (r Row) UpdatedAt() time.Time     { return r.updatedAt }

func (r Row) IsRetryable() bool {
	return r.errMsg != ""
}
