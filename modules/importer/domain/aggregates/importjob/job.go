package importjob

import (
	"time"

	"github.com/google/uuid"
)

type Mode string

const (
	ModeEmployees           Mode = "employees"
	ModeGovernmentDocuments Mode = "government-documents"
)

func (m Mode) Valid() bool {
	return m == ModeEmployees || m == ModeGovernmentDocuments
}

type Status string

const (
	StatusProcessing          Status = "processing"
	StatusCompleted           Status = "completed"
	StatusCompletedWithErrors Status = "completed_with_errors"
)

// Job is one batch-import run. Counters are a derived cache over row state:
// processed = success + failed must hold after any reconciliation.
type Job struct {
	id        uuid.UUID
	tenantID  uuid.UUID
	mode      Mode
	status    Status
	totalRows int
	processed int
	success   int
	failed    int
	createdAt time.Time
	updatedAt time.Time
}

func Hydrate(
	id uuid.UUID,
	tenantID uuid.UUID,
	mode Mode,
	status Status,
	totalRows int,
	processed int,
	success int,
	failed int,
	createdAt time.Time,
	updatedAt time.Time,
) Job {
	return Job{
		id:        id,
		tenantID:  tenantID,
		mode:      mode,
		status:    status,
		totalRows: totalRows,
		processed: processed,
		success:   success,
		failed:    failed,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (j Job) ID() uuid.UUID        { return j.id }
func (j Job) TenantID() uuid.UUID  { return j.tenantID }
func (j Job) Mode() Mode           { return j.mode }
func (j Job) Status() Status       { return j.status }
func (j Job) TotalRows() int       { return j.totalRows }
func (j Job) Processed() int       { return j.processed }
func (j Job) Success() int         { return j.success }
func (j Job) Failed() int          { return j.failed }
func (j Job) CreatedAt() time.Time { return j.createdAt }
func (j Job) UpdatedAt() time.Time { return j.updatedAt }
