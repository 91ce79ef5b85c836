package models

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type ImportJob struct {
	ID        string
	TenantID  string
	Mode      string
	Status    string
	TotalRows int
	Processed int
	Success   int
	Failed    int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ImportRow struct {
	ID         string
	JobID      string
	RowIndex   int
	RawData    []byte
	Normalized []byte
	Error      pgtype.Text
	CreatedIDs []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
