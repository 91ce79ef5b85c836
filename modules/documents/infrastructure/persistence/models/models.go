package models

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type Document struct {
	ID          string
	TenantID    string
	SourceRowID string
	Portal      string
	Bucket      string
	Path        string
	ReferenceID pgtype.Text
	ExpiresAt   pgtype.Timestamptz
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
