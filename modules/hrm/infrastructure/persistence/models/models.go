package models

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type Employee struct {
	ID           string
	TenantID     string
	DisplayName  string
	IqamaNumber  pgtype.Text
	EmployeeCode pgtype.Text
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
