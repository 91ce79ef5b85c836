package employee

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Employee is an HR roster entry. An employee is identified by at least one
// natural key: the iqama (national identity) number or the internal employee
// code. Retried imports must never duplicate an employee carrying the same key.
type Employee struct {
	id           uuid.UUID
	tenantID     uuid.UUID
	displayName  string
	iqamaNumber  string
	employeeCode string
	createdAt    time.Time
	updatedAt    time.Time
}

func New(tenantID uuid.UUID, displayName string) Employee {
	return Employee{
		tenantID:    tenantID,
		displayName: strings.TrimSpace(displayName),
	}
}

func Hydrate(
	id uuid.UUID,
	tenantID uuid.UUID,
	displayName string,
	iqamaNumber string,
	employeeCode string,
	createdAt time.Time,
	updatedAt time.Time,
) Employee {
	return Employee{
		id:           id,
		tenantID:     tenantID,
		displayName:  strings.TrimSpace(displayName),
		iqamaNumber:  strings.TrimSpace(iqamaNumber),
		employeeCode: strings.TrimSpace(employeeCode),
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

func (e Employee) ID() uuid.UUID        { return e.id }
func (e Employee) TenantID() uuid.UUID  { return e.tenantID }
func (e Employee) DisplayName() string  { return e.displayName }
func (e Employee) IqamaNumber() string  { return e.iqamaNumber }
func (e Employee) EmployeeCode() string { return e.employeeCode }
func (e Employee) CreatedAt() time.Time { return e.createdAt }
func (e Employee) UpdatedAt() time.Time { return e.updatedAt }

func (e Employee) WithIqamaNumber(v string) Employee {
	e.iqamaNumber = strings.TrimSpace(v)
	return e
}

func (e Employee) WithEmployeeCode(v string) Employee {
	e.employeeCode = strings.TrimSpace(v)
	return e
}

// HasConflictKey reports whether the employee carries at least one natural key.
func (e Employee) HasConflictKey() bool {
	return e.iqamaNumber != "" || e.employeeCode != ""
}
