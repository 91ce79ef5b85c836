package persistence

import (
	"context"
	"errors"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aqlhr/import-engine/modules/hrm/domain/aggregates/employee"
	"github.com/aqlhr/import-engine/modules/hrm/infrastructure/persistence/models"
	"github.com/aqlhr/import-engine/pkg/composables"
)

var (
	ErrEmployeeNotFound = employee.ErrNotFound
)

const (
	employeeFindQuery = `
		SELECT id, tenant_id, display_name, iqama_number, employee_code, created_at, updated_at
		FROM hr_employees`

	employeeUpsertByIqamaQuery = `
		INSERT INTO hr_employees (id, tenant_id, display_name, iqama_number, employee_code)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		ON CONFLICT (tenant_id, iqama_number) WHERE iqama_number IS NOT NULL
		DO UPDATE SET
			display_name = EXCLUDED.display_name,
			employee_code = COALESCE(EXCLUDED.employee_code, hr_employees.employee_code),
			updated_at = now()
		RETURNING id`

	employeeUpsertByCodeQuery = `
		INSERT INTO hr_employees (id, tenant_id, display_name, iqama_number, employee_code)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		ON CONFLICT (tenant_id, employee_code) WHERE employee_code IS NOT NULL
		DO UPDATE SET
			display_name = EXCLUDED.display_name,
			iqama_number = COALESCE(EXCLUDED.iqama_number, hr_employees.iqama_number),
			updated_at = now()
		RETURNING id`
)

type EmployeeRepository struct{}

func NewEmployeeRepository() employee.Repository {
	return &EmployeeRepository{}
}

func (r *EmployeeRepository) GetByID(ctx context.Context, id uuid.UUID) (employee.Employee, error) {
	return r.getOne(ctx, employeeFindQuery+" WHERE tenant_id = $1 AND id = $2", id.String())
}

func (r *EmployeeRepository) GetByIqamaNumber(ctx context.Context, iqamaNumber string) (employee.Employee, error) {
	return r.getOne(ctx, employeeFindQuery+" WHERE tenant_id = $1 AND iqama_number = $2", iqamaNumber)
}

func (r *EmployeeRepository) GetByEmployeeCode(ctx context.Context, employeeCode string) (employee.Employee, error) {
	return r.getOne(ctx, employeeFindQuery+" WHERE tenant_id = $1 AND employee_code = $2", employeeCode)
}

// UpsertByIqamaNumber writes the batch in one round trip. Each record gets its
// own outcome so one bad record does not hide the ids of the rest.
func (r *EmployeeRepository) UpsertByIqamaNumber(ctx context.Context, employees []employee.Employee) ([]employee.UpsertOutcome, error) {
	return r.upsertBatch(ctx, employeeUpsertByIqamaQuery, employees, func(e employee.Employee) []any {
		return []any{uuid.New().String(), e.TenantID().String(), e.DisplayName(), e.IqamaNumber(), e.EmployeeCode()}
	})
}

func (r *EmployeeRepository) UpsertByEmployeeCode(ctx context.Context, employees []employee.Employee) ([]employee.UpsertOutcome, error) {
	return r.upsertBatch(ctx, employeeUpsertByCodeQuery, employees, func(e employee.Employee) []any {
		return []any{uuid.New().String(), e.TenantID().String(), e.DisplayName(), e.IqamaNumber(), e.EmployeeCode()}
	})
}

func (r *EmployeeRepository) upsertBatch(
	ctx context.Context,
	query string,
	employees []employee.Employee,
	args func(employee.Employee) []any,
) ([]employee.UpsertOutcome, error) {
	if len(employees) == 0 {
		return nil, nil
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to get transaction")
	}

	outcomes := make([]employee.UpsertOutcome, len(employees))
	for i, e := range employees {
		outcomes[i] = r.upsertOne(ctx, tx, query, args(e))
	}

	return outcomes, nil
}

// upsertOne runs a single upsert under its own savepoint. A unique violation
// aborts the enclosing transaction in Postgres, so each record is rolled back
// to its savepoint on failure; the rest of the batch stays committable.
func (r *EmployeeRepository) upsertOne(ctx context.Context, tx composables.Tx, query string, args []any) employee.UpsertOutcome {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return employee.UpsertOutcome{Err: gerrors.Wrap(err, "failed to open savepoint")}
	}

	var idStr string
	if err := sp.QueryRow(ctx, query, args...).Scan(&idStr); err != nil {
		_ = sp.Rollback(ctx)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			err = gerrors.Wrap(employee.ErrDuplicateKey, pgErr.ConstraintName)
		}
		return employee.UpsertOutcome{Err: err}
	}
	if err := sp.Commit(ctx); err != nil {
		return employee.UpsertOutcome{Err: gerrors.Wrap(err, "failed to release savepoint")}
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return employee.UpsertOutcome{Err: err}
	}
	return employee.UpsertOutcome{ID: id}
}

func (r *EmployeeRepository) getOne(ctx context.Context, query string, arg any) (employee.Employee, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return employee.Employee{}, err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return employee.Employee{}, gerrors.Wrap(err, "failed to get transaction")
	}

	var m models.Employee
	if err := tx.QueryRow(ctx, query, tenantID.String(), arg).Scan(
		&m.ID,
		&m.TenantID,
		&m.DisplayName,
		&m.IqamaNumber,
		&m.EmployeeCode,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, ErrEmployeeNotFound
		}
		return employee.Employee{}, gerrors.Wrap(err, "failed to query employee")
	}

	return toDomainEmployee(&m)
}

func toDomainEmployee(m *models.Employee) (employee.Employee, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return employee.Employee{}, gerrors.Wrap(err, "invalid employee id")
	}
	tenantID, err := uuid.Parse(m.TenantID)
	if err != nil {
		return employee.Employee{}, gerrors.Wrap(err, "invalid tenant id")
	}

	return employee.Hydrate(
		id,
		tenantID,
		m.DisplayName,
		m.IqamaNumber.String,
		m.EmployeeCode.String,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}
