package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/aqlhr/import-engine/modules/hrm/domain/aggregates/employee"
	"github.com/aqlhr/import-engine/pkg/composables"
	"github.com/aqlhr/import-engine/pkg/eventbus"
)

type EmployeeService struct {
	repo      employee.Repository
	publisher eventbus.EventBus
}

func NewEmployeeService(repo employee.Repository, publisher eventbus.EventBus) *EmployeeService {
	return &EmployeeService{
		repo:      repo,
		publisher: publisher,
	}
}

func (s *EmployeeService) GetByID(ctx context.Context, id uuid.UUID) (employee.Employee, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (employee.Employee, error) {
		return s.repo.GetByID(txCtx, id)
	})
}

func (s *EmployeeService) GetByIqamaNumber(ctx context.Context, iqamaNumber string) (employee.Employee, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (employee.Employee, error) {
		return s.repo.GetByIqamaNumber(txCtx, iqamaNumber)
	})
}

func (s *EmployeeService) GetByEmployeeCode(ctx context.Context, employeeCode string) (employee.Employee, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (employee.Employee, error) {
		return s.repo.GetByEmployeeCode(txCtx, employeeCode)
	})
}

// UpsertBatch persists the batch with insert-or-update semantics keyed on
// whichever natural key each record carries. Records with an iqama number are
// keyed on it; records with only an employee code are keyed on the code.
// Records with neither key are rejected without touching storage. Outcomes
// come back in input order.
func (s *EmployeeService) UpsertBatch(ctx context.Context, employees []employee.Employee) ([]employee.UpsertOutcome, error) {
	if len(employees) == 0 {
		return nil, nil
	}

	var (
		byIqama   []employee.Employee
		byCode    []employee.Employee
		iqamaIdxs []int
		codeIdxs  []int
	)
	outcomes := make([]employee.UpsertOutcome, len(employees))
	for i, e := range employees {
		switch {
		case e.IqamaNumber() != "":
			byIqama = append(byIqama, e)
			iqamaIdxs = append(iqamaIdxs, i)
		case e.EmployeeCode() != "":
			byCode = append(byCode, e)
			codeIdxs = append(codeIdxs, i)
		default:
			// Normalization should have caught this; storage never sees it.
			outcomes[i] = employee.UpsertOutcome{Err: employee.ErrNoConflictKey}
		}
	}

	err := composables.InTenantTx(ctx, func(txCtx context.Context) error {
		if len(byIqama) > 0 {
			partition, err := s.repo.UpsertByIqamaNumber(txCtx, byIqama)
			if err != nil {
				return err
			}
			for j, idx := range iqamaIdxs {
				outcomes[idx] = partition[j]
			}
		}
		if len(byCode) > 0 {
			partition, err := s.repo.UpsertByEmployeeCode(txCtx, byCode)
			if err != nil {
				return err
			}
			for j, idx := range codeIdxs {
				outcomes[idx] = partition[j]
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return outcomes, nil
}
