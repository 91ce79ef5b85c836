package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/aqlhr/import-engine/modules/hrm/domain/aggregates/employee"
	"github.com/aqlhr/import-engine/pkg/composables"
)

type fakeTx struct {
	pgx.Tx
}

type fakeEmployeeRepo struct {
	byIqama []employee.Employee
	byCode  []employee.Employee
}

func (f *fakeEmployeeRepo) GetByID(ctx context.Context, id uuid.UUID) (employee.Employee, error) {
	return employee.Employee{}, employee.ErrNotFound
}

func (f *fakeEmployeeRepo) GetByIqamaNumber(ctx context.Context, iqamaNumber string) (employee.Employee, error) {
	return employee.Employee{}, employee.ErrNotFound
}

func (f *fakeEmployeeRepo) GetByEmployeeCode(ctx context.Context, employeeCode string) (employee.Employee, error) {
	return employee.Employee{}, employee.ErrNotFound
}

func (f *fakeEmployeeRepo) UpsertByIqamaNumber(ctx context.Context, employees []employee.Employee) ([]employee.UpsertOutcome, error) {
	f.byIqama = append(f.byIqama, employees...)
	outcomes := make([]employee.UpsertOutcome, len(employees))
	for i := range outcomes {
		outcomes[i] = employee.UpsertOutcome{ID: uuid.New()}
	}
	return outcomes, nil
}

func (f *fakeEmployeeRepo) UpsertByEmployeeCode(ctx context.Context, employees []employee.Employee) ([]employee.UpsertOutcome, error) {
	f.byCode = append(f.byCode, employees...)
	outcomes := make([]employee.UpsertOutcome, len(employees))
	for i := range outcomes {
		outcomes[i] = employee.UpsertOutcome{ID: uuid.New()}
	}
	return outcomes, nil
}

type stubPublisher struct{}

func (s *stubPublisher) Publish(args ...interface{})     {}
func (s *stubPublisher) Subscribe(handler interface{})   {}
func (s *stubPublisher) Unsubscribe(handler interface{}) {}
func (s *stubPublisher) Clear()                          {}
func (s *stubPublisher) SubscribersCount() int           { return 0 }

func txContext(t *testing.T) context.Context {
	t.Helper()
	return composables.WithTx(context.Background(), fakeTx{})
}

func TestEmployeeService_UpsertBatch_PartitionsByNaturalKey(t *testing.T) {
	repo := &fakeEmployeeRepo{}
	svc := NewEmployeeService(repo, &stubPublisher{})

	tenantID := uuid.New()
	withIqama := employee.New(tenantID, "Ali Hassan").WithIqamaNumber("2233445566")
	withCode := employee.New(tenantID, "Sara Ahmed").WithEmployeeCode("E9")
	withBoth := employee.New(tenantID, "Omar Khalid").WithIqamaNumber("1122334455").WithEmployeeCode("E10")

	outcomes, err := svc.UpsertBatch(txContext(t), []employee.Employee{withIqama, withCode, withBoth})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		require.NoError(t, o.Err)
		require.NotEqual(t, uuid.Nil, o.ID)
	}

	// Iqama wins when both keys are present.
	require.Len(t, repo.byIqama, 2)
	require.Len(t, repo.byCode, 1)
	require.Equal(t, "E9", repo.byCode[0].EmployeeCode())
}

func TestEmployeeService_UpsertBatch_RejectsKeylessRecords(t *testing.T) {
	repo := &fakeEmployeeRepo{}
	svc := NewEmployeeService(repo, &stubPublisher{})

	keyless := employee.New(uuid.New(), "Ali")
	outcomes, err := svc.UpsertBatch(txContext(t), []employee.Employee{keyless})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.ErrorIs(t, outcomes[0].Err, employee.ErrNoConflictKey)
	require.Empty(t, repo.byIqama)
	require.Empty(t, repo.byCode)
}

func TestEmployeeService_UpsertBatch_EmptyBatch(t *testing.T) {
	repo := &fakeEmployeeRepo{}
	svc := NewEmployeeService(repo, &stubPublisher{})

	outcomes, err := svc.UpsertBatch(txContext(t), nil)
	require.NoError(t, err)
	require.Empty(t, outcomes)
}

func TestEmployeeService_UpsertBatch_PreservesInputOrder(t *testing.T) {
	repo := &fakeEmployeeRepo{}
	svc := NewEmployeeService(repo, &stubPublisher{})

	tenantID := uuid.New()
	batch := []employee.Employee{
		employee.New(tenantID, "A").WithEmployeeCode("E1"),
		employee.New(tenantID, "B"),
		employee.New(tenantID, "C").WithIqamaNumber("1000000001"),
	}

	outcomes, err := svc.UpsertBatch(txContext(t), batch)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	require.NoError(t, outcomes[0].Err)
	require.ErrorIs(t, outcomes[1].Err, employee.ErrNoConflictKey)
	require.NoError(t, outcomes[2].Err)
}
