package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqlhr/import-engine/modules/hrm/domain/aggregates/employee"
	hrmservices "github.com/aqlhr/import-engine/modules/hrm/services"
	"github.com/aqlhr/import-engine/modules/importer/domain/aggregates/importjob"
	"github.com/aqlhr/import-engine/modules/importer/domain/aggregates/importrow"
	"github.com/aqlhr/import-engine/modules/importer/domain/normalization"
	"github.com/aqlhr/import-engine/modules/importer/domain/value_objects/rawdata"
	"github.com/aqlhr/import-engine/pkg/composables"
)

type fakeTx struct {
	pgx.Tx
}

type stubPublisher struct{}

func (s *stubPublisher) Publish(args ...interface{})     {}
func (s *stubPublisher) Subscribe(handler interface{})   {}
func (s *stubPublisher) Unsubscribe(handler interface{}) {}
func (s *stubPublisher) Clear()                          {}
func (s *stubPublisher) SubscribersCount() int           { return 0 }

type fakeJobRepo struct {
	mu       sync.Mutex
	jobs     map[uuid.UUID]importjob.Job
	deltaErr error
	deltas   [][2]int
}

func newFakeJobRepo(jobs ...importjob.Job) *fakeJobRepo {
	m := make(map[uuid.UUID]importjob.Job, len(jobs))
	for _, j := range jobs {
		m[j.ID()] = j
	}
	return &fakeJobRepo{jobs: m}
}

func (f *fakeJobRepo) GetByID(ctx context.Context, id uuid.UUID) (importjob.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return importjob.Job{}, importjob.ErrNotFound
	}
	return j, nil
}

func (f *fakeJobRepo) ApplyRetryDelta(ctx context.Context, id uuid.UUID, successes, failures int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deltaErr != nil {
		return f.deltaErr
	}
	f.deltas = append(f.deltas, [2]int{successes, failures})
	return nil
}

func (f *fakeJobRepo) Recount(ctx context.Context, id uuid.UUID) (importjob.Job, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeJobRepo) ListTouchedSince(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	return nil, nil
}

type fakeRowRepo struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]importrow.Row
	fetches int
}

func newFakeRowRepo(rows ...importrow.Row) *fakeRowRepo {
	m := make(map[uuid.UUID]importrow.Row, len(rows))
	for _, r := range rows {
		m[r.ID()] = r
	}
	return &fakeRowRepo{rows: m}
}

func (f *fakeRowRepo) GetByJobID(ctx context.Context, jobID uuid.UUID, onlyFailed bool) ([]importrow.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []importrow.Row
	for _, r := range f.rows {
		if r.JobID() != jobID {
			continue
		}
		if onlyFailed && !r.IsRetryable() {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRowRepo) GetRetryable(ctx context.Context, jobID uuid.UUID, rowIDs []uuid.UUID) ([]importrow.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	wanted := map[uuid.UUID]bool{}
	for _, id := range rowIDs {
		wanted[id] = true
	}
	var out []importrow.Row
	for _, r := range f.rows {
		if r.JobID() != jobID || !r.IsRetryable() {
			continue
		}
		if len(wanted) > 0 && !wanted[r.ID()] {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRowRepo) MarkFailed(ctx context.Context, rowID uuid.UUID, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[rowID]
	if !ok {
		return importrow.ErrNotFound
	}
	f.rows[rowID] = importrow.Hydrate(r.ID(), r.JobID(), r.RowIndex(), r.Raw(), r.Normalized(), errMsg, r.CreatedIDs(), r.CreatedAt(), time.Now())
	return nil
}

func (f *fakeRowRepo) MarkSettled(ctx context.Context, rowID uuid.UUID, normalized rawdata.Map, createdIDs []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[rowID]
	if !ok {
		return importrow.ErrNotFound
	}
	f.rows[rowID] = importrow.Hydrate(r.ID(), r.JobID(), r.RowIndex(), r.Raw(), normalized, "", createdIDs, r.CreatedAt(), time.Now())
	return nil
}

func (f *fakeRowRepo) get(id uuid.UUID) importrow.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id]
}

type fakeEmployeeRepo struct {
	mu      sync.Mutex
	byIqama map[string]uuid.UUID
	byCode  map[string]uuid.UUID
}

func newFakeEmployeeRepo() *fakeEmployeeRepo {
	return &fakeEmployeeRepo{
		byIqama: map[string]uuid.UUID{},
		byCode:  map[string]uuid.UUID{},
	}
}

func (f *fakeEmployeeRepo) GetByID(ctx context.Context, id uuid.UUID) (employee.Employee, error) {
	return employee.Employee{}, employee.ErrNotFound
}

func (f *fakeEmployeeRepo) GetByIqamaNumber(ctx context.Context, v string) (employee.Employee, error) {
	return employee.Employee{}, employee.ErrNotFound
}

func (f *fakeEmployeeRepo) GetByEmployeeCode(ctx context.Context, v string) (employee.Employee, error) {
	return employee.Employee{}, employee.ErrNotFound
}

func (f *fakeEmployeeRepo) UpsertByIqamaNumber(ctx context.Context, employees []employee.Employee) ([]employee.UpsertOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]employee.UpsertOutcome, len(employees))
	for i, e := range employees {
		id, ok := f.byIqama[e.IqamaNumber()]
		if !ok {
			id = uuid.New()
			f.byIqama[e.IqamaNumber()] = id
		}
		out[i] = employee.UpsertOutcome{ID: id}
	}
	return out, nil
}

func (f *fakeEmployeeRepo) UpsertByEmployeeCode(ctx context.Context, employees []employee.Employee) ([]employee.UpsertOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]employee.UpsertOutcome, len(employees))
	for i, e := range employees {
		id, ok := f.byCode[e.EmployeeCode()]
		if !ok {
			id = uuid.New()
			f.byCode[e.EmployeeCode()] = id
		}
		out[i] = employee.UpsertOutcome{ID: id}
	}
	return out, nil
}

func tenantContext(tenantID uuid.UUID) context.Context {
	ctx := composables.WithTx(context.Background(), fakeTx{})
	return composables.WithTenantID(ctx, tenantID)
}

func failedRow(jobID uuid.UUID, index int, raw rawdata.Map) importrow.Row {
	return importrow.Hydrate(uuid.New(), jobID, index, raw, nil, "previous_error", nil, time.Now(), time.Now())
}

func employeeJob(tenantID uuid.UUID, totalRows int) importjob.Job {
	return importjob.Hydrate(uuid.New(), tenantID, importjob.ModeEmployees, importjob.StatusProcessing, totalRows, totalRows, 0, totalRows, time.Now(), time.Now())
}

func testStrategies(employees employee.Repository) map[importjob.Mode]ModeStrategy {
	empSvc := hrmservices.NewEmployeeService(employees, &stubPublisher{})
	return map[importjob.Mode]ModeStrategy{
		importjob.ModeEmployees: NewEmployeesStrategy(empSvc),
	}
}

func newRetryServiceForTest(jobs *fakeJobRepo, rows *fakeRowRepo, employees employee.Repository) *RetryService {
	return NewRetryService(jobs, rows, testStrategies(employees), &stubPublisher{}, 2)
}

func TestRetryService_JobNotFound(t *testing.T) {
	svc := newRetryServiceForTest(newFakeJobRepo(), newFakeRowRepo(), newFakeEmployeeRepo())

	_, err := svc.Retry(tenantContext(uuid.New()), uuid.New(), nil)
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "job_not_found", svcErr.Code)
	assert.Equal(t, 404, svcErr.Status)
}

func TestRetryService_Forbidden(t *testing.T) {
	owner := uuid.New()
	job := employeeJob(owner, 1)
	rows := newFakeRowRepo(failedRow(job.ID(), 0, rawdata.Map{"name": rawdata.String("Ali")}))
	svc := newRetryServiceForTest(newFakeJobRepo(job), rows, newFakeEmployeeRepo())

	_, err := svc.Retry(tenantContext(uuid.New()), job.ID(), nil)
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "forbidden", svcErr.Code)
	assert.Equal(t, 403, svcErr.Status)
	assert.Zero(t, rows.fetches, "no row may be read on a tenant mismatch")
}

func TestRetryService_EmptyCandidateSet(t *testing.T) {
	tenantID := uuid.New()
	job := employeeJob(tenantID, 2)
	jobs := newFakeJobRepo(job)
	svc := newRetryServiceForTest(jobs, newFakeRowRepo(), newFakeEmployeeRepo())

	result, err := svc.Retry(tenantContext(tenantID), job.ID(), nil)
	require.NoError(t, err)
	assert.Equal(t, RetryResult{}, result)
	assert.Empty(t, jobs.deltas, "an idempotent no-op must not touch counters")
}

func TestRetryService_EmptyCandidateSetWithoutStrategy(t *testing.T) {
	tenantID := uuid.New()
	job := employeeJob(tenantID, 2)
	svc := NewRetryService(newFakeJobRepo(job), newFakeRowRepo(), map[importjob.Mode]ModeStrategy{}, &stubPublisher{}, 1)

	result, err := svc.Retry(tenantContext(tenantID), job.ID(), nil)
	require.NoError(t, err, "nothing to retry must succeed even before any strategy is registered")
	assert.Equal(t, RetryResult{}, result)
}

func TestRetryService_Scenario(t *testing.T) {
	tenantID := uuid.New()
	job := employeeJob(tenantID, 2)
	rowA := failedRow(job.ID(), 0, rawdata.Map{"name": rawdata.String("Ali")})
	rowB := failedRow(job.ID(), 1, rawdata.Map{"name": rawdata.String("Sara"), "employee_code": rawdata.String("E9")})
	jobs := newFakeJobRepo(job)
	rows := newFakeRowRepo(rowA, rowB)
	svc := newRetryServiceForTest(jobs, rows, newFakeEmployeeRepo())

	result, err := svc.Retry(tenantContext(tenantID), job.ID(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Retried)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 1, result.Failed)
	assert.Empty(t, result.Warn)

	assert.Equal(t, normalization.CodeMissingIdentifier, rows.get(rowA.ID()).ErrorMessage())
	settled := rows.get(rowB.ID())
	assert.Empty(t, settled.ErrorMessage())
	require.Len(t, settled.CreatedIDs(), 1)
	assert.Equal(t, "Sara", settled.Normalized().GetString("name"))

	require.Len(t, jobs.deltas, 1)
	assert.Equal(t, [2]int{1, 1}, jobs.deltas[0])
}

func TestRetryService_PartialFailureIsolation(t *testing.T) {
	tenantID := uuid.New()
	job := employeeJob(tenantID, 3)
	good1 := failedRow(job.ID(), 0, rawdata.Map{"name": rawdata.String("A"), "employee_code": rawdata.String("E1")})
	malformed := failedRow(job.ID(), 1, rawdata.Map{"employee_code": rawdata.String("E2")})
	good2 := failedRow(job.ID(), 2, rawdata.Map{"name": rawdata.String("C"), "iqama_number": rawdata.String("1000000001")})
	rows := newFakeRowRepo(good1, malformed, good2)
	svc := newRetryServiceForTest(newFakeJobRepo(job), rows, newFakeEmployeeRepo())

	result, err := svc.Retry(tenantContext(tenantID), job.ID(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Retried)
	assert.Equal(t, 2, result.Success)
	assert.Equal(t, 1, result.Failed)

	assert.Empty(t, rows.get(good1.ID()).ErrorMessage())
	assert.Empty(t, rows.get(good2.ID()).ErrorMessage())
	assert.Equal(t, normalization.CodeMissingName, rows.get(malformed.ID()).ErrorMessage())
}

func TestRetryService_RowIDFilter(t *testing.T) {
	tenantID := uuid.New()
	job := employeeJob(tenantID, 2)
	wanted := failedRow(job.ID(), 0, rawdata.Map{"name": rawdata.String("A"), "employee_code": rawdata.String("E1")})
	other := failedRow(job.ID(), 1, rawdata.Map{"name": rawdata.String("B"), "employee_code": rawdata.String("E2")})
	rows := newFakeRowRepo(wanted, other)
	svc := newRetryServiceForTest(newFakeJobRepo(job), rows, newFakeEmployeeRepo())

	result, err := svc.Retry(tenantContext(tenantID), job.ID(), []uuid.UUID{wanted.ID()})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Retried)
	assert.Equal(t, 1, result.Success)

	assert.Empty(t, rows.get(wanted.ID()).ErrorMessage())
	assert.Equal(t, "previous_error", rows.get(other.ID()).ErrorMessage(), "rows outside the filter stay untouched")
}

func TestRetryService_WarnWhenCounterWriteFails(t *testing.T) {
	tenantID := uuid.New()
	job := employeeJob(tenantID, 1)
	row := failedRow(job.ID(), 0, rawdata.Map{"name": rawdata.String("A"), "employee_code": rawdata.String("E1")})
	jobs := newFakeJobRepo(job)
	jobs.deltaErr = errors.New("connection reset")
	rows := newFakeRowRepo(row)
	svc := newRetryServiceForTest(jobs, rows, newFakeEmployeeRepo())

	result, err := svc.Retry(tenantContext(tenantID), job.ID(), nil)
	require.NoError(t, err, "a failed counter write is a warning, not a request failure")
	assert.Equal(t, 1, result.Retried)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, WarnCountersStale, result.Warn)
	assert.Empty(t, rows.get(row.ID()).ErrorMessage(), "row state stays authoritative")
}

func TestRetryService_UpsertConflictSafety(t *testing.T) {
	tenantID := uuid.New()
	job := employeeJob(tenantID, 1)
	row := failedRow(job.ID(), 0, rawdata.Map{"name": rawdata.String("A"), "iqama_number": rawdata.String("2233445566")})
	rows := newFakeRowRepo(row)
	employees := newFakeEmployeeRepo()
	svc := newRetryServiceForTest(newFakeJobRepo(job), rows, employees)

	ctx := tenantContext(tenantID)
	_, err := svc.Retry(ctx, job.ID(), nil)
	require.NoError(t, err)
	first := rows.get(row.ID()).CreatedIDs()
	require.Len(t, first, 1)

	// Fail the row again and retry: the same employee must be updated in
	// place, never duplicated.
	require.NoError(t, rows.MarkFailed(ctx, row.ID(), "transient"))
	_, err = svc.Retry(ctx, job.ID(), nil)
	require.NoError(t, err)
	second := rows.get(row.ID()).CreatedIDs()
	require.Len(t, second, 1)
	assert.Equal(t, first[0], second[0])
	assert.Len(t, employees.byIqama, 1)
}
