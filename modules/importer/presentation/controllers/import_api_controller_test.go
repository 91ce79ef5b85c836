package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqlhr/import-engine/modules/importer/domain/aggregates/importjob"
	"github.com/aqlhr/import-engine/modules/importer/domain/aggregates/importrow"
	"github.com/aqlhr/import-engine/modules/importer/domain/value_objects/rawdata"
	"github.com/aqlhr/import-engine/modules/importer/services"
	"github.com/aqlhr/import-engine/pkg/application"
	"github.com/aqlhr/import-engine/pkg/composables"
	"github.com/aqlhr/import-engine/pkg/eventbus"
	"github.com/aqlhr/import-engine/pkg/logging"
)

type fakeTx struct {
	pgx.Tx
}

type fakeJobRepo struct {
	jobs map[uuid.UUID]importjob.Job
}

func (f *fakeJobRepo) GetByID(ctx context.Context, id uuid.UUID) (importjob.Job, error) {
	j, ok := f.jobs[id]
	if !ok {
		return importjob.Job{}, importjob.ErrNotFound
	}
	return j, nil
}

func (f *fakeJobRepo) ApplyRetryDelta(ctx context.Context, id uuid.UUID, successes, failures int) error {
	return nil
}

func (f *fakeJobRepo) Recount(ctx context.Context, id uuid.UUID) (importjob.Job, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeJobRepo) ListTouchedSince(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	return nil, nil
}

type fakeRowRepo struct {
	rows []importrow.Row
}

func (f *fakeRowRepo) GetByJobID(ctx context.Context, jobID uuid.UUID, onlyFailed bool) ([]importrow.Row, error) {
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
	return f.GetByJobID(ctx, jobID, true)
}

func (f *fakeRowRepo) MarkFailed(ctx context.Context, rowID uuid.UUID, errMsg string) error {
	return nil
}

func (f *fakeRowRepo) MarkSettled(ctx context.Context, rowID uuid.UUID, normalized rawdata.Map, createdIDs []uuid.UUID) error {
	return nil
}

func newTestRouter(t *testing.T, jobs *fakeJobRepo, rows *fakeRowRepo) *mux.Router {
	t.Helper()

	logger := logging.ConsoleLogger(logrus.WarnLevel)
	bus := eventbus.NewEventPublisher(logger)
	app := application.New(&application.ApplicationOptions{
		EventBus: bus,
		Logger:   logger,
	})
	app.RegisterServices(
		services.NewRetryService(jobs, rows, map[importjob.Mode]services.ModeStrategy{}, bus, 1),
	)

	r := mux.NewRouter()
	NewImportAPIController(app).Register(r)
	return r
}

func requestContext(tenantID uuid.UUID) context.Context {
	ctx := composables.WithTx(context.Background(), fakeTx{})
	return composables.WithTenantID(ctx, tenantID)
}

func doJSON(t *testing.T, router *mux.Router, ctx context.Context, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestImportAPI_Retry_MissingJobID(t *testing.T) {
	router := newTestRouter(t, &fakeJobRepo{jobs: map[uuid.UUID]importjob.Job{}}, &fakeRowRepo{})

	rec := doJSON(t, router, requestContext(uuid.New()), http.MethodPost, "/api/v1/import/retry", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["ok"])
	assert.Equal(t, "missing_job_id", resp["error"])
}

func TestImportAPI_Retry_MalformedBody(t *testing.T) {
	router := newTestRouter(t, &fakeJobRepo{jobs: map[uuid.UUID]importjob.Job{}}, &fakeRowRepo{})

	rec := doJSON(t, router, requestContext(uuid.New()), http.MethodPost, "/api/v1/import/retry", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportAPI_Retry_JobNotFound(t *testing.T) {
	router := newTestRouter(t, &fakeJobRepo{jobs: map[uuid.UUID]importjob.Job{}}, &fakeRowRepo{})

	rec := doJSON(t, router, requestContext(uuid.New()), http.MethodPost, "/api/v1/import/retry",
		`{"job_id":"`+uuid.NewString()+`"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "job_not_found", resp["error"])
}

func TestImportAPI_Retry_Forbidden(t *testing.T) {
	owner := uuid.New()
	job := importjob.Hydrate(uuid.New(), owner, importjob.ModeEmployees, importjob.StatusProcessing, 1, 1, 0, 1, time.Now(), time.Now())
	router := newTestRouter(t, &fakeJobRepo{jobs: map[uuid.UUID]importjob.Job{job.ID(): job}}, &fakeRowRepo{})

	rec := doJSON(t, router, requestContext(uuid.New()), http.MethodPost, "/api/v1/import/retry",
		`{"job_id":"`+job.ID().String()+`"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "forbidden", resp["error"])
}

func TestImportAPI_Retry_NoFailedRows(t *testing.T) {
	tenantID := uuid.New()
	job := importjob.Hydrate(uuid.New(), tenantID, importjob.ModeEmployees, importjob.StatusCompleted, 2, 2, 2, 0, time.Now(), time.Now())
	router := newTestRouter(t, &fakeJobRepo{jobs: map[uuid.UUID]importjob.Job{job.ID(): job}}, &fakeRowRepo{})

	rec := doJSON(t, router, requestContext(tenantID), http.MethodPost, "/api/v1/import/retry",
		`{"job_id":"`+job.ID().String()+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp retryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Ok)
	assert.Zero(t, resp.Retried)
	assert.Zero(t, resp.Success)
	assert.Zero(t, resp.Failed)
}

func TestImportAPI_GetJob(t *testing.T) {
	tenantID := uuid.New()
	job := importjob.Hydrate(uuid.New(), tenantID, importjob.ModeEmployees, importjob.StatusCompletedWithErrors, 5, 5, 3, 2, time.Now(), time.Now())
	router := newTestRouter(t, &fakeJobRepo{jobs: map[uuid.UUID]importjob.Job{job.ID(): job}}, &fakeRowRepo{})

	rec := doJSON(t, router, requestContext(tenantID), http.MethodGet, "/api/v1/import/jobs/"+job.ID().String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp jobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Ok)
	assert.Equal(t, job.ID().String(), resp.Job.ID)
	assert.Equal(t, "completed_with_errors", resp.Job.Status)
	assert.Equal(t, 3, resp.Job.Success)
	assert.Equal(t, 2, resp.Job.Failed)
}

func TestImportAPI_GetRows_FailedOnly(t *testing.T) {
	tenantID := uuid.New()
	job := importjob.Hydrate(uuid.New(), tenantID, importjob.ModeEmployees, importjob.StatusProcessing, 2, 2, 1, 1, time.Now(), time.Now())
	failed := importrow.Hydrate(uuid.New(), job.ID(), 0, nil, nil, "missing_name", nil, time.Now(), time.Now())
	settled := importrow.Hydrate(uuid.New(), job.ID(), 1, nil, nil, "", []uuid.UUID{uuid.New()}, time.Now(), time.Now())
	router := newTestRouter(t,
		&fakeJobRepo{jobs: map[uuid.UUID]importjob.Job{job.ID(): job}},
		&fakeRowRepo{rows: []importrow.Row{failed, settled}},
	)

	rec := doJSON(t, router, requestContext(tenantID), http.MethodGet,
		"/api/v1/import/jobs/"+job.ID().String()+"/rows?failed=true", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp rowsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, failed.ID().String(), resp.Rows[0].ID)
	assert.Equal(t, "missing_name", resp.Rows[0].Error)
}

func TestImportAPI_MethodNotAllowedOnRetry(t *testing.T) {
	router := newTestRouter(t, &fakeJobRepo{jobs: map[uuid.UUID]importjob.Job{}}, &fakeRowRepo{})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte(`{"ok":false,"error":"method_not_allowed"}`))
	})

	rec := doJSON(t, router, requestContext(uuid.New()), http.MethodGet, "/api/v1/import/retry", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "method_not_allowed", resp["error"])
}
