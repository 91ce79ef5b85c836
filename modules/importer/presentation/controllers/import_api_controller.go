package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/aqlhr/import-engine/modules/importer/domain/aggregates/importjob"
	"github.com/aqlhr/import-engine/modules/importer/domain/aggregates/importrow"
	"github.com/aqlhr/import-engine/modules/importer/services"
	"github.com/aqlhr/import-engine/pkg/application"
	"github.com/aqlhr/import-engine/pkg/httpapi"
)

type ImportAPIController struct {
	app       application.Application
	retry     *services.RetryService
	apiPrefix string
}

func NewImportAPIController(app application.Application) application.Controller {
	return &ImportAPIController{
		app:       app,
		retry:     app.Service(services.RetryService{}).(*services.RetryService),
		apiPrefix: "/api/v1/import",
	}
}

func (c *ImportAPIController) Key() string {
	return c.apiPrefix
}

// Register attaches routes directly to the root router. A PathPrefix
// subrouter would swallow method mismatches instead of handing them to the
// router's MethodNotAllowedHandler.
func (c *ImportAPIController) Register(r *mux.Router) {
	r.HandleFunc(c.apiPrefix+"/retry", c.Retry).Methods(http.MethodPost)
	r.HandleFunc(c.apiPrefix+"/jobs/{id}", c.GetJob).Methods(http.MethodGet)
	r.HandleFunc(c.apiPrefix+"/jobs/{id}/rows", c.GetRows).Methods(http.MethodGet)
}

type retryRequest struct {
	JobID  string   `json:"job_id"`
	RowIDs []string `json:"row_ids,omitempty"`
}

type retryResponse struct {
	Ok      bool   `json:"ok"`
	Retried int    `json:"retried"`
	Success int    `json:"success"`
	Failed  int    `json:"failed"`
	Warn    string `json:"warn,omitempty"`
}

func (c *ImportAPIController) Retry(w http.ResponseWriter, r *http.Request) {
	var req retryRequest
	if err := decodeJSON(r, &req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "missing_job_id", "request body must be JSON with a job_id")
		return
	}
	if strings.TrimSpace(req.JobID) == "" {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "missing_job_id", "")
		return
	}

	jobID, err := uuid.Parse(strings.TrimSpace(req.JobID))
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusNotFound, "job_not_found", "")
		return
	}

	// Unparsable row ids cannot match a candidate row, so they are dropped
	// the same way unknown ids are.
	var rowIDs []uuid.UUID
	for _, raw := range req.RowIDs {
		if id, err := uuid.Parse(strings.TrimSpace(raw)); err == nil {
			rowIDs = append(rowIDs, id)
		}
	}

	result, err := c.retry.Retry(r.Context(), jobID, rowIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	_ = httpapi.WriteJSON(w, http.StatusOK, retryResponse{
		Ok:      true,
		Retried: result.Retried,
		Success: result.Success,
		Failed:  result.Failed,
		Warn:    result.Warn,
	})
}

type jobResponse struct {
	Ok  bool       `json:"ok"`
	Job jobPayload `json:"job"`
}

type jobPayload struct {
	ID        string `json:"id"`
	Mode      string `json:"mode"`
	Status    string `json:"status"`
	TotalRows int    `json:"total_rows"`
	Processed int    `json:"processed"`
	Success   int    `json:"success"`
	Failed    int    `json:"failed"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func (c *ImportAPIController) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathID(w, r)
	if !ok {
		return
	}

	job, err := c.retry.GetJob(r.Context(), jobID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	_ = httpapi.WriteJSON(w, http.StatusOK, jobResponse{Ok: true, Job: toJobPayload(job)})
}

type rowsResponse struct {
	Ok   bool         `json:"ok"`
	Rows []rowPayload `json:"rows"`
}

type rowPayload struct {
	ID         string   `json:"id"`
	RowIndex   int      `json:"row_index"`
	Error      string   `json:"error,omitempty"`
	CreatedIDs []string `json:"created_ids,omitempty"`
	UpdatedAt  string   `json:"updated_at"`
}

func (c *ImportAPIController) GetRows(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathID(w, r)
	if !ok {
		return
	}

	onlyFailed := r.URL.Query().Get("failed") == "true"
	rows, err := c.retry.GetRows(r.Context(), jobID, onlyFailed)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	payload := make([]rowPayload, 0, len(rows))
	for _, row := range rows {
		payload = append(payload, toRowPayload(row))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, rowsResponse{Ok: true, Rows: payload})
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusNotFound, "job_not_found", "")
		return uuid.Nil, false
	}
	return id, true
}

func toJobPayload(job importjob.Job) jobPayload {
	return jobPayload{
		ID:        job.ID().String(),
		Mode:      string(job.Mode()),
		Status:    string(job.Status()),
		TotalRows: job.TotalRows(),
		Processed: job.Processed(),
		Success:   job.Success(),
		Failed:    job.Failed(),
		CreatedAt: job.CreatedAt().UTC().Format(time.RFC3339),
		UpdatedAt: job.UpdatedAt().UTC().Format(time.RFC3339),
	}
}

func toRowPayload(row importrow.Row) rowPayload {
	ids := make([]string, 0, len(row.CreatedIDs()))
	for _, id := range row.CreatedIDs() {
		ids = append(ids, id.String())
	}
	return rowPayload{
		ID:         row.ID().String(),
		RowIndex:   row.RowIndex(),
		Error:      row.ErrorMessage(),
		CreatedIDs: ids,
		UpdatedAt:  row.UpdatedAt().UTC().Format(time.RFC3339),
	}
}
