package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/aqlhr/import-engine/modules/documents/domain/entities/document"
	docservices "github.com/aqlhr/import-engine/modules/documents/services"
	"github.com/aqlhr/import-engine/modules/hrm/domain/aggregates/employee"
	hrmservices "github.com/aqlhr/import-engine/modules/hrm/services"
	"github.com/aqlhr/import-engine/modules/importer/domain/aggregates/importrow"
	"github.com/aqlhr/import-engine/modules/importer/domain/normalization"
	"github.com/aqlhr/import-engine/modules/importer/domain/value_objects/rawdata"
	"github.com/aqlhr/import-engine/pkg/composables"
	"github.com/aqlhr/import-engine/pkg/serrors"
)

// ModeStrategy couples one import mode's normalization with its persistence
// target. The retry orchestrator stays mode-agnostic: adding a mode means
// adding a strategy, not editing the orchestrator.
type ModeStrategy interface {
	// Normalize validates the raw payload. It returns an opaque record for
	// Persist plus the snapshot stored on the row, or a coded validation
	// error.
	Normalize(raw rawdata.Map) (any, rawdata.Map, *serrors.BaseError)

	// Persist writes the normalized record to its target entity store and
	// returns the ids created or updated there.
	Persist(ctx context.Context, row importrow.Row, record any) ([]uuid.UUID, error)
}

type employeesStrategy struct {
	employees *hrmservices.EmployeeService
}

func NewEmployeesStrategy(employees *hrmservices.EmployeeService) ModeStrategy {
	return &employeesStrategy{employees: employees}
}

func (s *employeesStrategy) Normalize(raw rawdata.Map) (any, rawdata.Map, *serrors.BaseError) {
	rec, verr := normalization.NormalizeEmployee(raw)
	if verr != nil {
		return nil, nil, verr
	}

	snapshot := rawdata.Map{"name": rawdata.String(rec.DisplayName)}
	if rec.IqamaNumber != "" {
		snapshot["iqama_number"] = rawdata.String(rec.IqamaNumber)
	}
	if rec.EmployeeCode != "" {
		snapshot["employee_code"] = rawdata.String(rec.EmployeeCode)
	}
	return rec, snapshot, nil
}

func (s *employeesStrategy) Persist(ctx context.Context, row importrow.Row, record any) ([]uuid.UUID, error) {
	rec := record.(normalization.EmployeeRecord)

	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	e := employee.New(tenantID, rec.DisplayName).
		WithIqamaNumber(rec.IqamaNumber).
		WithEmployeeCode(rec.EmployeeCode)

	outcomes, err := s.employees.UpsertBatch(ctx, []employee.Employee{e})
	if err != nil {
		return nil, err
	}
	if outcomes[0].Err != nil {
		return nil, outcomes[0].Err
	}
	return []uuid.UUID{outcomes[0].ID}, nil
}

type documentsStrategy struct {
	documents     *docservices.DocumentService
	defaultPortal string
}

func NewDocumentsStrategy(documents *docservices.DocumentService, defaultPortal string) ModeStrategy {
	return &documentsStrategy{documents: documents, defaultPortal: defaultPortal}
}

func (s *documentsStrategy) Normalize(raw rawdata.Map) (any, rawdata.Map, *serrors.BaseError) {
	rec, verr := normalization.NormalizeDocument(raw, s.defaultPortal)
	if verr != nil {
		return nil, nil, verr
	}

	snapshot := rawdata.Map{
		"portal": rawdata.String(rec.Portal),
		"bucket": rawdata.String(rec.Bucket),
		"path":   rawdata.String(rec.Path),
	}
	if rec.ReferenceID != "" {
		snapshot["reference_id"] = rawdata.String(rec.ReferenceID)
	}
	if rec.ExpiresAt != nil {
		snapshot["expiry_date"] = rawdata.String(rec.ExpiresAt.Format("2006-01-02"))
	}
	return rec, snapshot, nil
}

func (s *documentsStrategy) Persist(ctx context.Context, row importrow.Row, record any) ([]uuid.UUID, error) {
	rec := record.(normalization.DocumentRecord)

	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	d := document.New(tenantID, rec.Portal, rec.Bucket, rec.Path).
		WithSourceRowID(row.ID()).
		WithReferenceID(rec.ReferenceID).
		WithExpiresAt(rec.ExpiresAt)

	id, err := s.documents.Save(ctx, d)
	if err != nil {
		return nil, err
	}
	return []uuid.UUID{id}, nil
}
