package normalization

import (
	"time"

	"github.com/aqlhr/import-engine/modules/importer/domain/value_objects/rawdata"
	"github.com/aqlhr/import-engine/pkg/serrors"
)

// Stable, user-visible validation codes. Upstream UIs translate them, so they
// never change once shipped.
const (
	CodeMissingName            = "missing_name"
	CodeMissingIdentifier      = "missing_iqama_or_employee_code"
	CodeMissingStorageLocation = "missing_storage_location"
	CodeNoConflictKey          = "no_conflict_key"
)

// EmployeeRecord is the validated projection of an employee roster row.
type EmployeeRecord struct {
	DisplayName  string
	IqamaNumber  string
	EmployeeCode string
}

// DocumentRecord is the validated projection of a government-document row.
type DocumentRecord struct {
	Portal      string
	Bucket      string
	Path        string
	ReferenceID string
	ExpiresAt   *time.Time
}

// Normalization is a pure function of the raw payload: identical input always
// yields an identical record or an identical error, so re-invoking it during
// retries is safe.

func NormalizeEmployee(raw rawdata.Map) (EmployeeRecord, *serrors.BaseError) {
	name := raw.GetString("name")
	if name == "" {
		return EmployeeRecord{}, serrors.NewError(CodeMissingName, "display name is required", "")
	}

	iqama := raw.GetString("iqama_number")
	if iqama == "" {
		iqama = raw.GetString("iqama")
	}
	code := raw.GetString("employee_code")
	if iqama == "" && code == "" {
		return EmployeeRecord{}, serrors.NewError(CodeMissingIdentifier, "iqama number or employee code is required", "")
	}

	return EmployeeRecord{
		DisplayName:  name,
		IqamaNumber:  iqama,
		EmployeeCode: code,
	}, nil
}

func NormalizeDocument(raw rawdata.Map, defaultPortal string) (DocumentRecord, *serrors.BaseError) {
	bucket := raw.GetString("bucket")
	path := raw.GetString("path")
	if bucket == "" || path == "" {
		return DocumentRecord{}, serrors.NewError(CodeMissingStorageLocation, "storage bucket and path are required", "")
	}

	portal := raw.GetString("portal")
	if portal == "" {
		portal = defaultPortal
	}

	return DocumentRecord{
		Portal:      portal,
		Bucket:      bucket,
		Path:        path,
		ReferenceID: raw.GetString("reference_id"),
		ExpiresAt:   parseExpiry(raw.GetString("expiry_date")),
	}, nil
}

var expiryLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"02/01/2006",
}

// parseExpiry is opportunistic: the expiry is advisory metadata, so an
// unparsable date is treated as absent, not as a row failure.
func parseExpiry(v string) *time.Time {
	if v == "" {
		return nil
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
