package document

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Document is a reference to a government-issued document already uploaded to
// object storage. The document body itself lives in the bucket; this entity
// tracks where it is and which portal issued it.
type Document struct {
	id          uuid.UUID
	tenantID    uuid.UUID
	sourceRowID uuid.UUID
	portal      string
	bucket      string
	path        string
	referenceID string
	expiresAt   *time.Time
	createdAt   time.Time
	updatedAt   time.Time
}

func New(tenantID uuid.UUID, portal, bucket, path string) Document {
	return Document{
		tenantID: tenantID,
		portal:   strings.TrimSpace(portal),
		bucket:   strings.TrimSpace(bucket),
		path:     strings.TrimSpace(path),
	}
}

func Hydrate(
	id uuid.UUID,
	tenantID uuid.UUID,
	sourceRowID uuid.UUID,
	portal string,
	bucket string,
	path string,
	referenceID string,
	expiresAt *time.Time,
	createdAt time.Time,
	updatedAt time.Time,
) Document {
	return Document{
		id:          id,
		tenantID:    tenantID,
		sourceRowID: sourceRowID,
		portal:      portal,
		bucket:      bucket,
		path:        path,
		referenceID: referenceID,
		expiresAt:   expiresAt,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (d Document) ID() uuid.UUID          { return d.id }
func (d Document) TenantID() uuid.UUID    { return d.tenantID }
func (d Document) SourceRowID() uuid.UUID { return d.sourceRowID }
func (d Document) Portal() string         { return d.portal }
func (d Document) Bucket() string         { return d.bucket }
func (d Document) Path() string           { return d.path }
func (d Document) ReferenceID() string    { return d.referenceID }
func (d Document) ExpiresAt() *time.Time  { return d.expiresAt }
func (d Document) CreatedAt() time.Time   { return d.createdAt }
func (d Document) UpdatedAt() time.Time   { return d.updatedAt }

// WithSourceRowID ties the document to the import row that produced it. The
// source row id is the idempotency key: retrying the same row updates the
// previously written reference instead of duplicating it.
func (d Document) WithSourceRowID(rowID uuid.UUID) Document {
	d.sourceRowID = rowID
	return d
}

func (d Document) WithReferenceID(v string) Document {
	d.referenceID = strings.TrimSpace(v)
	return d
}

func (d Document) WithExpiresAt(t *time.Time) Document {
	d.expiresAt = t
	return d
}
