package persistence

import (
	"context"
	"errors"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/aqlhr/import-engine/modules/documents/domain/entities/document"
	"github.com/aqlhr/import-engine/modules/documents/infrastructure/persistence/models"
	"github.com/aqlhr/import-engine/pkg/composables"
)

var (
	ErrDocumentNotFound = document.ErrNotFound
)

const (
	documentFindQuery = `
		SELECT id, tenant_id, source_row_id, portal, bucket, path, reference_id, expires_at, created_at, updated_at
		FROM gov_documents`

	documentSaveQuery = `
		INSERT INTO gov_documents (id, tenant_id, source_row_id, portal, bucket, path, reference_id, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
		ON CONFLICT (tenant_id, source_row_id)
		DO UPDATE SET
			portal = EXCLUDED.portal,
			bucket = EXCLUDED.bucket,
			path = EXCLUDED.path,
			reference_id = EXCLUDED.reference_id,
			expires_at = EXCLUDED.expires_at,
			updated_at = now()
		RETURNING id`
)

type DocumentRepository struct{}

func NewDocumentRepository() document.Repository {
	return &DocumentRepository{}
}

func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (document.Document, error) {
	return r.getOne(ctx, documentFindQuery+" WHERE tenant_id = $1 AND id = $2", id.String())
}

func (r *DocumentRepository) GetBySourceRowID(ctx context.Context, rowID uuid.UUID) (document.Document, error) {
	return r.getOne(ctx, documentFindQuery+" WHERE tenant_id = $1 AND source_row_id = $2", rowID.String())
}

func (r *DocumentRepository) Save(ctx context.Context, d document.Document) (uuid.UUID, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return uuid.Nil, gerrors.Wrap(err, "failed to get transaction")
	}

	var expiresAt pgtype.Timestamptz
	if d.ExpiresAt() != nil {
		expiresAt = pgtype.Timestamptz{Time: *d.ExpiresAt(), Valid: true}
	}

	var idStr string
	if err := tx.QueryRow(
		ctx,
		documentSaveQuery,
		uuid.New().String(),
		d.TenantID().String(),
		d.SourceRowID().String(),
		d.Portal(),
		d.Bucket(),
		d.Path(),
		d.ReferenceID(),
		expiresAt,
	).Scan(&idStr); err != nil {
		return uuid.Nil, gerrors.Wrap(err, "failed to save document")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, gerrors.Wrap(err, "invalid document id")
	}
	return id, nil
}

func (r *DocumentRepository) getOne(ctx context.Context, query string, arg any) (document.Document, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return document.Document{}, err
	}

	tx, err := composables.UseTx(ctx)
	if err != nil {
		return document.Document{}, gerrors.Wrap(err, "failed to get transaction")
	}

	var m models.Document
	if err := tx.QueryRow(ctx, query, tenantID.String(), arg).Scan(
		&m.ID,
		&m.TenantID,
		&m.SourceRowID,
		&m.Portal,
		&m.Bucket,
		&m.Path,
		&m.ReferenceID,
		&m.ExpiresAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return document.Document{}, ErrDocumentNotFound
		}
		return document.Document{}, gerrors.Wrap(err, "failed to query document")
	}

	return toDomainDocument(&m)
}

func toDomainDocument(m *models.Document) (document.Document, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return document.Document{}, gerrors.Wrap(err, "invalid document id")
	}
	tenantID, err := uuid.Parse(m.TenantID)
	if err != nil {
		return document.Document{}, gerrors.Wrap(err, "invalid tenant id")
	}
	sourceRowID, err := uuid.Parse(m.SourceRowID)
	if err != nil {
		return document.Document{}, gerrors.Wrap(err, "invalid source row id")
	}

	var expiresAt *time.Time
	if m.ExpiresAt.Valid {
		t := m.ExpiresAt.Time
		expiresAt = &t
	}

	return document.Hydrate(
		id,
		tenantID,
		sourceRowID,
		m.Portal,
		m.Bucket,
		m.Path,
		m.ReferenceID.String,
		expiresAt,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}
