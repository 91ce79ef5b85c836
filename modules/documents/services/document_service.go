package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/aqlhr/import-engine/modules/documents/domain/entities/document"
	"github.com/aqlhr/import-engine/pkg/composables"
	"github.com/aqlhr/import-engine/pkg/eventbus"
)

type DocumentService struct {
	repo      document.Repository
	publisher eventbus.EventBus
}

func NewDocumentService(repo document.Repository, publisher eventbus.EventBus) *DocumentService {
	return &DocumentService{
		repo:      repo,
		publisher: publisher,
	}
}

func (s *DocumentService) GetByID(ctx context.Context, id uuid.UUID) (document.Document, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (document.Document, error) {
		return s.repo.GetByID(txCtx, id)
	})
}

func (s *DocumentService) GetBySourceRowID(ctx context.Context, rowID uuid.UUID) (document.Document, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (document.Document, error) {
		return s.repo.GetBySourceRowID(txCtx, rowID)
	})
}

// Save persists the document reference idempotently: re-saving for the same
// source row updates the earlier reference in place.
func (s *DocumentService) Save(ctx context.Context, d document.Document) (uuid.UUID, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (uuid.UUID, error) {
		return s.repo.Save(txCtx, d)
	})
}
