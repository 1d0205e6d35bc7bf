package usecase

import (
	"context"

	"github.com/google/uuid"

	"ledger.com/internal/domain/entity"
	"ledger.com/internal/domain/port"
)

// GetJournalUseCase handles journal lookups
type GetJournalUseCase struct {
	store port.LedgerStore
}

// NewGetJournalUseCase creates a new GetJournalUseCase
func NewGetJournalUseCase(store port.LedgerStore) *GetJournalUseCase {
	return &GetJournalUseCase{store: store}
}

// Execute returns one committed journal with its lines
func (uc *GetJournalUseCase) Execute(ctx context.Context, id uuid.UUID) (*entity.PostedJournal, error) {
	journal, err := uc.store.GetJournal(ctx, id)
	if err != nil {
		return nil, classify("get journal", err)
	}
	return journal, nil
}

// List returns every committed journal header
func (uc *GetJournalUseCase) List(ctx context.Context) ([]entity.Journal, error) {
	journals, err := uc.store.ListJournals(ctx)
	if err != nil {
		return nil, classify("list journals", err)
	}
	if journals == nil {
		journals = []entity.Journal{}
	}
	return journals, nil
}
