package usecase

import (
	"context"

	"ledger.com/internal/domain/entity"
	"ledger.com/internal/domain/port"
)

// ListAccountsUseCase handles account listing
type ListAccountsUseCase struct {
	store port.LedgerStore
}

// NewListAccountsUseCase creates a new ListAccountsUseCase
func NewListAccountsUseCase(store port.LedgerStore) *ListAccountsUseCase {
	return &ListAccountsUseCase{store: store}
}

// Execute returns every account ascending by number
func (uc *ListAccountsUseCase) Execute(ctx context.Context) ([]entity.Account, error) {
	accounts, err := uc.store.ListAccounts(ctx)
	if err != nil {
		return nil, classify("list accounts", err)
	}
	if accounts == nil {
		accounts = []entity.Account{}
	}
	return accounts, nil
}
