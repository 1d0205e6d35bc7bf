package usecase

import (
	"context"

	"ledger.com/internal/domain/entity"
	"ledger.com/internal/domain/port"
)

// GetTrialBalanceUseCase handles trial balance retrieval
type GetTrialBalanceUseCase struct {
	store port.LedgerStore
}

// NewGetTrialBalanceUseCase creates a new GetTrialBalanceUseCase
func NewGetTrialBalanceUseCase(store port.LedgerStore) *GetTrialBalanceUseCase {
	return &GetTrialBalanceUseCase{
		store: store,
	}
}

// Execute aggregates every account's debit and credit totals, ordered by account number
func (uc *GetTrialBalanceUseCase) Execute(ctx context.Context) (*entity.TrialBalance, error) {
	ctx, span := tracer.Start(ctx, "ledger.trial_balance")
	defer span.End()

	rows, err := uc.store.AggregateTrialBalance(ctx)
	if err != nil {
		err = classify("trial balance", err)
		recordError(span, err)
		return nil, err
	}
	return entity.NewTrialBalance(rows), nil
}
