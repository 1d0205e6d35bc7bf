package usecase

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ledger.com/internal/domain/entity"
	"ledger.com/internal/domain/port"
	"ledger.com/internal/infrastructure/logger"
)

// AddAccountUseCase registers accounts
type AddAccountUseCase struct {
	store  port.LedgerStore
	logger logger.Logger
}

// NewAddAccountUseCase creates a new AddAccountUseCase
func NewAddAccountUseCase(store port.LedgerStore, logger logger.Logger) *AddAccountUseCase {
	return &AddAccountUseCase{
		store:  store,
		logger: logger,
	}
}

// Execute inserts one account and returns its id
func (uc *AddAccountUseCase) Execute(ctx context.Context, input entity.NewAccount) (uuid.UUID, error) {
	ctx, span := tracer.Start(ctx, "ledger.add_account",
		trace.WithAttributes(attribute.Int64("account.number", input.Number)))
	defer span.End()

	if err := input.Validate(); err != nil {
		recordError(span, err)
		return uuid.Nil, err
	}

	var id uuid.UUID
	err := runInTx(ctx, uc.store, func(tx port.Tx) error {
		var err error
		id, err = tx.InsertAccount(ctx, input.Name, input.Number)
		return err
	})
	if err != nil {
		recordError(span, err)
		uc.logger.LogWarning(ctx, "Account rejected",
			"number", input.Number,
			"error", err.Error())
		return uuid.Nil, err
	}

	uc.logger.LogInfo(ctx, "Account added",
		"account_id", id.String(),
		"number", input.Number,
		"name", input.Name)

	return id, nil
}
