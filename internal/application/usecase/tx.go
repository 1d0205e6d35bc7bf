package usecase

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ledger.com/internal/domain/entity"
	"ledger.com/internal/domain/port"
)

var tracer = otel.Tracer("ledger.com/internal/application/usecase")

// runInTx runs fn inside one store transaction. The transaction commits only
// when fn returns nil; any error rolls every write of fn back.
func runInTx(ctx context.Context, store port.LedgerStore, fn func(tx port.Tx) error) error {
	tx, err := store.Begin(ctx)
	if err != nil {
		return classify("begin transaction", err)
	}

	if err := fn(tx); err != nil {
		// Rollback must run even when ctx is already cancelled.
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return classify("posting", err)
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return classify("commit", err)
	}
	return nil
}

// classify keeps domain errors as they are and marks everything else as a
// storage failure, so callers only ever see the documented error classes.
func classify(op string, err error) error {
	for _, known := range []error{
		entity.ErrInvalidAccount,
		entity.ErrInvalidJournal,
		entity.ErrInvalidLine,
		entity.ErrDuplicateAccountNumber,
		entity.ErrUnknownAccount,
		entity.ErrJournalNotFound,
		entity.ErrUnbalancedJournal,
		entity.ErrStorageUnavailable,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return entity.StorageError(op, err)
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
