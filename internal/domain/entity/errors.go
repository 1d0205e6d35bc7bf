package entity

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Validation errors: the caller supplied malformed or conflicting input.
var (
	ErrInvalidAccount         = errors.New("invalid account")
	ErrInvalidJournal         = errors.New("invalid journal")
	ErrInvalidLine            = errors.New("invalid journal line")
	ErrDuplicateAccountNumber = errors.New("duplicate account number")
	ErrUnknownAccount         = errors.New("unknown account")
)

// ErrJournalNotFound is returned when looking up a journal that was never committed.
var ErrJournalNotFound = errors.New("journal not found")

// ErrUnbalancedJournal is returned when a journal's debit total differs from its credit total.
var ErrUnbalancedJournal = errors.New("unbalanced journal")

// ErrStorageUnavailable wraps transport, connection and commit failures of the ledger store.
// It is the only error class a caller may retry.
var ErrStorageUnavailable = errors.New("storage unavailable")

// LineError describes why a single journal line was rejected.
type LineError struct {
	Index  int
	Field  string
	Reason string
}

func (e *LineError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: line %d: %s", ErrInvalidLine, e.Index, e.Reason)
	}
	return fmt.Sprintf("%s: line %d: %s %s", ErrInvalidLine, e.Index, e.Field, e.Reason)
}

func (e *LineError) Unwrap() error { return ErrInvalidLine }

// UnbalancedJournalError carries the totals computed for a rejected posting attempt.
// Attempt identifies the attempt only; no row with that id was ever committed.
type UnbalancedJournalError struct {
	Attempt uuid.UUID
	Debit   decimal.Decimal
	Credit  decimal.Decimal
}

func (e *UnbalancedJournalError) Error() string {
	return fmt.Sprintf("%s: attempt %s: debit %s != credit %s",
		ErrUnbalancedJournal, e.Attempt, e.Debit.String(), e.Credit.String())
}

func (e *UnbalancedJournalError) Unwrap() error { return ErrUnbalancedJournal }

// StorageError marks err as a storage failure while keeping the cause inspectable.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

// IsRetryable reports whether a caller may retry the failed operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}
