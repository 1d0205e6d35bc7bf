package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ledger.com/internal/domain/entity"
)

// LedgerStore is the port for the durable ledger. Every write goes through a Tx.
type LedgerStore interface {
	// Begin opens an atomic, isolated unit of work.
	Begin(ctx context.Context) (Tx, error)
	// AggregateTrialBalance returns every account with its debit and credit totals,
	// ascending by account number.
	AggregateTrialBalance(ctx context.Context) ([]entity.TrialBalanceRow, error)
	// ListAccounts returns every account ascending by number.
	ListAccounts(ctx context.Context) ([]entity.Account, error)
	// ListJournals returns committed journal headers ordered by date, then id.
	ListJournals(ctx context.Context) ([]entity.Journal, error)
	// GetJournal returns a committed journal with its lines or ErrJournalNotFound.
	GetJournal(ctx context.Context, id uuid.UUID) (*entity.PostedJournal, error)
	Close() error
}

// Tx is one open store transaction. Nothing written through it is visible to
// other readers before Commit returns nil. Commit fails, and is then
// equivalent to Rollback, if any constraint evaluated within it is violated.
// Rollback after Commit is a no-op.
type Tx interface {
	InsertAccount(ctx context.Context, name string, number int64) (uuid.UUID, error)
	InsertJournal(ctx context.Context, date time.Time, narration string) (uuid.UUID, error)
	InsertJournalLines(ctx context.Context, journalID uuid.UUID, lines []entity.LineInput) ([]uuid.UUID, error)
	// JournalTotals aggregates the lines written so far for journalID in this transaction.
	JournalTotals(ctx context.Context, journalID uuid.UUID) (entity.Totals, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
