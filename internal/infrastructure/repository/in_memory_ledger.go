package repository

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"ledger.com/internal/domain/entity"
	"ledger.com/internal/domain/port"
	"ledger.com/internal/infrastructure/logger"
)

var errTxClosed = errors.New("transaction already closed")

// InMemoryLedger implements the LedgerStore port. Writes are staged in a
// transaction and applied under the store lock at commit, so readers never
// observe a partially written journal.
type InMemoryLedger struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]entity.Account
	numbers  map[int64]uuid.UUID
	journals map[uuid.UUID]entity.Journal
	lines    []entity.JournalLine
	logger   logger.Logger
}

// NewInMemoryLedger creates a new in-memory ledger
func NewInMemoryLedger(logger logger.Logger) port.LedgerStore {
	return &InMemoryLedger{
		accounts: make(map[uuid.UUID]entity.Account),
		numbers:  make(map[int64]uuid.UUID),
		journals: make(map[uuid.UUID]entity.Journal),
		lines:    make([]entity.JournalLine, 0),
		logger:   logger,
	}
}

// Begin opens a staging transaction
func (l *InMemoryLedger) Begin(ctx context.Context) (port.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, entity.StorageError("begin", err)
	}
	return &memoryTx{store: l}, nil
}

// AggregateTrialBalance sums committed lines per account
func (l *InMemoryLedger) AggregateTrialBalance(ctx context.Context) ([]entity.TrialBalanceRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, entity.StorageError("trial balance", err)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	totals := make(map[uuid.UUID]entity.Totals, len(l.accounts))
	for _, line := range l.lines {
		totals[line.AccountID] = totals[line.AccountID].Add(line.Type, line.Amount)
	}

	rows := make([]entity.TrialBalanceRow, 0, len(l.accounts))
	for id, account := range l.accounts {
		t := totals[id]
		rows = append(rows, entity.TrialBalanceRow{
			AccountNumber: account.Number,
			AccountName:   account.Name,
			TotalDebit:    t.Debit,
			TotalCredit:   t.Credit,
		})
	}
	slices.SortFunc(rows, func(a, b entity.TrialBalanceRow) int {
		return cmp.Compare(a.AccountNumber, b.AccountNumber)
	})
	return rows, nil
}

// ListAccounts returns a copy of every account ordered by number
func (l *InMemoryLedger) ListAccounts(ctx context.Context) ([]entity.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, entity.StorageError("list accounts", err)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	accounts := make([]entity.Account, 0, len(l.accounts))
	for _, a := range l.accounts {
		accounts = append(accounts, a)
	}
	slices.SortFunc(accounts, func(a, b entity.Account) int {
		return cmp.Compare(a.Number, b.Number)
	})
	return accounts, nil
}

// ListJournals returns a copy of every journal header ordered by date, then id
func (l *InMemoryLedger) ListJournals(ctx context.Context) ([]entity.Journal, error) {
	if err := ctx.Err(); err != nil {
		return nil, entity.StorageError("list journals", err)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	journals := make([]entity.Journal, 0, len(l.journals))
	for _, j := range l.journals {
		journals = append(journals, j)
	}
	slices.SortFunc(journals, func(a, b entity.Journal) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return journals, nil
}

// GetJournal returns one committed journal and its lines
func (l *InMemoryLedger) GetJournal(ctx context.Context, id uuid.UUID) (*entity.PostedJournal, error) {
	if err := ctx.Err(); err != nil {
		return nil, entity.StorageError("get journal", err)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	journal, ok := l.journals[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entity.ErrJournalNotFound, id)
	}

	posted := &entity.PostedJournal{Journal: journal, Lines: []entity.JournalLine{}}
	for _, line := range l.lines {
		if line.JournalID == id {
			posted.Lines = append(posted.Lines, line)
		}
	}
	return posted, nil
}

// Close is a no-op for the in-memory ledger
func (l *InMemoryLedger) Close() error {
	return nil
}

// apply validates the staged rows against committed state and appends them.
// It is the commit-time counterpart of the engine's own balance check.
func (l *InMemoryLedger) apply(ctx context.Context, tx *memoryTx) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, a := range tx.accounts {
		if _, taken := l.numbers[a.Number]; taken {
			return fmt.Errorf("%w: %d", entity.ErrDuplicateAccountNumber, a.Number)
		}
	}
	for _, j := range tx.journals {
		var totals entity.Totals
		for _, line := range tx.lines {
			if line.JournalID == j.ID {
				totals = totals.Add(line.Type, line.Amount)
			}
		}
		if err := totals.Check(j.ID); err != nil {
			return err
		}
	}

	for _, a := range tx.accounts {
		l.accounts[a.ID] = a
		l.numbers[a.Number] = a.ID
	}
	for _, j := range tx.journals {
		l.journals[j.ID] = j
	}
	l.lines = append(l.lines, tx.lines...)

	l.logger.LogDebug(ctx, "Transaction committed",
		"accounts", len(tx.accounts),
		"journals", len(tx.journals),
		"lines", len(tx.lines))
	return nil
}

func (l *InMemoryLedger) accountExists(id uuid.UUID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.accounts[id]
	return ok
}

func (l *InMemoryLedger) numberTaken(number int64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.numbers[number]
	return ok
}

// memoryTx stages rows until Commit. It is not safe for concurrent use.
type memoryTx struct {
	store    *InMemoryLedger
	accounts []entity.Account
	journals []entity.Journal
	lines    []entity.JournalLine
	closed   bool
}

func (tx *memoryTx) InsertAccount(ctx context.Context, name string, number int64) (uuid.UUID, error) {
	if tx.closed {
		return uuid.Nil, entity.StorageError("insert account", errTxClosed)
	}
	if tx.store.numberTaken(number) || slices.ContainsFunc(tx.accounts, func(a entity.Account) bool { return a.Number == number }) {
		return uuid.Nil, fmt.Errorf("%w: %d", entity.ErrDuplicateAccountNumber, number)
	}

	account := entity.Account{ID: uuid.New(), Number: number, Name: name}
	tx.accounts = append(tx.accounts, account)
	return account.ID, nil
}

func (tx *memoryTx) InsertJournal(ctx context.Context, date time.Time, narration string) (uuid.UUID, error) {
	if tx.closed {
		return uuid.Nil, entity.StorageError("insert journal", errTxClosed)
	}

	journal := entity.Journal{ID: uuid.New(), Date: date, Narration: narration}
	tx.journals = append(tx.journals, journal)
	return journal.ID, nil
}

func (tx *memoryTx) InsertJournalLines(ctx context.Context, journalID uuid.UUID, lines []entity.LineInput) ([]uuid.UUID, error) {
	if tx.closed {
		return nil, entity.StorageError("insert journal lines", errTxClosed)
	}
	if !slices.ContainsFunc(tx.journals, func(j entity.Journal) bool { return j.ID == journalID }) {
		return nil, fmt.Errorf("%w: journal %s was not created in this transaction", entity.ErrInvalidJournal, journalID)
	}

	staged := make([]entity.JournalLine, 0, len(lines))
	for _, in := range lines {
		if !tx.accountVisible(in.AccountID) {
			return nil, fmt.Errorf("%w: %s", entity.ErrUnknownAccount, in.AccountID)
		}
		staged = append(staged, entity.JournalLine{
			ID:        uuid.New(),
			JournalID: journalID,
			AccountID: in.AccountID,
			Type:      in.Type,
			Amount:    in.Amount,
		})
	}

	ids := make([]uuid.UUID, len(staged))
	for i, line := range staged {
		ids[i] = line.ID
	}
	tx.lines = append(tx.lines, staged...)
	return ids, nil
}

func (tx *memoryTx) JournalTotals(ctx context.Context, journalID uuid.UUID) (entity.Totals, error) {
	if tx.closed {
		return entity.Totals{}, entity.StorageError("journal totals", errTxClosed)
	}

	var totals entity.Totals
	for _, line := range tx.lines {
		if line.JournalID == journalID {
			totals = totals.Add(line.Type, line.Amount)
		}
	}
	return totals, nil
}

func (tx *memoryTx) Commit(ctx context.Context) error {
	if tx.closed {
		return entity.StorageError("commit", errTxClosed)
	}
	tx.closed = true

	if err := ctx.Err(); err != nil {
		return entity.StorageError("commit", err)
	}
	return tx.store.apply(ctx, tx)
}

func (tx *memoryTx) Rollback(ctx context.Context) error {
	tx.closed = true
	tx.accounts, tx.journals, tx.lines = nil, nil, nil
	return nil
}

func (tx *memoryTx) accountVisible(id uuid.UUID) bool {
	if slices.ContainsFunc(tx.accounts, func(a entity.Account) bool { return a.ID == id }) {
		return true
	}
	return tx.store.accountExists(id)
}
