// Package storetest holds the behaviour every port.LedgerStore implementation
// must show, exercised through the posting engine and directly through Tx.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"ledger.com/internal/application/usecase"
	"ledger.com/internal/domain/entity"
	"ledger.com/internal/domain/port"
	"ledger.com/internal/infrastructure/logger"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) port.LedgerStore

type ledger struct {
	store        port.LedgerStore
	addAccount   *usecase.AddAccountUseCase
	addJournal   *usecase.AddJournalUseCase
	trialBalance *usecase.GetTrialBalanceUseCase
}

func newLedger(t *testing.T, factory Factory) *ledger {
	t.Helper()
	store := factory(t)
	t.Cleanup(func() { _ = store.Close() })

	log := logger.NewNop()
	return &ledger{
		store:        store,
		addAccount:   usecase.NewAddAccountUseCase(store, log),
		addJournal:   usecase.NewAddJournalUseCase(store, nil, log),
		trialBalance: usecase.NewGetTrialBalanceUseCase(store),
	}
}

func (l *ledger) account(t *testing.T, name string, number int64) uuid.UUID {
	t.Helper()
	id, err := l.addAccount.Execute(context.Background(), entity.NewAccount{Name: name, Number: number})
	require.NoError(t, err)
	return id
}

func line(lt entity.LineType, amount string, account uuid.UUID) entity.LineInput {
	return entity.LineInput{Type: lt, Amount: decimal.RequireFromString(amount), AccountID: account}
}

func journal(narration string, lines ...entity.LineInput) entity.NewJournal {
	return entity.NewJournal{
		Date:      time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Narration: narration,
		Lines:     lines,
	}
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got),
		append([]any{fmt.Sprintf("want %s, got %s", want, got.String())}, msgAndArgs...)...)
}

// Run executes the whole contract against stores built by factory.
func Run(t *testing.T, factory Factory) {
	t.Run("AddAccount", func(t *testing.T) { testAddAccount(t, factory) })
	t.Run("DuplicateAccountNumber", func(t *testing.T) { testDuplicateAccountNumber(t, factory) })
	t.Run("ConcurrentDuplicateAccountNumber", func(t *testing.T) { testConcurrentDuplicateAccountNumber(t, factory) })
	t.Run("TrialBalanceAggregation", func(t *testing.T) { testTrialBalanceAggregation(t, factory) })
	t.Run("TrialBalanceIdempotentReads", func(t *testing.T) { testTrialBalanceIdempotentReads(t, factory) })
	t.Run("SingleLineRejected", func(t *testing.T) { testSingleLineRejected(t, factory) })
	t.Run("UnbalancedRolledBack", func(t *testing.T) { testUnbalancedRolledBack(t, factory) })
	t.Run("UnknownAccountRolledBack", func(t *testing.T) { testUnknownAccountRolledBack(t, factory) })
	t.Run("DecimalPrecision", func(t *testing.T) { testDecimalPrecision(t, factory) })
	t.Run("GetAndListJournals", func(t *testing.T) { testGetAndListJournals(t, factory) })
	t.Run("ConcurrentPosting", func(t *testing.T) { testConcurrentPosting(t, factory) })
	t.Run("UncommittedInvisible", func(t *testing.T) { testUncommittedInvisible(t, factory) })
	t.Run("OpenTxInvisibleToConcurrentReader", func(t *testing.T) { testOpenTxInvisibleToConcurrentReader(t, factory) })
	t.Run("CommitTimeBalanceCheck", func(t *testing.T) { testCommitTimeBalanceCheck(t, factory) })
}

func testAddAccount(t *testing.T, factory Factory) {
	l := newLedger(t, factory)
	ctx := context.Background()

	id := l.account(t, "Revenues", 100)
	assert.NotEqual(t, uuid.Nil, id)

	accounts, err := l.store.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, entity.Account{ID: id, Number: 100, Name: "Revenues"}, accounts[0])
}

func testDuplicateAccountNumber(t *testing.T, factory Factory) {
	l := newLedger(t, factory)
	ctx := context.Background()

	l.account(t, "X", 100)
	_, err := l.addAccount.Execute(ctx, entity.NewAccount{Name: "X", Number: 100})
	require.ErrorIs(t, err, entity.ErrDuplicateAccountNumber)

	accounts, err := l.store.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, int64(100), accounts[0].Number)
}

func testConcurrentDuplicateAccountNumber(t *testing.T, factory Factory) {
	l := newLedger(t, factory)
	ctx := context.Background()

	const workers = 8
	errs := make([]error, workers)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			_, errs[i] = l.addAccount.Execute(ctx, entity.NewAccount{Name: fmt.Sprintf("X%d", i), Number: 300})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, entity.ErrDuplicateAccountNumber)
	}
	assert.Equal(t, 1, succeeded)

	accounts, err := l.store.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func testTrialBalanceAggregation(t *testing.T, factory Factory) {
	l := newLedger(t, factory)
	ctx := context.Background()

	// Created out of order to check the number ordering.
	b := l.account(t, "B", 200)
	a := l.account(t, "A", 100)
	l.account(t, "Unused", 300)

	_, err := l.addJournal.Execute(ctx, journal("transfer",
		line(entity.LineCredit, "100", a),
		line(entity.LineDebit, "100", b),
	))
	require.NoError(t, err)

	tb, err := l.trialBalance.Execute(ctx)
	require.NoError(t, err)
	require.Len(t, tb.Rows, 3)

	want := []struct {
		number        int64
		name          string
		debit, credit string
	}{
		{100, "A", "0", "100"},
		{200, "B", "100", "0"},
		{300, "Unused", "0", "0"},
	}
	for i, w := range want {
		row := tb.Rows[i]
		assert.Equal(t, w.number, row.AccountNumber)
		assert.Equal(t, w.name, row.AccountName)
		requireDecimal(t, w.debit, row.TotalDebit, "debit of %d", w.number)
		requireDecimal(t, w.credit, row.TotalCredit, "credit of %d", w.number)
	}
	assert.True(t, tb.Balanced())
}

func testTrialBalanceIdempotentReads(t *testing.T, factory Factory) {
	l := newLedger(t, factory)
	ctx := context.Background()

	cash := l.account(t, "Cash", 100)
	sales := l.account(t, "Sales", 400)
	_, err := l.addJournal.Execute(ctx, journal("sale",
		line(entity.LineDebit, "250.50", cash),
		line(entity.LineCredit, "250.50", sales),
	))
	require.NoError(t, err)

	first, err := l.trialBalance.Execute(ctx)
	require.NoError(t, err)
	second, err := l.trialBalance.Execute(ctx)
	require.NoError(t, err)

	require.Len(t, second.Rows, len(first.Rows))
	for i := range first.Rows {
		assert.Equal(t, first.Rows[i].AccountNumber, second.Rows[i].AccountNumber)
		assert.Equal(t, first.Rows[i].AccountName, second.Rows[i].AccountName)
		assert.True(t, first.Rows[i].TotalDebit.Equal(second.Rows[i].TotalDebit))
		assert.True(t, first.Rows[i].TotalCredit.Equal(second.Rows[i].TotalCredit))
	}
}

func testSingleLineRejected(t *testing.T, factory Factory) {
	l := newLedger(t, factory)
	ctx := context.Background()

	a := l.account(t, "A", 100)
	id, err := l.addJournal.Execute(ctx, journal("one sided", line(entity.LineDebit, "100", a)))
	require.ErrorIs(t, err, entity.ErrUnbalancedJournal)
	assert.Equal(t, uuid.Nil, id)

	journals, err := l.store.ListJournals(ctx)
	require.NoError(t, err)
	assert.Empty(t, journals)

	tb, err := l.trialBalance.Execute(ctx)
	require.NoError(t, err)
	require.Len(t, tb.Rows, 1)
	assert.True(t, tb.Rows[0].TotalDebit.IsZero())
}

func testUnbalancedRolledBack(t *testing.T, factory Factory) {
	l := newLedger(t, factory)
	ctx := context.Background()

	cash := l.account(t, "Cash", 100)
	expenses := l.account(t, "Expenses", 200)

	_, err := l.addJournal.Execute(ctx, journal("Opening balance",
		line(entity.LineDebit, "101", cash),
		line(entity.LineCredit, "100", expenses),
	))
	var unbalanced *entity.UnbalancedJournalError
	require.ErrorAs(t, err, &unbalanced)
	requireDecimal(t, "101", unbalanced.Debit)
	requireDecimal(t, "100", unbalanced.Credit)

	_, err = l.store.GetJournal(ctx, unbalanced.Attempt)
	require.ErrorIs(t, err, entity.ErrJournalNotFound)

	journals, err := l.store.ListJournals(ctx)
	require.NoError(t, err)
	assert.Empty(t, journals)

	tb, err := l.trialBalance.Execute(ctx)
	require.NoError(t, err)
	assert.True(t, tb.TotalDebit.IsZero())
	assert.True(t, tb.TotalCredit.IsZero())
}

func testUnknownAccountRolledBack(t *testing.T, factory Factory) {
	l := newLedger(t, factory)
	ctx := context.Background()

	cash := l.account(t, "Cash", 100)
	_, err := l.addJournal.Execute(ctx, journal("ghost",
		line(entity.LineDebit, "10", cash),
		line(entity.LineCredit, "10", uuid.New()),
	))
	require.ErrorIs(t, err, entity.ErrUnknownAccount)

	journals, err := l.store.ListJournals(ctx)
	require.NoError(t, err)
	assert.Empty(t, journals)

	tb, err := l.trialBalance.Execute(ctx)
	require.NoError(t, err)
	assert.True(t, tb.TotalDebit.IsZero())
}

func testDecimalPrecision(t *testing.T, factory Factory) {
	l := newLedger(t, factory)
	ctx := context.Background()

	a := l.account(t, "A", 100)
	b := l.account(t, "B", 200)
	_, err := l.addJournal.Execute(ctx, journal("cents",
		line(entity.LineDebit, "0.1", a),
		line(entity.LineDebit, "0.2", a),
		line(entity.LineCredit, "0.3", b),
	))
	require.NoError(t, err)

	tb, err := l.trialBalance.Execute(ctx)
	require.NoError(t, err)
	requireDecimal(t, "0.3", tb.Rows[0].TotalDebit)
	requireDecimal(t, "0.3", tb.Rows[1].TotalCredit)
}

func testGetAndListJournals(t *testing.T, factory Factory) {
	l := newLedger(t, factory)
	ctx := context.Background()

	a := l.account(t, "A", 100)
	b := l.account(t, "B", 200)

	later := journal("later", line(entity.LineDebit, "5", a), line(entity.LineCredit, "5", b))
	later.Date = time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC)
	laterID, err := l.addJournal.Execute(ctx, later)
	require.NoError(t, err)

	earlierID, err := l.addJournal.Execute(ctx, journal("earlier",
		line(entity.LineDebit, "7", b), line(entity.LineCredit, "3", a), line(entity.LineCredit, "4", a)))
	require.NoError(t, err)

	journals, err := l.store.ListJournals(ctx)
	require.NoError(t, err)
	require.Len(t, journals, 2)
	assert.Equal(t, earlierID, journals[0].ID)
	assert.Equal(t, laterID, journals[1].ID)
	assert.True(t, journals[1].Date.Equal(later.Date))

	posted, err := l.store.GetJournal(ctx, earlierID)
	require.NoError(t, err)
	assert.Equal(t, "earlier", posted.Narration)
	require.Len(t, posted.Lines, 3)
	totals := posted.Totals()
	requireDecimal(t, "7", totals.Debit)
	requireDecimal(t, "7", totals.Credit)
	for _, pl := range posted.Lines {
		assert.Equal(t, earlierID, pl.JournalID)
		assert.NotEqual(t, uuid.Nil, pl.ID)
	}
}

func testConcurrentPosting(t *testing.T, factory Factory) {
	l := newLedger(t, factory)
	ctx := context.Background()

	const pairs = 4
	const postings = 5
	type pair struct{ debit, credit uuid.UUID }
	accounts := make([]pair, pairs)
	for i := range accounts {
		accounts[i] = pair{
			debit:  l.account(t, fmt.Sprintf("D%d", i), int64(1000+i)),
			credit: l.account(t, fmt.Sprintf("C%d", i), int64(2000+i)),
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range accounts {
		for n := 0; n < postings; n++ {
			g.Go(func() error {
				_, err := l.addJournal.Execute(gctx, journal("concurrent",
					line(entity.LineDebit, "10", p.debit),
					line(entity.LineCredit, "10", p.credit),
				))
				return err
			})
		}
	}
	require.NoError(t, g.Wait())

	journals, err := l.store.ListJournals(ctx)
	require.NoError(t, err)
	assert.Len(t, journals, pairs*postings)

	tb, err := l.trialBalance.Execute(ctx)
	require.NoError(t, err)
	require.Len(t, tb.Rows, pairs*2)
	for _, row := range tb.Rows {
		if row.AccountNumber < 2000 {
			requireDecimal(t, "50", row.TotalDebit, "account %d", row.AccountNumber)
		} else {
			requireDecimal(t, "50", row.TotalCredit, "account %d", row.AccountNumber)
		}
	}
	assert.True(t, tb.Balanced())
}

func testUncommittedInvisible(t *testing.T, factory Factory) {
	l := newLedger(t, factory)
	ctx := context.Background()

	tx, err := l.store.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.InsertAccount(ctx, "Pending", 100)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))

	accounts, err := l.store.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts, "rolled back account is visible")

	tx, err = l.store.Begin(ctx)
	require.NoError(t, err)
	id, err := tx.InsertAccount(ctx, "Pending", 100)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, tx.Rollback(ctx), "rollback after commit must be a no-op")

	accounts, err = l.store.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, id, accounts[0].ID)
}

type readerView struct {
	journals []entity.Journal
	rows     []entity.TrialBalanceRow
	err      error
}

// A reader running while unbalanced lines sit in an open transaction sees
// neither the journal nor its amounts. Stores with a single connection make
// the reader wait for the rollback instead.
func testOpenTxInvisibleToConcurrentReader(t *testing.T, factory Factory) {
	l := newLedger(t, factory)
	ctx := context.Background()

	a := l.account(t, "A", 100)
	b := l.account(t, "B", 200)

	tx, err := l.store.Begin(ctx)
	require.NoError(t, err)
	journalID, err := tx.InsertJournal(ctx, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), "pending")
	require.NoError(t, err)
	_, err = tx.InsertJournalLines(ctx, journalID, []entity.LineInput{
		line(entity.LineDebit, "70", a),
		line(entity.LineCredit, "30", b),
	})
	require.NoError(t, err)

	views := make(chan readerView, 1)
	go func() {
		readCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		var v readerView
		v.journals, v.err = l.store.ListJournals(readCtx)
		if v.err == nil {
			v.rows, v.err = l.store.AggregateTrialBalance(readCtx)
		}
		views <- v
	}()

	var view readerView
	select {
	case view = <-views:
		require.NoError(t, tx.Rollback(ctx))
	case <-time.After(200 * time.Millisecond):
		require.NoError(t, tx.Rollback(ctx))
		view = <-views
	}

	require.NoError(t, view.err)
	for _, j := range view.journals {
		assert.NotEqual(t, journalID, j.ID, "uncommitted journal listed")
	}
	require.Len(t, view.rows, 2)
	for _, row := range view.rows {
		assert.True(t, row.TotalDebit.IsZero(), "account %d debit %s", row.AccountNumber, row.TotalDebit)
		assert.True(t, row.TotalCredit.IsZero(), "account %d credit %s", row.AccountNumber, row.TotalCredit)
	}

	_, err = l.store.GetJournal(ctx, journalID)
	require.ErrorIs(t, err, entity.ErrJournalNotFound)
}

// Committing unbalanced lines without the engine's check must still fail as
// a whole: the store validates every journal it is asked to commit.
func testCommitTimeBalanceCheck(t *testing.T, factory Factory) {
	l := newLedger(t, factory)
	ctx := context.Background()

	a := l.account(t, "A", 100)
	b := l.account(t, "B", 200)

	tx, err := l.store.Begin(ctx)
	require.NoError(t, err)
	journalID, err := tx.InsertJournal(ctx, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), "raw")
	require.NoError(t, err)
	_, err = tx.InsertJournalLines(ctx, journalID, []entity.LineInput{
		line(entity.LineDebit, "50", a),
		line(entity.LineCredit, "40", b),
	})
	require.NoError(t, err)

	totals, err := tx.JournalTotals(ctx, journalID)
	require.NoError(t, err)
	requireDecimal(t, "50", totals.Debit)
	requireDecimal(t, "40", totals.Credit)

	err = tx.Commit(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrUnbalancedJournal), "commit error = %v", err)
	_ = tx.Rollback(ctx)

	_, err = l.store.GetJournal(ctx, journalID)
	require.ErrorIs(t, err, entity.ErrJournalNotFound)
}
