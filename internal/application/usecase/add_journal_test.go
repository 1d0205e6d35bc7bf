package usecase

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledger.com/internal/domain/entity"
	"ledger.com/internal/domain/port"
	"ledger.com/internal/infrastructure/logger"
	"ledger.com/internal/infrastructure/repository"
)

// mockStore is a mock implementation of LedgerStore
type mockStore struct {
	beginFunc func(ctx context.Context) (port.Tx, error)
}

func (m *mockStore) Begin(ctx context.Context) (port.Tx, error) {
	if m.beginFunc != nil {
		return m.beginFunc(ctx)
	}
	return &mockTx{}, nil
}

func (m *mockStore) AggregateTrialBalance(ctx context.Context) ([]entity.TrialBalanceRow, error) {
	return nil, nil
}

func (m *mockStore) ListAccounts(ctx context.Context) ([]entity.Account, error) { return nil, nil }

func (m *mockStore) ListJournals(ctx context.Context) ([]entity.Journal, error) { return nil, nil }

func (m *mockStore) GetJournal(ctx context.Context, id uuid.UUID) (*entity.PostedJournal, error) {
	return nil, entity.ErrJournalNotFound
}

func (m *mockStore) Close() error { return nil }

// mockTx is a mock implementation of Tx that records how it was finished
type mockTx struct {
	insertLinesFunc func(ctx context.Context, journalID uuid.UUID, lines []entity.LineInput) ([]uuid.UUID, error)
	commitFunc      func(ctx context.Context) error
	lines           []entity.LineInput
	committed       bool
	rolledBack      bool
}

func (m *mockTx) InsertAccount(ctx context.Context, name string, number int64) (uuid.UUID, error) {
	return uuid.New(), nil
}

func (m *mockTx) InsertJournal(ctx context.Context, date time.Time, narration string) (uuid.UUID, error) {
	return uuid.New(), nil
}

func (m *mockTx) InsertJournalLines(ctx context.Context, journalID uuid.UUID, lines []entity.LineInput) ([]uuid.UUID, error) {
	if m.insertLinesFunc != nil {
		return m.insertLinesFunc(ctx, journalID, lines)
	}
	m.lines = append(m.lines, lines...)
	return make([]uuid.UUID, len(lines)), nil
}

func (m *mockTx) JournalTotals(ctx context.Context, journalID uuid.UUID) (entity.Totals, error) {
	return entity.SumLines(m.lines), nil
}

func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitFunc != nil {
		return m.commitFunc(ctx)
	}
	m.committed = true
	return nil
}

func (m *mockTx) Rollback(ctx context.Context) error {
	if !m.committed {
		m.rolledBack = true
	}
	return nil
}

// mockPublisher is a mock implementation of EventPublisher
type mockPublisher struct {
	events     []entity.JournalPostedEvent
	publishErr error
}

func (m *mockPublisher) PublishJournalPosted(ctx context.Context, event entity.JournalPostedEvent) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date() time.Time { return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC) }

func TestAddJournalUseCase_Execute(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	balanced := entity.NewJournal{
		Date:      date(),
		Narration: "Sale of goods",
		Lines: []entity.LineInput{
			{Type: entity.LineCredit, Amount: amount("100"), AccountID: a},
			{Type: entity.LineDebit, Amount: amount("100"), AccountID: b},
		},
	}

	tests := []struct {
		name         string
		input        entity.NewJournal
		tx           *mockTx
		beginErr     error
		publishErr   error
		wantErr      error
		wantRollback bool
		wantEvents   int
	}{
		{
			name:       "balanced journal commits and is published",
			input:      balanced,
			wantEvents: 1,
		},
		{
			name:    "no lines",
			input:   entity.NewJournal{Date: date(), Narration: "empty"},
			wantErr: entity.ErrInvalidJournal,
		},
		{
			name: "non positive amount",
			input: entity.NewJournal{Date: date(), Lines: []entity.LineInput{
				{Type: entity.LineDebit, Amount: amount("0"), AccountID: a},
			}},
			wantErr: entity.ErrInvalidLine,
		},
		{
			name: "single line",
			input: entity.NewJournal{Date: date(), Lines: []entity.LineInput{
				{Type: entity.LineDebit, Amount: amount("100"), AccountID: a},
			}},
			wantErr:      entity.ErrUnbalancedJournal,
			wantRollback: true,
		},
		{
			name:  "unknown account rolls back",
			input: balanced,
			tx: &mockTx{insertLinesFunc: func(ctx context.Context, journalID uuid.UUID, lines []entity.LineInput) ([]uuid.UUID, error) {
				return nil, entity.ErrUnknownAccount
			}},
			wantErr:      entity.ErrUnknownAccount,
			wantRollback: true,
		},
		{
			name:  "driver failure becomes storage unavailable",
			input: balanced,
			tx: &mockTx{insertLinesFunc: func(ctx context.Context, journalID uuid.UUID, lines []entity.LineInput) ([]uuid.UUID, error) {
				return nil, errors.New("broken pipe")
			}},
			wantErr:      entity.ErrStorageUnavailable,
			wantRollback: true,
		},
		{
			name:  "commit failure",
			input: balanced,
			tx: &mockTx{commitFunc: func(ctx context.Context) error {
				return errors.New("connection reset")
			}},
			wantErr:      entity.ErrStorageUnavailable,
			wantRollback: true,
		},
		{
			name:     "begin failure",
			input:    balanced,
			beginErr: errors.New("too many connections"),
			wantErr:  entity.ErrStorageUnavailable,
		},
		{
			name:       "publish failure does not fail the posting",
			input:      balanced,
			publishErr: errors.New("broker down"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := tt.tx
			if tx == nil {
				tx = &mockTx{}
			}
			store := &mockStore{beginFunc: func(ctx context.Context) (port.Tx, error) {
				if tt.beginErr != nil {
					return nil, tt.beginErr
				}
				return tx, nil
			}}
			publisher := &mockPublisher{publishErr: tt.publishErr}
			uc := NewAddJournalUseCase(store, publisher, logger.NewNop())

			id, err := uc.Execute(context.Background(), tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Execute() error = %v, wantErr %v", err, tt.wantErr)
				}
				if id != uuid.Nil {
					t.Errorf("Execute() id = %v, want nil id on error", id)
				}
				if tx.rolledBack != tt.wantRollback {
					t.Errorf("rolledBack = %v, want %v", tx.rolledBack, tt.wantRollback)
				}
				if len(publisher.events) != 0 {
					t.Errorf("published %d events for a failed posting", len(publisher.events))
				}
				return
			}

			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if id == uuid.Nil || !tx.committed {
				t.Errorf("Execute() id = %v, committed = %v", id, tx.committed)
			}
			if len(publisher.events) != tt.wantEvents {
				t.Fatalf("published %d events, want %d", len(publisher.events), tt.wantEvents)
			}
			if tt.wantEvents == 1 {
				event := publisher.events[0]
				if event.JournalID != id || event.EventType != entity.EventJournalPosted || event.Lines != 2 {
					t.Errorf("event = %+v", event)
				}
				if !event.Debit.Equal(amount("100")) || event.Date != "2020-01-01" {
					t.Errorf("event = %+v", event)
				}
			}
		})
	}
}

func TestAddJournalUseCase_UnbalancedCarriesTotals(t *testing.T) {
	ctx := context.Background()
	store := repository.NewInMemoryLedger(logger.NewNop())
	log := logger.NewNop()

	cash, _ := NewAddAccountUseCase(store, log).Execute(ctx, entity.NewAccount{Name: "Revenues", Number: 100})
	expenses, _ := NewAddAccountUseCase(store, log).Execute(ctx, entity.NewAccount{Name: "Expenses", Number: 200})

	_, err := NewAddJournalUseCase(store, nil, log).Execute(ctx, entity.NewJournal{
		Date:      date(),
		Narration: "Opening balance",
		Lines: []entity.LineInput{
			{Type: entity.LineDebit, Amount: amount("101"), AccountID: cash},
			{Type: entity.LineCredit, Amount: amount("100"), AccountID: expenses},
		},
	})

	var unbalanced *entity.UnbalancedJournalError
	if !errors.As(err, &unbalanced) {
		t.Fatalf("Execute() error = %v, want *UnbalancedJournalError", err)
	}
	if !unbalanced.Debit.Equal(amount("101")) || !unbalanced.Credit.Equal(amount("100")) {
		t.Errorf("totals = %s/%s, want 101/100", unbalanced.Debit, unbalanced.Credit)
	}
	if _, err := store.GetJournal(ctx, unbalanced.Attempt); !errors.Is(err, entity.ErrJournalNotFound) {
		t.Errorf("GetJournal(attempt) error = %v, want not found", err)
	}
}

func TestAddJournalUseCase_CancelledContext(t *testing.T) {
	store := repository.NewInMemoryLedger(logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAddJournalUseCase(store, nil, logger.NewNop()).Execute(ctx, entity.NewJournal{
		Date: date(),
		Lines: []entity.LineInput{
			{Type: entity.LineDebit, Amount: amount("1"), AccountID: uuid.New()},
			{Type: entity.LineCredit, Amount: amount("1"), AccountID: uuid.New()},
		},
	})
	if !entity.IsRetryable(err) {
		t.Errorf("Execute() error = %v, want storage unavailable", err)
	}
}

// Random line sets: a journal commits exactly when its typed sums match, and
// the ledger-wide trial balance stays balanced throughout.
func TestAddJournalUseCase_BalanceProperty(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNop()
	store := repository.NewInMemoryLedger(log)
	rng := rand.New(rand.NewPCG(7, 42))

	accounts := make([]uuid.UUID, 4)
	for i := range accounts {
		id, err := NewAddAccountUseCase(store, log).Execute(ctx, entity.NewAccount{Name: "acc", Number: int64(100 * (i + 1))})
		if err != nil {
			t.Fatalf("AddAccount() error = %v", err)
		}
		accounts[i] = id
	}

	uc := NewAddJournalUseCase(store, nil, log)
	committed := 0
	for i := 0; i < 200; i++ {
		lines := make([]entity.LineInput, 1+rng.IntN(5))
		for j := range lines {
			lineType := entity.LineDebit
			if rng.IntN(2) == 0 {
				lineType = entity.LineCredit
			}
			lines[j] = entity.LineInput{
				Type:      lineType,
				Amount:    decimal.New(int64(1+rng.IntN(5)), -1),
				AccountID: accounts[rng.IntN(len(accounts))],
			}
		}
		totals := entity.SumLines(lines)

		_, err := uc.Execute(ctx, entity.NewJournal{Date: date(), Lines: lines})
		if totals.Debit.Equal(totals.Credit) {
			if err != nil {
				t.Fatalf("balanced journal %d rejected: %v", i, err)
			}
			committed++
		} else if !errors.Is(err, entity.ErrUnbalancedJournal) {
			t.Fatalf("unbalanced journal %d: error = %v", i, err)
		}
	}

	journals, _ := store.ListJournals(ctx)
	if len(journals) != committed {
		t.Errorf("store holds %d journals, want %d", len(journals), committed)
	}
	tb, err := NewGetTrialBalanceUseCase(store).Execute(ctx)
	if err != nil {
		t.Fatalf("trial balance error = %v", err)
	}
	if !tb.Balanced() {
		t.Errorf("trial balance not balanced: %s vs %s", tb.TotalDebit, tb.TotalCredit)
	}
}
