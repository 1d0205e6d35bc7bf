package entity

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestNewAccount_Validate(t *testing.T) {
	tests := []struct {
		name    string
		input   NewAccount
		wantErr error
	}{
		{
			name:    "valid account",
			input:   NewAccount{Name: "Revenues", Number: 100},
			wantErr: nil,
		},
		{
			name:    "blank name",
			input:   NewAccount{Name: "   ", Number: 100},
			wantErr: ErrInvalidAccount,
		},
		{
			name:    "zero number",
			input:   NewAccount{Name: "Revenues", Number: 0},
			wantErr: ErrInvalidAccount,
		},
		{
			name:    "negative number",
			input:   NewAccount{Name: "Revenues", Number: -5},
			wantErr: ErrInvalidAccount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewAccount.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewJournal_Validate(t *testing.T) {
	account := uuid.New()
	date := time.Date(2020, 1, 1, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		journal   NewJournal
		wantErr   error
		wantIndex int
	}{
		{
			name: "valid journal",
			journal: NewJournal{
				Date: date,
				Lines: []LineInput{
					{Type: LineDebit, Amount: decimal.NewFromInt(100), AccountID: account},
					{Type: LineCredit, Amount: decimal.NewFromInt(100), AccountID: account},
				},
			},
		},
		{
			name:    "missing date",
			journal: NewJournal{Lines: []LineInput{{Type: LineDebit, Amount: decimal.NewFromInt(1), AccountID: account}}},
			wantErr: ErrInvalidJournal,
		},
		{
			name:    "no lines",
			journal: NewJournal{Date: date},
			wantErr: ErrInvalidJournal,
		},
		{
			name: "zero amount",
			journal: NewJournal{
				Date: date,
				Lines: []LineInput{
					{Type: LineDebit, Amount: decimal.NewFromInt(100), AccountID: account},
					{Type: LineCredit, Amount: decimal.Zero, AccountID: account},
				},
			},
			wantErr:   ErrInvalidLine,
			wantIndex: 1,
		},
		{
			name: "negative amount",
			journal: NewJournal{
				Date:  date,
				Lines: []LineInput{{Type: LineDebit, Amount: decimal.NewFromInt(-1), AccountID: account}},
			},
			wantErr: ErrInvalidLine,
		},
		{
			name: "unknown type",
			journal: NewJournal{
				Date:  date,
				Lines: []LineInput{{Type: "transfer", Amount: decimal.NewFromInt(1), AccountID: account}},
			},
			wantErr: ErrInvalidLine,
		},
		{
			name: "missing account",
			journal: NewJournal{
				Date:  date,
				Lines: []LineInput{{Type: LineCredit, Amount: decimal.NewFromInt(1)}},
			},
			wantErr: ErrInvalidLine,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.journal.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewJournal.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			var lineErr *LineError
			if errors.As(err, &lineErr) && lineErr.Index != tt.wantIndex {
				t.Errorf("LineError.Index = %d, want %d", lineErr.Index, tt.wantIndex)
			}
			if err == nil && !tt.journal.Date.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)) {
				t.Errorf("Date = %v, want calendar date 2020-01-01", tt.journal.Date)
			}
		})
	}
}

func TestTotals_Check(t *testing.T) {
	account := uuid.New()
	line := func(lt LineType, amount string) LineInput {
		return LineInput{Type: lt, Amount: decimal.RequireFromString(amount), AccountID: account}
	}

	tests := []struct {
		name    string
		lines   []LineInput
		wantErr bool
	}{
		{
			name:  "two line journal",
			lines: []LineInput{line(LineDebit, "100"), line(LineCredit, "100")},
		},
		{
			name:  "split credit",
			lines: []LineInput{line(LineDebit, "100"), line(LineCredit, "60.25"), line(LineCredit, "39.75")},
		},
		{
			name:    "single debit line",
			lines:   []LineInput{line(LineDebit, "100")},
			wantErr: true,
		},
		{
			name:    "single credit line",
			lines:   []LineInput{line(LineCredit, "100")},
			wantErr: true,
		},
		{
			name:    "off by one",
			lines:   []LineInput{line(LineDebit, "101"), line(LineCredit, "100")},
			wantErr: true,
		},
		{
			name:    "debits only",
			lines:   []LineInput{line(LineDebit, "50"), line(LineDebit, "50")},
			wantErr: true,
		},
		{
			name:  "precision kept",
			lines: []LineInput{line(LineDebit, "0.1"), line(LineDebit, "0.2"), line(LineCredit, "0.3")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempt := uuid.New()
			err := SumLines(tt.lines).Check(attempt)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Totals.Check() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			var unbalanced *UnbalancedJournalError
			if !errors.As(err, &unbalanced) {
				t.Fatalf("error %v is not an UnbalancedJournalError", err)
			}
			if unbalanced.Attempt != attempt {
				t.Errorf("Attempt = %v, want %v", unbalanced.Attempt, attempt)
			}
			if !errors.Is(err, ErrUnbalancedJournal) {
				t.Errorf("errors.Is(err, ErrUnbalancedJournal) = false")
			}
		})
	}
}

// Random line sets are accepted exactly when the typed sums match.
func TestTotals_CheckRandomLineSets(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	account := uuid.New()

	for i := 0; i < 500; i++ {
		var lines []LineInput
		var debit, credit decimal.Decimal
		n := 1 + rng.IntN(8)
		for j := 0; j < n; j++ {
			amount := decimal.New(1+rng.Int64N(100000), -2)
			lt := LineDebit
			if rng.IntN(2) == 0 {
				lt = LineCredit
			}
			if lt == LineDebit {
				debit = debit.Add(amount)
			} else {
				credit = credit.Add(amount)
			}
			lines = append(lines, LineInput{Type: lt, Amount: amount, AccountID: account})
		}
		// Every other set is completed with the exact offsetting line.
		if i%2 == 0 {
			diff := debit.Sub(credit)
			switch {
			case diff.IsPositive():
				lines = append(lines, LineInput{Type: LineCredit, Amount: diff, AccountID: account})
				credit = credit.Add(diff)
			case diff.IsNegative():
				lines = append(lines, LineInput{Type: LineDebit, Amount: diff.Neg(), AccountID: account})
				debit = debit.Add(diff.Neg())
			}
		}

		err := SumLines(lines).Check(uuid.New())
		if want := debit.Equal(credit); (err == nil) != want {
			t.Fatalf("set %d: Check() error = %v, balanced = %v (debit %s, credit %s)", i, err, want, debit, credit)
		}
	}
}

func TestTrialBalance_Totals(t *testing.T) {
	tb := NewTrialBalance([]TrialBalanceRow{
		{AccountNumber: 100, AccountName: "A", TotalDebit: decimal.Zero, TotalCredit: decimal.NewFromInt(100)},
		{AccountNumber: 200, AccountName: "B", TotalDebit: decimal.NewFromInt(100), TotalCredit: decimal.Zero},
	})
	if !tb.TotalDebit.Equal(decimal.NewFromInt(100)) || !tb.TotalCredit.Equal(decimal.NewFromInt(100)) {
		t.Errorf("totals = %s/%s, want 100/100", tb.TotalDebit, tb.TotalCredit)
	}
	if !tb.Balanced() {
		t.Error("Balanced() = false, want true")
	}
	if empty := NewTrialBalance(nil); empty.Rows == nil || !empty.Balanced() {
		t.Errorf("empty trial balance = %+v, want non-nil rows and balanced", empty)
	}
}
