package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format journals are exchanged in.
const DateLayout = "2006-01-02"

// LineType is the side of a journal line.
type LineType string

const (
	LineDebit  LineType = "debit"
	LineCredit LineType = "credit"
)

// Valid reports whether t is one of the two posting sides.
func (t LineType) Valid() bool {
	return t == LineDebit || t == LineCredit
}

// Journal is the header of one atomic financial event
type Journal struct {
	ID        uuid.UUID `json:"id"`
	Date      time.Time `json:"date"`
	Narration string    `json:"narration"`
}

// JournalLine is one debit or credit of a committed journal
type JournalLine struct {
	ID        uuid.UUID       `json:"id"`
	JournalID uuid.UUID       `json:"journal_id"`
	AccountID uuid.UUID       `json:"account_id"`
	Type      LineType        `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
}

// PostedJournal is a committed journal together with its lines
type PostedJournal struct {
	Journal
	Lines []JournalLine `json:"lines"`
}

// Totals returns the typed sums of the committed lines.
func (p *PostedJournal) Totals() Totals {
	var t Totals
	for _, l := range p.Lines {
		t = t.Add(l.Type, l.Amount)
	}
	return t
}

// LineInput is a journal line as submitted for posting
type LineInput struct {
	Type      LineType
	Amount    decimal.Decimal
	AccountID uuid.UUID
}

// Validate checks the fixed shape of a line. index is reported back in the error.
func (l LineInput) Validate(index int) error {
	if !l.Type.Valid() {
		return &LineError{Index: index, Field: "type", Reason: fmt.Sprintf("must be %q or %q, got %q", LineDebit, LineCredit, l.Type)}
	}
	if !l.Amount.IsPositive() {
		return &LineError{Index: index, Field: "amount", Reason: "must be greater than zero"}
	}
	if l.AccountID == uuid.Nil {
		return &LineError{Index: index, Field: "account_id", Reason: "is required"}
	}
	return nil
}

// NewJournal is the input of the posting engine
type NewJournal struct {
	Date      time.Time
	Narration string
	Lines     []LineInput
}

// Validate validates the header and every line. It does not check the balance:
// that happens against the rows written inside the posting transaction.
func (j *NewJournal) Validate() error {
	if j.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidJournal)
	}
	if len(j.Lines) == 0 {
		return fmt.Errorf("%w: at least one line is required", ErrInvalidJournal)
	}
	for i, line := range j.Lines {
		if err := line.Validate(i); err != nil {
			return err
		}
	}
	j.Date = CalendarDate(j.Date)
	return nil
}

// CalendarDate drops the clock part of t, keeping its calendar day in UTC.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a DateLayout string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Totals are the typed sums of one journal's lines.
type Totals struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Add accumulates one line into the totals.
func (t Totals) Add(lineType LineType, amount decimal.Decimal) Totals {
	switch lineType {
	case LineDebit:
		t.Debit = t.Debit.Add(amount)
	case LineCredit:
		t.Credit = t.Credit.Add(amount)
	}
	return t
}

// SumLines computes the totals of a set of lines.
func SumLines(lines []LineInput) Totals {
	var t Totals
	for _, l := range lines {
		t = t.Add(l.Type, l.Amount)
	}
	return t
}

// Check enforces the balance invariant: both typed sums must be equal.
// attempt is reported in the error when they are not.
func (t Totals) Check(attempt uuid.UUID) error {
	if t.Debit.Equal(t.Credit) {
		return nil
	}
	return &UnbalancedJournalError{Attempt: attempt, Debit: t.Debit, Credit: t.Credit}
}
