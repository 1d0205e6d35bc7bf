package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventJournalPosted is the type of the event emitted after a journal commits.
const EventJournalPosted = "journal.posted"

// JournalPostedEvent is published once a journal and all its lines are committed
type JournalPostedEvent struct {
	EventType string          `json:"event_type"`
	JournalID uuid.UUID       `json:"journal_id"`
	Date      string          `json:"date"`
	Narration string          `json:"narration"`
	Lines     int             `json:"lines"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	PostedAt  time.Time       `json:"posted_at"`
}
