package port

import (
	"context"

	"ledger.com/internal/domain/entity"
)

// EventPublisher is the port for announcing committed journals
type EventPublisher interface {
	PublishJournalPosted(ctx context.Context, event entity.JournalPostedEvent) error
	Close() error
}
