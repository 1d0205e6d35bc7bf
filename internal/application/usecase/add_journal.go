package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ledger.com/internal/domain/entity"
	"ledger.com/internal/domain/port"
	"ledger.com/internal/infrastructure/logger"
)

// AddJournalUseCase is the journal posting engine
type AddJournalUseCase struct {
	store     port.LedgerStore
	publisher port.EventPublisher
	logger    logger.Logger
	now       func() time.Time
}

// NewAddJournalUseCase creates a new AddJournalUseCase. publisher may be nil.
func NewAddJournalUseCase(
	store port.LedgerStore,
	publisher port.EventPublisher,
	logger logger.Logger,
) *AddJournalUseCase {
	return &AddJournalUseCase{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Execute posts a journal and all of its lines as one unit. The journal is
// committed only if the debit and credit totals of the lines written inside
// the transaction are equal; otherwise nothing from the attempt persists.
func (uc *AddJournalUseCase) Execute(ctx context.Context, input entity.NewJournal) (uuid.UUID, error) {
	ctx, span := tracer.Start(ctx, "ledger.add_journal",
		trace.WithAttributes(attribute.Int("journal.lines", len(input.Lines))))
	defer span.End()

	if err := input.Validate(); err != nil {
		recordError(span, err)
		return uuid.Nil, err
	}

	var (
		journalID uuid.UUID
		totals    entity.Totals
	)
	err := runInTx(ctx, uc.store, func(tx port.Tx) error {
		id, err := tx.InsertJournal(ctx, input.Date, input.Narration)
		if err != nil {
			return err
		}
		journalID = id

		if _, err := tx.InsertJournalLines(ctx, id, input.Lines); err != nil {
			return err
		}

		totals, err = tx.JournalTotals(ctx, id)
		if err != nil {
			return err
		}
		return totals.Check(id)
	})
	if err != nil {
		recordError(span, err)
		uc.logRejection(ctx, journalID, err)
		return uuid.Nil, err
	}

	span.SetAttributes(attribute.String("journal.id", journalID.String()))
	uc.logger.LogInfo(ctx, "Journal posted",
		"journal_id", journalID.String(),
		"date", input.Date.Format(entity.DateLayout),
		"lines", len(input.Lines),
		"debit", totals.Debit.String(),
		"credit", totals.Credit.String())

	uc.publish(ctx, journalID, input, totals)

	return journalID, nil
}

func (uc *AddJournalUseCase) logRejection(ctx context.Context, attempt uuid.UUID, err error) {
	if errors.Is(err, entity.ErrStorageUnavailable) {
		uc.logger.LogError(ctx, "Journal posting failed", err, "attempt", attempt.String())
		return
	}
	uc.logger.LogWarning(ctx, "Journal rejected",
		"attempt", attempt.String(),
		"error", err.Error())
}

// publish announces a committed journal. The journal is already durable, so
// a publishing failure is logged and never reported to the caller.
func (uc *AddJournalUseCase) publish(ctx context.Context, journalID uuid.UUID, input entity.NewJournal, totals entity.Totals) {
	if uc.publisher == nil {
		return
	}

	event := entity.JournalPostedEvent{
		EventType: entity.EventJournalPosted,
		JournalID: journalID,
		Date:      input.Date.Format(entity.DateLayout),
		Narration: input.Narration,
		Lines:     len(input.Lines),
		Debit:     totals.Debit,
		Credit:    totals.Credit,
		PostedAt:  uc.now().UTC(),
	}
	if err := uc.publisher.PublishJournalPosted(ctx, event); err != nil {
		uc.logger.LogError(ctx, "Failed to publish journal event", err,
			"journal_id", journalID.String())
	}
}
