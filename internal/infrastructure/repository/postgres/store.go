// Package postgres implements the ledger store on PostgreSQL through pgx.
//
// Identifiers and amounts travel as text in both directions so that no
// precision is lost between NUMERIC and decimal.Decimal.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"ledger.com/internal/domain/entity"
	"ledger.com/internal/domain/port"
	"ledger.com/internal/infrastructure/logger"
)

const (
	insertAccountSQL = `INSERT INTO accounts (id, number, name) VALUES ($1, $2, $3)`
	insertJournalSQL = `INSERT INTO journals (id, date, narration) VALUES ($1, $2, $3)`
	insertLineSQL    = `INSERT INTO journal_lines (id, journal_id, account_id, type, amount) VALUES ($1, $2, $3, $4, $5)`

	journalTotalsSQL = `
		SELECT COALESCE(SUM(amount) FILTER (WHERE type = 'debit'), 0)::text,
		       COALESCE(SUM(amount) FILTER (WHERE type = 'credit'), 0)::text
		  FROM journal_lines
		 WHERE journal_id = $1`

	trialBalanceSQL = `
		SELECT a.number, a.name,
		       COALESCE(SUM(l.amount) FILTER (WHERE l.type = 'debit'), 0)::text,
		       COALESCE(SUM(l.amount) FILTER (WHERE l.type = 'credit'), 0)::text
		  FROM accounts a
		  LEFT JOIN journal_lines l ON l.account_id = a.id
		 GROUP BY a.id, a.number, a.name
		 ORDER BY a.number`

	listAccountsSQL = `SELECT id::text, number, name FROM accounts ORDER BY number`
	listJournalsSQL = `SELECT id::text, date, narration FROM journals ORDER BY date, id`
	getJournalSQL   = `SELECT id::text, date, narration FROM journals WHERE id = $1`
	journalLinesSQL = `
		SELECT id::text, journal_id::text, account_id::text, type, amount::text
		  FROM journal_lines
		 WHERE journal_id = $1
		 ORDER BY id`
)

// Constraint names from the embedded migrations.
const (
	constraintNumberKey      = "accounts_number_key"
	constraintNumberPositive = "accounts_number_positive"
	constraintNamePresent    = "accounts_name_present"
	constraintJournalFK      = "journal_lines_journal_fkey"
	constraintAccountFK      = "journal_lines_account_fkey"
	constraintLineType       = "journal_lines_type_valid"
	constraintAmountPositive = "journal_lines_amount_positive"
	constraintBalanced       = "journal_balanced"
)

var _ port.LedgerStore = (*Store)(nil)

// Store implements port.LedgerStore on a pgx pool
type Store struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// NewStore wraps an open pool. Close closes the pool.
func NewStore(pool *pgxpool.Pool, logger logger.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

func (s *Store) Begin(ctx context.Context) (port.Tx, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return nil, entity.StorageError("begin", err)
	}
	return &pgTx{tx: tx}, nil
}

func (s *Store) AggregateTrialBalance(ctx context.Context) ([]entity.TrialBalanceRow, error) {
	rows, err := s.pool.Query(ctx, trialBalanceSQL)
	if err != nil {
		return nil, entity.StorageError("trial balance", err)
	}
	defer rows.Close()

	result := []entity.TrialBalanceRow{}
	for rows.Next() {
		var (
			row           entity.TrialBalanceRow
			debit, credit string
		)
		if err := rows.Scan(&row.AccountNumber, &row.AccountName, &debit, &credit); err != nil {
			return nil, entity.StorageError("trial balance", err)
		}
		if row.TotalDebit, err = decimal.NewFromString(debit); err != nil {
			return nil, entity.StorageError("trial balance", err)
		}
		if row.TotalCredit, err = decimal.NewFromString(credit); err != nil {
			return nil, entity.StorageError("trial balance", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, entity.StorageError("trial balance", err)
	}
	return result, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]entity.Account, error) {
	rows, err := s.pool.Query(ctx, listAccountsSQL)
	if err != nil {
		return nil, entity.StorageError("list accounts", err)
	}
	defer rows.Close()

	accounts := []entity.Account{}
	for rows.Next() {
		var (
			a  entity.Account
			id string
		)
		if err := rows.Scan(&id, &a.Number, &a.Name); err != nil {
			return nil, entity.StorageError("list accounts", err)
		}
		if a.ID, err = uuid.Parse(id); err != nil {
			return nil, entity.StorageError("list accounts", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, entity.StorageError("list accounts", err)
	}
	return accounts, nil
}

func (s *Store) ListJournals(ctx context.Context) ([]entity.Journal, error) {
	rows, err := s.pool.Query(ctx, listJournalsSQL)
	if err != nil {
		return nil, entity.StorageError("list journals", err)
	}
	defer rows.Close()

	journals := []entity.Journal{}
	for rows.Next() {
		j, err := scanJournal(rows)
		if err != nil {
			return nil, entity.StorageError("list journals", err)
		}
		journals = append(journals, j)
	}
	if err := rows.Err(); err != nil {
		return nil, entity.StorageError("list journals", err)
	}
	return journals, nil
}

func (s *Store) GetJournal(ctx context.Context, id uuid.UUID) (*entity.PostedJournal, error) {
	j, err := scanJournal(s.pool.QueryRow(ctx, getJournalSQL, id.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", entity.ErrJournalNotFound, id)
	}
	if err != nil {
		return nil, entity.StorageError("get journal", err)
	}

	rows, err := s.pool.Query(ctx, journalLinesSQL, id.String())
	if err != nil {
		return nil, entity.StorageError("get journal", err)
	}
	defer rows.Close()

	posted := &entity.PostedJournal{Journal: j, Lines: []entity.JournalLine{}}
	for rows.Next() {
		var lineID, journalID, accountID, lineType, amount string
		if err := rows.Scan(&lineID, &journalID, &accountID, &lineType, &amount); err != nil {
			return nil, entity.StorageError("get journal", err)
		}
		line := entity.JournalLine{Type: entity.LineType(lineType)}
		if line.ID, err = uuid.Parse(lineID); err != nil {
			return nil, entity.StorageError("get journal", err)
		}
		if line.JournalID, err = uuid.Parse(journalID); err != nil {
			return nil, entity.StorageError("get journal", err)
		}
		if line.AccountID, err = uuid.Parse(accountID); err != nil {
			return nil, entity.StorageError("get journal", err)
		}
		if line.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, entity.StorageError("get journal", err)
		}
		posted.Lines = append(posted.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, entity.StorageError("get journal", err)
	}
	return posted, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	s.logger.LogInfo(context.Background(), "Database pool closed")
	return nil
}

func scanJournal(row pgx.Row) (entity.Journal, error) {
	var (
		j  entity.Journal
		id string
	)
	if err := row.Scan(&id, &j.Date, &j.Narration); err != nil {
		return entity.Journal{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return entity.Journal{}, err
	}
	j.ID = parsed
	j.Date = entity.CalendarDate(j.Date)
	return j, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) InsertAccount(ctx context.Context, name string, number int64) (uuid.UUID, error) {
	id := uuid.New()
	if _, err := t.tx.Exec(ctx, insertAccountSQL, id.String(), number, name); err != nil {
		return uuid.Nil, translate("insert account", err)
	}
	return id, nil
}

func (t *pgTx) InsertJournal(ctx context.Context, date time.Time, narration string) (uuid.UUID, error) {
	id := uuid.New()
	if _, err := t.tx.Exec(ctx, insertJournalSQL, id.String(), date.Format(entity.DateLayout), narration); err != nil {
		return uuid.Nil, translate("insert journal", err)
	}
	return id, nil
}

// InsertJournalLines sends all lines in one batch round trip.
func (t *pgTx) InsertJournalLines(ctx context.Context, journalID uuid.UUID, lines []entity.LineInput) ([]uuid.UUID, error) {
	batch := &pgx.Batch{}
	ids := make([]uuid.UUID, len(lines))
	for i, line := range lines {
		ids[i] = uuid.New()
		batch.Queue(insertLineSQL,
			ids[i].String(),
			journalID.String(),
			line.AccountID.String(),
			string(line.Type),
			line.Amount.String(),
		)
	}

	br := t.tx.SendBatch(ctx, batch)
	for range lines {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return nil, translate("insert journal lines", err)
		}
	}
	if err := br.Close(); err != nil {
		return nil, translate("insert journal lines", err)
	}
	return ids, nil
}

func (t *pgTx) JournalTotals(ctx context.Context, journalID uuid.UUID) (entity.Totals, error) {
	var debit, credit string
	if err := t.tx.QueryRow(ctx, journalTotalsSQL, journalID.String()).Scan(&debit, &credit); err != nil {
		return entity.Totals{}, translate("journal totals", err)
	}

	var (
		totals entity.Totals
		err    error
	)
	if totals.Debit, err = decimal.NewFromString(debit); err != nil {
		return entity.Totals{}, entity.StorageError("journal totals", err)
	}
	if totals.Credit, err = decimal.NewFromString(credit); err != nil {
		return entity.Totals{}, entity.StorageError("journal totals", err)
	}
	return totals, nil
}

// Commit runs the deferred journal_balanced trigger.
func (t *pgTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return translate("commit", err)
	}
	return nil
}

func (t *pgTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err == nil || errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return entity.StorageError("rollback", err)
}

// translate maps constraint violations onto domain errors. Anything else is
// a storage failure.
func translate(op string, err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return entity.StorageError(op, err)
	}

	switch pgErr.ConstraintName {
	case constraintNumberKey:
		return fmt.Errorf("%w: %s", entity.ErrDuplicateAccountNumber, pgErr.Detail)
	case constraintNumberPositive, constraintNamePresent:
		return fmt.Errorf("%w: %s", entity.ErrInvalidAccount, pgErr.Message)
	case constraintAccountFK:
		return fmt.Errorf("%w: %s", entity.ErrUnknownAccount, pgErr.Detail)
	case constraintJournalFK:
		return fmt.Errorf("%w: %s", entity.ErrInvalidJournal, pgErr.Detail)
	case constraintLineType, constraintAmountPositive:
		return fmt.Errorf("%w: %s", entity.ErrInvalidLine, pgErr.Message)
	case constraintBalanced:
		return unbalanced(pgErr.Detail)
	}
	return entity.StorageError(op, err)
}

// unbalanced rebuilds the typed error from the trigger's DETAIL.
func unbalanced(detail string) error {
	fields := strings.Fields(detail)
	if len(fields) == 3 {
		id, idErr := uuid.Parse(fields[0])
		debit, debitErr := decimal.NewFromString(fields[1])
		credit, creditErr := decimal.NewFromString(fields[2])
		if idErr == nil && debitErr == nil && creditErr == nil {
			return &entity.UnbalancedJournalError{Attempt: id, Debit: debit, Credit: credit}
		}
	}
	return fmt.Errorf("%w: %s", entity.ErrUnbalancedJournal, detail)
}
