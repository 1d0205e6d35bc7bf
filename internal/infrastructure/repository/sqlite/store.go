// Package sqlite implements the ledger store on an embedded SQLite database.
//
// SQLite has no deferred constraint triggers with the semantics the ledger
// needs, so the transaction re-aggregates every journal it wrote just before
// COMMIT. Amounts are stored as decimal strings and summed in Go.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"ledger.com/internal/domain/entity"
	"ledger.com/internal/domain/port"
	"ledger.com/internal/infrastructure/logger"
)

//go:embed schema.sql
var schema string

var _ port.LedgerStore = (*Store)(nil)

// Store implements port.LedgerStore on SQLite
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

// New opens the database at path and creates the schema when missing.
// Use ":memory:" for a private in-memory database.
func New(path string, logger logger.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; also keeps ":memory:" on a single shared connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.LogDebug(context.Background(), "SQLite store opened", "path", path)
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Begin(ctx context.Context) (port.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, entity.StorageError("begin", err)
	}
	return &sqliteTx{tx: tx}, nil
}

func (s *Store) AggregateTrialBalance(ctx context.Context) ([]entity.TrialBalanceRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.number, a.name, l.type, l.amount
		  FROM accounts a
		  LEFT JOIN journal_lines l ON l.account_id = a.id
		 ORDER BY a.number`)
	if err != nil {
		return nil, entity.StorageError("trial balance", err)
	}
	defer rows.Close()

	result := []entity.TrialBalanceRow{}
	var current string
	for rows.Next() {
		var (
			id, name         string
			number           int64
			lineType, amount sql.NullString
		)
		if err := rows.Scan(&id, &number, &name, &lineType, &amount); err != nil {
			return nil, entity.StorageError("trial balance", err)
		}
		if id != current {
			current = id
			result = append(result, entity.TrialBalanceRow{AccountNumber: number, AccountName: name})
		}
		if !lineType.Valid {
			continue
		}

		value, err := decimal.NewFromString(amount.String)
		if err != nil {
			return nil, entity.StorageError("trial balance", err)
		}
		row := &result[len(result)-1]
		switch entity.LineType(lineType.String) {
		case entity.LineDebit:
			row.TotalDebit = row.TotalDebit.Add(value)
		case entity.LineCredit:
			row.TotalCredit = row.TotalCredit.Add(value)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, entity.StorageError("trial balance", err)
	}
	return result, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]entity.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, number, name FROM accounts ORDER BY number`)
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
	rows, err := s.db.QueryContext(ctx, `SELECT id, date, narration FROM journals ORDER BY date, id`)
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
	j, err := scanJournal(s.db.QueryRowContext(ctx,
		`SELECT id, date, narration FROM journals WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", entity.ErrJournalNotFound, id)
	}
	if err != nil {
		return nil, entity.StorageError("get journal", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, type, amount FROM journal_lines WHERE journal_id = ? ORDER BY id`, id.String())
	if err != nil {
		return nil, entity.StorageError("get journal", err)
	}
	defer rows.Close()

	posted := &entity.PostedJournal{Journal: j, Lines: []entity.JournalLine{}}
	for rows.Next() {
		var lineID, accountID, lineType, amount string
		if err := rows.Scan(&lineID, &accountID, &lineType, &amount); err != nil {
			return nil, entity.StorageError("get journal", err)
		}
		line := entity.JournalLine{JournalID: id, Type: entity.LineType(lineType)}
		if line.ID, err = uuid.Parse(lineID); err != nil {
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
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJournal(row scanner) (entity.Journal, error) {
	var j entity.Journal
	var id, date string
	if err := row.Scan(&id, &date, &j.Narration); err != nil {
		return entity.Journal{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return entity.Journal{}, err
	}
	day, err := entity.ParseDate(date)
	if err != nil {
		return entity.Journal{}, err
	}
	j.ID, j.Date = parsed, day
	return j, nil
}

type sqliteTx struct {
	tx       *sql.Tx
	journals []uuid.UUID
}

func (t *sqliteTx) InsertAccount(ctx context.Context, name string, number int64) (uuid.UUID, error) {
	id := uuid.New()
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO accounts (id, number, name) VALUES (?, ?, ?)`, id.String(), number, name)
	if err != nil {
		return uuid.Nil, translate("insert account", err, entity.ErrInvalidAccount)
	}
	return id, nil
}

func (t *sqliteTx) InsertJournal(ctx context.Context, date time.Time, narration string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO journals (id, date, narration) VALUES (?, ?, ?)`, id.String(), date.Format(entity.DateLayout), narration)
	if err != nil {
		return uuid.Nil, translate("insert journal", err, entity.ErrInvalidJournal)
	}
	t.journals = append(t.journals, id)
	return id, nil
}

func (t *sqliteTx) InsertJournalLines(ctx context.Context, journalID uuid.UUID, lines []entity.LineInput) ([]uuid.UUID, error) {
	var exists int
	err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM journals WHERE id = ?`, journalID.String()).Scan(&exists)
	if err != nil {
		return nil, entity.StorageError("insert journal lines", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: journal %s does not exist", entity.ErrInvalidJournal, journalID)
	}

	stmt, err := t.tx.PrepareContext(ctx,
		`INSERT INTO journal_lines (id, journal_id, account_id, type, amount) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, entity.StorageError("insert journal lines", err)
	}
	defer stmt.Close()

	ids := make([]uuid.UUID, len(lines))
	for i, line := range lines {
		ids[i] = uuid.New()
		_, err := stmt.ExecContext(ctx,
			ids[i].String(), journalID.String(), line.AccountID.String(), string(line.Type), line.Amount.String())
		if err != nil {
			return nil, translate("insert journal lines", err, entity.ErrInvalidLine)
		}
	}
	return ids, nil
}

func (t *sqliteTx) JournalTotals(ctx context.Context, journalID uuid.UUID) (entity.Totals, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT type, amount FROM journal_lines WHERE journal_id = ?`, journalID.String())
	if err != nil {
		return entity.Totals{}, entity.StorageError("journal totals", err)
	}
	defer rows.Close()

	var totals entity.Totals
	for rows.Next() {
		var lineType, amount string
		if err := rows.Scan(&lineType, &amount); err != nil {
			return entity.Totals{}, entity.StorageError("journal totals", err)
		}
		value, err := decimal.NewFromString(amount)
		if err != nil {
			return entity.Totals{}, entity.StorageError("journal totals", err)
		}
		totals = totals.Add(entity.LineType(lineType), value)
	}
	if err := rows.Err(); err != nil {
		return entity.Totals{}, entity.StorageError("journal totals", err)
	}
	return totals, nil
}

// Commit checks every journal written in this transaction before committing.
func (t *sqliteTx) Commit(ctx context.Context) error {
	for _, id := range t.journals {
		totals, err := t.JournalTotals(ctx, id)
		if err == nil {
			err = totals.Check(id)
		}
		if err != nil {
			_ = t.tx.Rollback()
			return err
		}
	}
	if err := t.tx.Commit(); err != nil {
		return entity.StorageError("commit", err)
	}
	return nil
}

func (t *sqliteTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback()
	if err == nil || errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return entity.StorageError("rollback", err)
}

// translate maps SQLite constraint failures onto domain errors. checkErr is
// the class reported for CHECK violations of the statement at hand.
func translate(op string, err error, checkErr error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return entity.StorageError(op, err)
	}

	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique:
		return fmt.Errorf("%w: %s", entity.ErrDuplicateAccountNumber, sqliteErr.Error())
	case sqlite3.ErrConstraintForeignKey:
		return fmt.Errorf("%w: %s", entity.ErrUnknownAccount, sqliteErr.Error())
	case sqlite3.ErrConstraintCheck, sqlite3.ErrConstraintNotNull:
		return fmt.Errorf("%w: %s", checkErr, sqliteErr.Error())
	}
	return entity.StorageError(op, err)
}
