package postgres

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"ledger.com/internal/domain/entity"
)

func TestTranslate(t *testing.T) {
	attempt := uuid.New()

	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{
			name:    "duplicate account number",
			err:     &pgconn.PgError{Code: "23505", ConstraintName: constraintNumberKey, Detail: "Key (number)=(100) already exists."},
			wantErr: entity.ErrDuplicateAccountNumber,
		},
		{
			name:    "non positive number",
			err:     &pgconn.PgError{Code: "23514", ConstraintName: constraintNumberPositive},
			wantErr: entity.ErrInvalidAccount,
		},
		{
			name:    "unknown account",
			err:     &pgconn.PgError{Code: "23503", ConstraintName: constraintAccountFK},
			wantErr: entity.ErrUnknownAccount,
		},
		{
			name:    "unknown journal",
			err:     &pgconn.PgError{Code: "23503", ConstraintName: constraintJournalFK},
			wantErr: entity.ErrInvalidJournal,
		},
		{
			name:    "non positive amount",
			err:     &pgconn.PgError{Code: "23514", ConstraintName: constraintAmountPositive},
			wantErr: entity.ErrInvalidLine,
		},
		{
			name:    "deferred balance trigger",
			err:     &pgconn.PgError{Code: "23514", ConstraintName: constraintBalanced, Detail: attempt.String() + " 101 100"},
			wantErr: entity.ErrUnbalancedJournal,
		},
		{
			name:    "other postgres error",
			err:     &pgconn.PgError{Code: "57P01", Message: "terminating connection due to administrator command"},
			wantErr: entity.ErrStorageUnavailable,
		},
		{
			name:    "transport error",
			err:     errors.New("connection reset by peer"),
			wantErr: entity.ErrStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translate("op", tt.err)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("translate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestUnbalanced(t *testing.T) {
	attempt := uuid.New()

	err := unbalanced(attempt.String() + " 101.50 100")
	var ue *entity.UnbalancedJournalError
	if !errors.As(err, &ue) {
		t.Fatalf("unbalanced() error = %v, want *UnbalancedJournalError", err)
	}
	if ue.Attempt != attempt {
		t.Errorf("Attempt = %v, want %v", ue.Attempt, attempt)
	}
	if ue.Debit.String() != "101.5" || ue.Credit.String() != "100" {
		t.Errorf("totals = %s/%s, want 101.5/100", ue.Debit, ue.Credit)
	}

	err = unbalanced("garbled")
	if !errors.Is(err, entity.ErrUnbalancedJournal) {
		t.Errorf("unbalanced() error = %v, want ErrUnbalancedJournal", err)
	}
	if errors.As(err, &ue) {
		t.Errorf("unbalanced() returned typed error for garbled detail")
	}
}

func TestMigrationFilesEmbedded(t *testing.T) {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("embedded %d migration files, want 4", len(entries))
	}
}
