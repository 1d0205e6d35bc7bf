package payload

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"ledger.com/internal/domain/entity"
)

func TestDecodeAccount(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    entity.NewAccount
		wantErr error
	}{
		{
			name: "valid account",
			body: `{"name":"Revenues","number":100}`,
			want: entity.NewAccount{Name: "Revenues", Number: 100},
		},
		{
			name:    "missing name",
			body:    `{"number":100}`,
			wantErr: entity.ErrInvalidAccount,
		},
		{
			name:    "negative number",
			body:    `{"name":"Revenues","number":-1}`,
			wantErr: entity.ErrInvalidAccount,
		},
		{
			name:    "unknown field",
			body:    `{"name":"Revenues","number":100,"currency":"EUR"}`,
			wantErr: entity.ErrInvalidAccount,
		},
		{
			name:    "number as string",
			body:    `{"name":"Revenues","number":"100"}`,
			wantErr: entity.ErrInvalidAccount,
		},
		{
			name:    "empty body",
			body:    ``,
			wantErr: entity.ErrInvalidAccount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAccount(strings.NewReader(tt.body))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("DecodeAccount() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeAccount() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeAccount() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeJournal(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	tests := []struct {
		name      string
		body      string
		wantErr   error
		wantIndex int
		wantField string
	}{
		{
			name: "valid journal with string and number amounts",
			body: `{"date":"2020-01-01","narration":"Sale of goods","lines":[
				{"type":"credit","amount":"100.50","account_id":"` + a.String() + `"},
				{"type":"debit","amount":100.5,"account_id":"` + b.String() + `"}]}`,
		},
		{
			name:    "missing date",
			body:    `{"narration":"x","lines":[{"type":"debit","amount":"1","account_id":"` + a.String() + `"}]}`,
			wantErr: entity.ErrInvalidJournal,
		},
		{
			name:    "bad date",
			body:    `{"date":"01/01/2020","lines":[{"type":"debit","amount":"1","account_id":"` + a.String() + `"}]}`,
			wantErr: entity.ErrInvalidJournal,
		},
		{
			name:    "no lines",
			body:    `{"date":"2020-01-01","lines":[]}`,
			wantErr: entity.ErrInvalidJournal,
		},
		{
			name:    "unknown header field",
			body:    `{"date":"2020-01-01","currency":"EUR","lines":[{"type":"debit","amount":"1","account_id":"` + a.String() + `"}]}`,
			wantErr: entity.ErrInvalidJournal,
		},
		{
			name: "extra field on a line",
			body: `{"date":"2020-01-01","lines":[
				{"type":"debit","amount":"1","account_id":"` + a.String() + `"},
				{"type":"credit","amount":"1","account_id":"` + b.String() + `","memo":"x"}]}`,
			wantErr:   entity.ErrInvalidLine,
			wantIndex: 1,
		},
		{
			name:      "missing account id",
			body:      `{"date":"2020-01-01","lines":[{"type":"debit","amount":"1"}]}`,
			wantErr:   entity.ErrInvalidLine,
			wantIndex: 0,
			wantField: "account_id",
		},
		{
			name:      "unknown type",
			body:      `{"date":"2020-01-01","lines":[{"type":"transfer","amount":"1","account_id":"` + a.String() + `"}]}`,
			wantErr:   entity.ErrInvalidLine,
			wantIndex: 0,
			wantField: "type",
		},
		{
			name: "zero amount",
			body: `{"date":"2020-01-01","lines":[
				{"type":"debit","amount":"1","account_id":"` + a.String() + `"},
				{"type":"credit","amount":"0","account_id":"` + b.String() + `"}]}`,
			wantErr:   entity.ErrInvalidLine,
			wantIndex: 1,
			wantField: "amount",
		},
		{
			name: "negative amount",
			body: `{"date":"2020-01-01","lines":[
				{"type":"debit","amount":-3,"account_id":"` + a.String() + `"}]}`,
			wantErr:   entity.ErrInvalidLine,
			wantIndex: 0,
			wantField: "amount",
		},
		{
			name:      "account id not a uuid",
			body:      `{"date":"2020-01-01","lines":[{"type":"debit","amount":"1","account_id":"100"}]}`,
			wantErr:   entity.ErrInvalidLine,
			wantIndex: 0,
			wantField: "account_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeJournal(strings.NewReader(tt.body))
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("DecodeJournal() error = %v", err)
				}
				if !got.Date.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)) {
					t.Errorf("Date = %v", got.Date)
				}
				if len(got.Lines) != 2 {
					t.Fatalf("Lines = %d, want 2", len(got.Lines))
				}
				if !got.Lines[0].Amount.Equal(got.Lines[1].Amount) {
					t.Errorf("amounts differ: %s vs %s", got.Lines[0].Amount, got.Lines[1].Amount)
				}
				if got.Lines[0].AccountID != a || got.Lines[1].Type != entity.LineDebit {
					t.Errorf("Lines = %+v", got.Lines)
				}
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("DecodeJournal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != entity.ErrInvalidLine {
				return
			}
			var lineErr *entity.LineError
			if !errors.As(err, &lineErr) {
				t.Fatalf("DecodeJournal() error = %T, want *entity.LineError", err)
			}
			if lineErr.Index != tt.wantIndex {
				t.Errorf("LineError.Index = %d, want %d", lineErr.Index, tt.wantIndex)
			}
			if tt.wantField != "" && lineErr.Field != tt.wantField {
				t.Errorf("LineError.Field = %q, want %q", lineErr.Field, tt.wantField)
			}
		})
	}
}
