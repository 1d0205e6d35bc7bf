// Package payload decodes and validates the JSON bodies accepted by the HTTP
// server and the CLI. Every field is fixed: unknown fields are rejected.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledger.com/internal/domain/entity"
)

// AccountRequest is the body of an account creation
type AccountRequest struct {
	Name   string `json:"name" validate:"required"`
	Number int64  `json:"number" validate:"required,gt=0"`
}

// LineRequest is one journal line as submitted
type LineRequest struct {
	Type      string      `json:"type" validate:"required,oneof=debit credit"`
	Amount    json.Number `json:"amount" validate:"required"`
	AccountID string      `json:"account_id" validate:"required,uuid"`
}

// JournalRequest is the body of a journal posting. Lines are decoded one by
// one so a failure can name the offending line.
type JournalRequest struct {
	Date      string            `json:"date" validate:"required,datetime=2006-01-02"`
	Narration string            `json:"narration" validate:"max=1000"`
	Lines     []json.RawMessage `json:"lines" validate:"required,min=1"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeAccount reads an AccountRequest and maps it to the registry input.
func DecodeAccount(r io.Reader) (entity.NewAccount, error) {
	var req AccountRequest
	if err := decodeStrict(r, &req); err != nil {
		return entity.NewAccount{}, fmt.Errorf("%w: %w", entity.ErrInvalidAccount, err)
	}
	if err := validate.Struct(req); err != nil {
		return entity.NewAccount{}, fmt.Errorf("%w: %s", entity.ErrInvalidAccount, describeAll(err))
	}
	return entity.NewAccount{Name: req.Name, Number: req.Number}, nil
}

// DecodeJournal reads a JournalRequest and maps it to the posting engine input.
// Header problems are ErrInvalidJournal; line problems are *entity.LineError.
func DecodeJournal(r io.Reader) (entity.NewJournal, error) {
	var req JournalRequest
	if err := decodeStrict(r, &req); err != nil {
		return entity.NewJournal{}, fmt.Errorf("%w: %w", entity.ErrInvalidJournal, err)
	}
	if err := validate.Struct(req); err != nil {
		return entity.NewJournal{}, fmt.Errorf("%w: %s", entity.ErrInvalidJournal, describeAll(err))
	}

	date, err := entity.ParseDate(req.Date)
	if err != nil {
		return entity.NewJournal{}, fmt.Errorf("%w: date: %v", entity.ErrInvalidJournal, err)
	}

	journal := entity.NewJournal{
		Date:      date,
		Narration: req.Narration,
		Lines:     make([]entity.LineInput, 0, len(req.Lines)),
	}
	for i, raw := range req.Lines {
		line, err := decodeLine(i, raw)
		if err != nil {
			return entity.NewJournal{}, err
		}
		journal.Lines = append(journal.Lines, line)
	}
	return journal, nil
}

func decodeLine(index int, raw json.RawMessage) (entity.LineInput, error) {
	var req LineRequest
	if err := decodeStrict(bytes.NewReader(raw), &req); err != nil {
		return entity.LineInput{}, &entity.LineError{Index: index, Reason: err.Error()}
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return entity.LineInput{}, &entity.LineError{Index: index, Field: verrs[0].Field(), Reason: describe(verrs[0])}
		}
		return entity.LineInput{}, &entity.LineError{Index: index, Reason: err.Error()}
	}

	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil {
		return entity.LineInput{}, &entity.LineError{Index: index, Field: "amount", Reason: "must be a decimal number"}
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return entity.LineInput{}, &entity.LineError{Index: index, Field: "account_id", Reason: "must be a UUID"}
	}

	line := entity.LineInput{Type: entity.LineType(req.Type), Amount: amount, AccountID: accountID}
	if err := line.Validate(index); err != nil {
		return entity.LineInput{}, err
	}
	return line, nil
}

// decodeStrict decodes exactly one JSON value with no unknown fields.
func decodeStrict(r io.Reader, dst any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

func describeAll(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Field()+" "+describe(fe))
	}
	sort.Strings(msgs)
	return strings.Join(msgs, "; ")
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "uuid":
		return "must be a UUID"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "min":
		return "must have at least " + fe.Param() + " item(s)"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "failed " + fe.Tag() + " validation"
}
