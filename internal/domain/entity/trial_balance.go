package entity

import "github.com/shopspring/decimal"

// TrialBalanceRow is the debit and credit total of one account
type TrialBalanceRow struct {
	AccountNumber int64           `json:"account_number"`
	AccountName   string          `json:"account_name"`
	TotalDebit    decimal.Decimal `json:"total_debit"`
	TotalCredit   decimal.Decimal `json:"total_credit"`
}

// TrialBalance is the per-account summary across all posted journals, ordered by account number
type TrialBalance struct {
	Rows        []TrialBalanceRow `json:"accounts"`
	TotalDebit  decimal.Decimal   `json:"total_debit"`
	TotalCredit decimal.Decimal   `json:"total_credit"`
}

// NewTrialBalance derives the ledger-wide totals from rows.
func NewTrialBalance(rows []TrialBalanceRow) *TrialBalance {
	if rows == nil {
		rows = []TrialBalanceRow{}
	}
	tb := &TrialBalance{Rows: rows}
	for _, r := range rows {
		tb.TotalDebit = tb.TotalDebit.Add(r.TotalDebit)
		tb.TotalCredit = tb.TotalCredit.Add(r.TotalCredit)
	}
	return tb
}

// Balanced reports whether ledger-wide debits equal credits. It holds whenever
// every posted journal is balanced; nothing enforces it separately.
func (tb *TrialBalance) Balanced() bool {
	return tb.TotalDebit.Equal(tb.TotalCredit)
}
