package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"ledger.com/internal/domain/entity"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// checkOutput rejects --output values other than table and json.
func checkOutput(format string) error {
	switch format {
	case outputTable, outputJSON:
		return nil
	default:
		return fmt.Errorf("unknown output format %q: want %s or %s", format, outputTable, outputJSON)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTrialBalance(w io.Writer, format string, tb *entity.TrialBalance) error {
	if err := checkOutput(format); err != nil {
		return err
	}
	if format == outputJSON {
		return printJSON(w, tb)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprintln(tw, "NUMBER\tACCOUNT\tDEBIT\tCREDIT\t")
	for _, r := range tb.Rows {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t\n", r.AccountNumber, r.AccountName, r.TotalDebit, r.TotalCredit)
	}
	_, _ = fmt.Fprintf(tw, "\tTOTAL\t%s\t%s\t\n", tb.TotalDebit, tb.TotalCredit)
	if err := tw.Flush(); err != nil {
		return err
	}
	if !tb.Balanced() {
		_, _ = fmt.Fprintln(w, "warning: ledger-wide debits and credits differ")
	}
	return nil
}

func printAccounts(w io.Writer, format string, accounts []entity.Account) error {
	if err := checkOutput(format); err != nil {
		return err
	}
	if format == outputJSON {
		return printJSON(w, accounts)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NUMBER\tNAME\tID")
	for _, a := range accounts {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\n", a.Number, a.Name, a.ID)
	}
	return tw.Flush()
}

func printJournals(w io.Writer, format string, journals []entity.Journal) error {
	if err := checkOutput(format); err != nil {
		return err
	}
	if format == outputJSON {
		return printJSON(w, journals)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "DATE\tNARRATION\tID")
	for _, j := range journals {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", j.Date.Format(entity.DateLayout), j.Narration, j.ID)
	}
	return tw.Flush()
}
