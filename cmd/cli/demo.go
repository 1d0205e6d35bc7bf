package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"ledger.com/internal/domain/entity"
)

func newDemoCmd() *cobra.Command {
	var (
		unbalanced bool
		persist    bool
		format     string
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Register two accounts, post a sale and print the trial balance.",
		Long: `Register Revenues (100) and Expenses (200), post the "Sale of goods" journal
and print the trial balance. With --unbalanced a debit 101 / credit 100 journal
is attempted as well and must be rejected without touching the ledger.
The demo runs on a fresh in-memory store unless --persist is given.`,
		Args: cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return checkOutput(format)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !persist {
				cfg.Store.Driver = "memory"
			}

			a, err := bootstrap(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(ctx) }()

			revenues, err := a.addAccount.Execute(ctx, entity.NewAccount{Name: "Revenues", Number: 100})
			if err != nil {
				return err
			}
			expenses, err := a.addAccount.Execute(ctx, entity.NewAccount{Name: "Expenses", Number: 200})
			if err != nil {
				return err
			}

			date := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
			hundred := decimal.NewFromInt(100)
			journalID, err := a.addJournal.Execute(ctx, entity.NewJournal{
				Date:      date,
				Narration: "Sale of goods",
				Lines: []entity.LineInput{
					{Type: entity.LineCredit, Amount: hundred, AccountID: revenues},
					{Type: entity.LineDebit, Amount: hundred, AccountID: expenses},
				},
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "posted journal %s\n", journalID)

			if unbalanced {
				_, err := a.addJournal.Execute(ctx, entity.NewJournal{
					Date:      date,
					Narration: "Opening balance",
					Lines: []entity.LineInput{
						{Type: entity.LineDebit, Amount: decimal.NewFromInt(101), AccountID: revenues},
						{Type: entity.LineCredit, Amount: hundred, AccountID: expenses},
					},
				})
				var ue *entity.UnbalancedJournalError
				if !errors.As(err, &ue) {
					return fmt.Errorf("expected an unbalanced journal rejection, got %v", err)
				}
				_, _ = fmt.Fprintf(out, "rejected journal: %v\n", ue)
			}

			tb, err := a.getTrialBalance.Execute(ctx)
			if err != nil {
				return err
			}
			return printTrialBalance(out, format, tb)
		},
	}
	cmd.Flags().BoolVar(&unbalanced, "unbalanced", false, "also attempt an unbalanced journal")
	cmd.Flags().BoolVar(&persist, "persist", false, "use the configured store instead of a fresh in-memory one")
	cmd.Flags().StringVarP(&format, "output", "o", outputTable, "output format: table or json")
	return cmd
}

func init() { //nolint:gochecknoinits
	rootCmd.AddCommand(newDemoCmd())
}
