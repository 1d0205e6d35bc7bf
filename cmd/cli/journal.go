package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ledger.com/internal/infrastructure/payload"
)

var journalCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "journal",
	Short: "Post and list journals.",
}

func newJournalPostCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post a journal read from a JSON document.",
		Long: `Post a journal read from a JSON document of the form
{"date":"2020-01-01","narration":"...","lines":[{"type":"debit","amount":"100","account_id":"..."}]}.
Use --file - to read from stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var r io.Reader = cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("failed to open journal file: %w", err)
				}
				defer f.Close()
				r = f
			}

			input, err := payload.DecodeJournal(r)
			if err != nil {
				return err
			}

			return withApp(cmd.Context(), func(a *app) error {
				id, err := a.addJournal.Execute(cmd.Context(), input)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "journal JSON file, - for stdin")
	return cmd
}

func newJournalListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List committed journals by date.",
		Args:  cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return checkOutput(format)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				journals, err := a.getJournal.List(cmd.Context())
				if err != nil {
					return err
				}
				return printJournals(cmd.OutOrStdout(), format, journals)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", outputTable, "output format: table or json")
	return cmd
}

func init() { //nolint:gochecknoinits
	journalCmd.AddCommand(newJournalPostCmd(), newJournalListCmd())
	rootCmd.AddCommand(journalCmd)
}
