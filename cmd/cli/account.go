package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledger.com/internal/domain/entity"
)

var accountCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "account",
	Short: "Register and list accounts.",
}

func newAccountAddCmd() *cobra.Command {
	var input entity.NewAccount

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register an account.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				id, err := a.addAccount.Execute(cmd.Context(), input)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&input.Name, "name", "", "account name")
	cmd.Flags().Int64Var(&input.Number, "number", 0, "unique positive account number")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("number")
	return cmd
}

func newAccountListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts by number.",
		Args:  cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return checkOutput(format)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				accounts, err := a.listAccounts.Execute(cmd.Context())
				if err != nil {
					return err
				}
				return printAccounts(cmd.OutOrStdout(), format, accounts)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", outputTable, "output format: table or json")
	return cmd
}

func init() { //nolint:gochecknoinits
	accountCmd.AddCommand(newAccountAddCmd(), newAccountListCmd())
	rootCmd.AddCommand(accountCmd)
}
