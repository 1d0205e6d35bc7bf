package cli

import (
	"github.com/spf13/cobra"
)

func newTrialBalanceCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Print debit and credit totals per account.",
		Args:  cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return checkOutput(format)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				tb, err := a.getTrialBalance.Execute(cmd.Context())
				if err != nil {
					return err
				}
				return printTrialBalance(cmd.OutOrStdout(), format, tb)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", outputTable, "output format: table or json")
	return cmd
}

func init() { //nolint:gochecknoinits
	rootCmd.AddCommand(newTrialBalanceCmd())
}
