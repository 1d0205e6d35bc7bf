package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledger.com/internal/infrastructure/logger"
	"ledger.com/internal/infrastructure/repository/postgres"
)

var migrateCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "migrate",
	Short: "Create or drop the PostgreSQL ledger schema.",
}

func newMigrateCmd(direction postgres.Direction, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(direction),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Store.Driver != "postgres" {
				return fmt.Errorf("migrate needs store.driver postgres, got %q", cfg.Store.Driver)
			}
			return postgres.Migrate(cfg.Store.DSN, direction, logger.NewLogger(cfg.Log.Level))
		},
	}
}

func init() { //nolint:gochecknoinits
	migrateCmd.AddCommand(
		newMigrateCmd(postgres.Up, "Apply every pending migration."),
		newMigrateCmd(postgres.Down, "Revert every migration, dropping the ledger tables."),
	)
	rootCmd.AddCommand(migrateCmd)
}
