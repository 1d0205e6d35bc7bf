package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httphandler "ledger.com/internal/infrastructure/http"
	"ledger.com/internal/infrastructure/logger"
	"ledger.com/internal/infrastructure/repository/postgres"
)

var migrateOnStart bool //nolint:gochecknoglobals

var apiServerCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "server",
	Short: "Run API Server.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if migrateOnStart && cfg.Store.Driver == "postgres" {
			if err := postgres.Migrate(cfg.Store.DSN, postgres.Up, logger.NewLogger(cfg.Log.Level)); err != nil {
				return fmt.Errorf("failed to migrate schema: %w", err)
			}
		}

		a, err := bootstrap(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close(context.Background()) }()

		handler := httphandler.NewHandler(
			a.addAccount,
			a.listAccounts,
			a.addJournal,
			a.getJournal,
			a.getTrialBalance,
			a.logger,
		)

		// Create HTTP server
		addr := ":" + cfg.Server.Port
		server := &http.Server{
			Addr:         addr,
			Handler:      handler.SetupRoutes(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		}

		// Channel to capture termination signals
		signalChan := make(chan os.Signal, 1)
		signal.Notify(signalChan, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)

		// Error channel to capture errors from server
		errChan := make(chan error, 1)

		go func() {
			a.logger.LogInfo(ctx, "Starting server",
				"address", addr,
				"store", cfg.Store.Driver)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		// Graceful shutdown
		select {
		case <-signalChan:
			a.logger.LogInfo(ctx, "Received termination signal. Initiating graceful shutdown...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				a.logger.LogError(ctx, "Server forced to shutdown", err)
				return err
			}

			a.logger.LogInfo(ctx, "Server stopped gracefully")
		case err := <-errChan:
			a.logger.LogError(ctx, "Server error", err)
			return err
		}

		return nil
	},
}

func init() { //nolint:gochecknoinits
	apiServerCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply PostgreSQL migrations before serving")
	rootCmd.AddCommand(apiServerCmd)
}
