package cli

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"ledger.com/internal/application/usecase"
	"ledger.com/internal/domain/port"
	"ledger.com/internal/infrastructure/config"
	"ledger.com/internal/infrastructure/logger"
	"ledger.com/internal/infrastructure/publisher"
	"ledger.com/internal/infrastructure/repository"
	"ledger.com/internal/infrastructure/repository/postgres"
	"ledger.com/internal/infrastructure/repository/sqlite"
)

// app is the explicitly constructed ledger: one store, one publisher and
// the use cases over them. Nothing is shared between apps.
type app struct {
	cfg       *config.Config
	logger    logger.Logger
	store     port.LedgerStore
	publisher port.EventPublisher
	tracer    *sdktrace.TracerProvider

	addAccount      *usecase.AddAccountUseCase
	listAccounts    *usecase.ListAccountsUseCase
	addJournal      *usecase.AddJournalUseCase
	getJournal      *usecase.GetJournalUseCase
	getTrialBalance *usecase.GetTrialBalanceUseCase
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// bootstrap wires the store and publisher selected by cfg into the use cases.
func bootstrap(ctx context.Context, cfg *config.Config) (*app, error) {
	appLogger := logger.NewLogger(cfg.Log.Level)

	// Spans are created without an exporter so log lines carry trace ids.
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	store, err := openStore(ctx, cfg, appLogger)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	pub, err := publisher.New(publisher.Config{
		Driver:       cfg.Events.Driver,
		KafkaBrokers: cfg.Events.Kafka.Brokers,
		KafkaTopic:   cfg.Events.Kafka.Topic,
		RedisAddr:    cfg.Events.Redis.Addr,
		RedisChannel: cfg.Events.Redis.Channel,
	}, appLogger)
	if err != nil {
		_ = store.Close()
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create event publisher: %w", err)
	}

	appLogger.LogInfo(ctx, "Ledger initialised",
		"store", cfg.Store.Driver,
		"events", cfg.Events.Driver)

	return &app{
		cfg:             cfg,
		logger:          appLogger,
		store:           store,
		publisher:       pub,
		tracer:          tp,
		addAccount:      usecase.NewAddAccountUseCase(store, appLogger),
		listAccounts:    usecase.NewListAccountsUseCase(store),
		addJournal:      usecase.NewAddJournalUseCase(store, pub, appLogger),
		getJournal:      usecase.NewGetJournalUseCase(store),
		getTrialBalance: usecase.NewGetTrialBalanceUseCase(store),
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (port.LedgerStore, error) {
	switch cfg.Store.Driver {
	case "memory":
		return repository.NewInMemoryLedger(log), nil
	case "postgres":
		pool, err := postgres.Connect(ctx, postgres.Config{
			DSN:            cfg.Store.DSN,
			MaxConns:       cfg.Store.MaxConns,
			ConnectRetries: cfg.Store.ConnectRetries,
			RetryDelay:     cfg.Store.RetryDelay,
		}, log)
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(pool, log), nil
	case "sqlite":
		store, err := sqlite.New(cfg.Store.Path, log)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// Close releases the publisher, the store and the tracer provider.
func (a *app) Close(ctx context.Context) error {
	err := errors.Join(
		a.publisher.Close(),
		a.store.Close(),
		a.tracer.Shutdown(ctx),
	)
	_ = a.logger.Sync()
	return err
}

// withApp loads the config, bootstraps the ledger and runs fn against it.
func withApp(ctx context.Context, fn func(a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.WithoutCancel(ctx)) }()
	return fn(a)
}
