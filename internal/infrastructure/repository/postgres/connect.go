package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"ledger.com/internal/infrastructure/logger"
)

// Config holds the connection settings of the PostgreSQL store
type Config struct {
	DSN            string
	MaxConns       int32
	ConnectRetries int
	RetryDelay     time.Duration
}

// Connect opens a pool and pings it, retrying with exponential backoff.
func Connect(ctx context.Context, cfg Config, log logger.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	retries := max(cfg.ConnectRetries, 1)
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}

	for attempt := 1; ; attempt++ {
		pool, err := ping(ctx, poolConfig)
		if err == nil {
			log.LogInfo(ctx, "Connected to database", "attempt", attempt)
			return pool, nil
		}
		if attempt >= retries {
			return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempt, err)
		}

		log.LogWarning(ctx, "Database connection failed, retrying",
			"attempt", attempt,
			"retry_in", delay.String(),
			"error", err.Error())

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func ping(ctx context.Context, poolConfig *pgxpool.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}
	return pool, nil
}
