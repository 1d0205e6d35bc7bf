package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"ledger.com/internal/domain/entity"
	"ledger.com/internal/infrastructure/logger"
)

// RedisPublisher announces journal events on a Redis pub/sub channel
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
	logger  logger.Logger
}

// NewRedisPublisher creates a publisher on an existing client. Close closes the client.
func NewRedisPublisher(rdb *redis.Client, channel string, logger logger.Logger) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel, logger: logger}
}

func (p *RedisPublisher) PublishJournalPosted(ctx context.Context, event entity.JournalPostedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	receivers, err := p.rdb.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.LogDebug(ctx, "Journal event published",
		"transport", "redis",
		"channel", p.channel,
		"journal_id", event.JournalID.String(),
		"receivers", receivers)
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}
