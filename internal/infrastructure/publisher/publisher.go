// Package publisher announces committed journals to external consumers.
package publisher

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"ledger.com/internal/domain/entity"
	"ledger.com/internal/domain/port"
	"ledger.com/internal/infrastructure/logger"
)

// Config selects and configures the event transport
type Config struct {
	Driver       string
	KafkaBrokers []string
	KafkaTopic   string
	RedisAddr    string
	RedisChannel string
}

// New builds the publisher named by cfg.Driver: "kafka", "redis", or "none".
func New(cfg Config, log logger.Logger) (port.EventPublisher, error) {
	switch cfg.Driver {
	case "", "none":
		return Nop{}, nil
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 || cfg.KafkaTopic == "" {
			return nil, fmt.Errorf("kafka publisher needs brokers and a topic")
		}
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log), nil
	case "redis":
		if cfg.RedisAddr == "" || cfg.RedisChannel == "" {
			return nil, fmt.Errorf("redis publisher needs an address and a channel")
		}
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return NewRedisPublisher(rdb, cfg.RedisChannel, log), nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}

// Nop discards every event
type Nop struct{}

func (Nop) PublishJournalPosted(context.Context, entity.JournalPostedEvent) error { return nil }

func (Nop) Close() error { return nil }
