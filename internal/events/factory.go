package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/BenniProbst/redcomponent-db-offloading/internal/config"
)

// ErrPublisherClosed is returned when publishing after Close
var ErrPublisherClosed = errors.New("event publisher is closed")

// NewPublisher creates the event publisher selected by the configuration.
// Supported types: memory, nats, redis, kafka, none.
func NewPublisher(cfg config.EventsConfig) (Publisher, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryPublisher(), nil
	case "nats":
		return NewNATSPublisher(cfg.URL, cfg.Username, cfg.Password)
	case "redis":
		return NewRedisPublisher(cfg.URL, cfg.Password, cfg.RedisDB, cfg.RedisStream)
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	case "none":
		return NopPublisher{}, nil
	default:
		return nil, fmt.Errorf("unsupported events type: %s", cfg.Type)
	}
}

// NopPublisher discards all events
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event OffloadEvent) error { return nil }
func (NopPublisher) Close() error                                          { return nil }
