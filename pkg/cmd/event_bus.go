package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	redis "github.com/redis/go-redis/v9"

	"github.com/weftlabs/weft/pkg/channels/gochannel"
	"github.com/weftlabs/weft/pkg/channels/kafka"
	"github.com/weftlabs/weft/pkg/eventbus"
)

// NewEventBus creates an event bus for the given provider. The redis
// provider shares the given client; gochannel is in-process only and meant
// for single-binary setups and tests.
func NewEventBus(provider string, client redis.UniversalClient, logger *slog.Logger) (eventbus.EventBus, error) {
	switch provider {
	case "redis":
		return eventbus.NewRedisEventBus(client, logger), nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), "weft")
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "gochannel":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create gochannel pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
