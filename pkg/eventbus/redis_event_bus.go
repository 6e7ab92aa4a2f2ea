package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	redis "github.com/redis/go-redis/v9"

	"github.com/weftlabs/weft/pkg/events"
)

// RedisEventBus publishes and subscribes on Redis pub/sub channels named
// workflow:<id>:events. Delivery is best-effort: Redis pub/sub keeps no
// backlog, matching the transient contract of execution events.
type RedisEventBus struct {
	client redis.UniversalClient
	logger *slog.Logger
}

func NewRedisEventBus(client redis.UniversalClient, logger *slog.Logger) *RedisEventBus {
	return &RedisEventBus{
		client: client,
		logger: logger.With("module", "redis_event_bus"),
	}
}

func (b *RedisEventBus) Publish(ctx context.Context, workflowID string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.GetType(), err)
	}

	err = b.client.Publish(ctx, events.ChannelFor(workflowID), payload).Err()
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.GetType(), err)
	}

	return nil
}

func (b *RedisEventBus) Subscribe(ctx context.Context, workflowID string) (Subscription, error) {
	channel := events.ChannelFor(workflowID)
	pubsub := b.client.Subscribe(ctx, channel)

	// Force the SUBSCRIBE round trip so a bad connection surfaces here
	// instead of as a silently empty feed.
	_, err := pubsub.Receive(ctx)
	if err != nil {
		_ = pubsub.Close()

		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		out:    make(chan []byte, 64),
	}

	go sub.pump(ctx)

	return sub, nil
}

func (b *RedisEventBus) Close() error {
	return b.client.Close()
}

type redisSubscription struct {
	pubsub    *redis.PubSub
	out       chan []byte
	closeOnce sync.Once
}

func (s *redisSubscription) pump(ctx context.Context) {
	defer close(s.out)

	for msg := range s.pubsub.Channel() {
		select {
		case s.out <- []byte(msg.Payload):
		case <-ctx.Done():
			return
		}
	}
}

func (s *redisSubscription) Events() <-chan []byte {
	return s.out
}

func (s *redisSubscription) Close() error {
	var err error

	s.closeOnce.Do(func() {
		err = s.pubsub.Close()
	})

	return err
}
