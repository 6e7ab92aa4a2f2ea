package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/weftlabs/weft/pkg/events"
)

// WatermillEventBus adapts any watermill publisher/subscriber pair to the
// event bus contract, using the per-workflow channel name as the topic.
// Used with the gochannel transport for development and tests, and with the
// Kafka transport where Redis pub/sub is not available.
type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber) *WatermillEventBus {
	return &WatermillEventBus{
		publisher:  pub,
		subscriber: sub,
	}
}

func (b *WatermillEventBus) Publish(_ context.Context, workflowID string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.GetType(), err)
	}

	msg := message.NewMessage(watermill.NewULID(), payload)
	msg.Metadata.Set("event_type", string(event.GetType()))

	return b.publisher.Publish(events.ChannelFor(workflowID), msg)
}

func (b *WatermillEventBus) Subscribe(ctx context.Context, workflowID string) (Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)

	messages, err := b.subscriber.Subscribe(ctx, events.ChannelFor(workflowID))
	if err != nil {
		cancel()

		return nil, fmt.Errorf("failed to subscribe to workflow %s events: %w", workflowID, err)
	}

	sub := &watermillSubscription{
		cancel: cancel,
		out:    make(chan []byte, 64),
		done:   make(chan struct{}),
	}

	go sub.pump(messages)

	return sub, nil
}

func (b *WatermillEventBus) Close() error {
	err := b.publisher.Close()
	if err != nil {
		return err
	}

	return b.subscriber.Close()
}

type watermillSubscription struct {
	cancel    context.CancelFunc
	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// pump forwards payloads until the transport channel closes or the
// subscription is closed. The done select keeps a stalled consumer from
// pinning the goroutine past Close.
func (s *watermillSubscription) pump(messages <-chan *message.Message) {
	defer close(s.out)

	for msg := range messages {
		select {
		case s.out <- msg.Payload:
			msg.Ack()
		case <-s.done:
			return
		}
	}
}

func (s *watermillSubscription) Events() <-chan []byte {
	return s.out
}

func (s *watermillSubscription) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		close(s.done)
	})

	return nil
}
