// Package eventbus provides the pub/sub layer that carries execution events
// to live observers.
package eventbus

import (
	"context"

	"github.com/weftlabs/weft/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

// Publisher broadcasts an event on the channel of the given workflow.
// Publishing is fire-and-forget from the caller's point of view: the
// coordinator logs and swallows any error returned here.
type Publisher interface {
	Publish(ctx context.Context, workflowID string, event Event) error
}

// Subscription is one observer's feed of a single workflow channel.
// Events() yields the raw JSON payloads as published, in publish order.
type Subscription interface {
	Events() <-chan []byte
	Close() error
}

// Subscriber opens subscriptions on per-workflow channels.
type Subscriber interface {
	Subscribe(ctx context.Context, workflowID string) (Subscription, error)
}

type EventBus interface {
	Publisher
	Subscriber
	Close() error
}
