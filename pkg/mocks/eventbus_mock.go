package mocks

import (
	"context"
	"sync"

	"github.com/weftlabs/weft/pkg/eventbus"
)

// PublishedEvent is one captured publish call.
type PublishedEvent struct {
	WorkflowID string
	Event      eventbus.Event
}

// CapturingPublisher records published events in order. Safe for
// concurrent use.
type CapturingPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent

	// Err, when set, is returned from every Publish call.
	Err error
}

func (p *CapturingPublisher) Publish(_ context.Context, workflowID string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, PublishedEvent{WorkflowID: workflowID, Event: event})

	return p.Err
}

// Events returns a snapshot of the captured events in publish order.
func (p *CapturingPublisher) Events() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]PublishedEvent(nil), p.events...)
}
