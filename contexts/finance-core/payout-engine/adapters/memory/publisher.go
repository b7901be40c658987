package memory

import (
	"context"
	"strings"
	"sync"

	"clipay/contexts/finance-core/payout-engine/ports"
)

type PublishedEvent struct {
	Topic string
	Event ports.EventEnvelope
}

// Publisher keeps relayed events in process for the in-memory module.
type Publisher struct {
	mu     sync.Mutex
	events []PublishedEvent
}

func NewPublisher() *Publisher {
	return &Publisher{events: make([]PublishedEvent, 0)}
}

func (p *Publisher) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, PublishedEvent{Topic: strings.TrimSpace(topic), Event: event})
	return nil
}

func (p *Publisher) Published() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PublishedEvent(nil), p.events...)
}
