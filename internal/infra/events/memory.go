package events

import (
	"context"
	"sync"

	"avenant/internal/domain"
)

// MemoryPublisher buffers events in process. It backs the no-redis
// deployment mode and tests that assert on emitted events.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (p *MemoryPublisher) Events() []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Event, len(p.events))
	copy(out, p.events)
	return out
}
