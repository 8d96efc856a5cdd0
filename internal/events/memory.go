package events

import (
	"context"
	"sync"
)

// MemoryPublisher is an in-process broker used for single-node
// deployments and tests. Subscribers receive every event published
// after they subscribed; slow subscribers drop events rather than
// blocking the controller.
type MemoryPublisher struct {
	mu     sync.RWMutex
	subs   map[int]chan OffloadEvent
	nextID int
	closed bool
}

// NewMemoryPublisher creates an in-memory event publisher
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{subs: make(map[int]chan OffloadEvent)}
}

func (p *MemoryPublisher) Publish(ctx context.Context, event OffloadEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	for _, ch := range p.subs {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of future events and a cancel function
func (p *MemoryPublisher) Subscribe(buffer int) (<-chan OffloadEvent, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan OffloadEvent, buffer)

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = ch
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (p *MemoryPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	for id, ch := range p.subs {
		delete(p.subs, id)
		close(ch)
	}
	return nil
}
