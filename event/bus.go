// Package event provides an in-process publish/subscribe bus. The
// scheduler bridges job lifecycle transitions onto it (see Extension)
// so callers can block on "job.completed" style signals instead of
// polling job status.
package event

import (
	"context"
	"sync"
	"time"

	"github.com/Thijssvd/SommOS-sub001/id"
)

// Bus is an in-memory event bus. Published events stay available to
// subscribers until acknowledged.
type Bus struct {
	mu      sync.Mutex
	events  []*Event
	waiters map[string][]chan *Event
}

// NewBus creates an empty in-memory bus.
func NewBus() *Bus {
	return &Bus{waiters: make(map[string][]chan *Event)}
}

// Publish creates a new event and makes it available for subscribers.
// A subscriber already blocked on the name is woken immediately.
func (b *Bus) Publish(ctx context.Context, name string, payload []byte) (*Event, error) {
	evt := &Event{
		ID:        id.NewEventID(),
		Name:      name,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}

	b.mu.Lock()
	b.events = append(b.events, evt)
	if ws := b.waiters[name]; len(ws) > 0 {
		ch := ws[0]
		b.waiters[name] = ws[1:]
		ch <- evt
	}
	b.mu.Unlock()
	return evt, nil
}

// Subscribe waits for an unacked event matching the given name.
// Blocks until available or timeout. Returns nil on timeout.
func (b *Bus) Subscribe(ctx context.Context, name string, timeout time.Duration) (*Event, error) {
	b.mu.Lock()
	for _, evt := range b.events {
		if evt.Name == name && !evt.Acked {
			b.mu.Unlock()
			return evt, nil
		}
	}
	ch := make(chan *Event, 1)
	b.waiters[name] = append(b.waiters[name], ch)
	b.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case evt := <-ch:
		return evt, nil
	case <-timer.C:
		b.removeWaiter(name, ch)
		return nil, nil
	case <-ctx.Done():
		b.removeWaiter(name, ch)
		return nil, ctx.Err()
	}
}

// Ack acknowledges an event, marking it as consumed and dropping it
// from the bus. Long-lived buses stay bounded by their unacked backlog.
func (b *Bus) Ack(ctx context.Context, eventID id.EventID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, evt := range b.events {
		if evt.ID.String() == eventID.String() {
			evt.Acked = true
			b.events = append(b.events[:i], b.events[i+1:]...)
			return nil
		}
	}
	return nil
}

// Pending returns the number of unacked events held by the bus.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

func (b *Bus) removeWaiter(name string, ch chan *Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ws := b.waiters[name]
	for i, w := range ws {
		if w == ch {
			b.waiters[name] = append(ws[:i], ws[i+1:]...)
			break
		}
	}
}
