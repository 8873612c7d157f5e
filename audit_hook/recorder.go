package audithook

import (
	"context"
	"sync"
)

// MemoryRecorder keeps audit events in memory. Useful for tests and
// small deployments that expose the trail over an admin surface.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []*AuditEvent
}

// NewMemoryRecorder creates an empty MemoryRecorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record implements Recorder.
func (m *MemoryRecorder) Record(_ context.Context, event *AuditEvent) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	return nil
}

// Events returns a copy of all recorded events in order.
func (m *MemoryRecorder) Events() []*AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*AuditEvent(nil), m.events...)
}

// ByAction returns recorded events with the given action.
func (m *MemoryRecorder) ByAction(action string) []*AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*AuditEvent
	for _, e := range m.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}
