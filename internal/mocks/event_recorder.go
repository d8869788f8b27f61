package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/jnd-review/internal/events"
)

// EventRecorder is an events.EventEmitter that keeps every emitted event.
type EventRecorder struct {
	mu     sync.Mutex
	events []*events.ReviewEvent
	// Err is returned from every EmitEvent call when set.
	Err error
}

// EmitEvent implements events.EventEmitter.
func (r *EventRecorder) EmitEvent(_ context.Context, event *events.ReviewEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.Err
}

// Events returns the recorded events in emission order.
func (r *EventRecorder) Events() []*events.ReviewEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*events.ReviewEvent(nil), r.events...)
}

// Types returns the recorded event types in emission order.
func (r *EventRecorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}
