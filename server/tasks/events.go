// Package tasks implements the task lifecycle engine: the state machine,
// the in-process event bus, and the runner orchestration.
package tasks

import (
	"sync"

	"go.uber.org/zap"
)

// Event is a bus envelope carrying one of the protocol event payloads
// (schema.TaskStatusUpdateEvent or schema.TaskArtifactUpdateEvent).
type Event struct {
	// Type is the protocol event type identifier.
	Type string
	// TaskID the event belongs to.
	TaskID string
	// Payload is the wire-shaped event struct, serialized as-is for streams
	// and webhooks.
	Payload interface{}
}

// Listener receives events synchronously on the emitter's goroutine.
// Listeners must not block.
type Listener func(Event)

// Bus is a single-process pub/sub. Delivery is synchronous and in emission
// order per subscriber.
type Bus struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener
	logger    *zap.Logger
}

func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		listeners: make(map[int]Listener),
		logger:    logger.Named("event-bus"),
	}
}

// Subscribe registers a listener and returns its unsubscribe function.
func (b *Bus) Subscribe(listener Listener) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = listener
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// Publish delivers the event to every live listener.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	listeners := make([]Listener, 0, len(b.listeners))
	for _, l := range b.listeners {
		listeners = append(listeners, l)
	}
	b.mu.RUnlock()

	b.logger.Debug("Publishing event",
		zap.String("type", event.Type),
		zap.String("taskID", event.TaskID),
		zap.Int("listeners", len(listeners)))

	for _, l := range listeners {
		l(event)
	}
}
