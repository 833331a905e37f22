package service

import (
	"sync"
	"sync/atomic"
)

// Resource names the part of the scene an event is about.
type Resource string

const (
	ResourceNodes     Resource = "nodes"
	ResourceRoutes    Resource = "routes"
	ResourceSelection Resource = "selection"
	ResourceHover     Resource = "hover"
	ResourcePin       Resource = "pin"
	ResourceFilter    Resource = "filter"
	ResourceTheme     Resource = "theme"
	// ResourceOverlay events announce a published overlay snapshot; ID is
	// its generation.
	ResourceOverlay Resource = "overlay"
)

// Action is what happened to a resource.
type Action string

const (
	ActionCreated  Action = "created"
	ActionUpdated  Action = "updated"
	ActionDeleted  Action = "deleted"
	ActionReplaced Action = "replaced"
	ActionSynced   Action = "synced"
)

// Event is a scene change.
type Event struct {
	Resource Resource `json:"resource"`
	Action   Action   `json:"action"`
	ID       string   `json:"id,omitempty"`
}

// subscriberBuffer is the number of events a subscriber may fall behind
// before events are dropped for it.
const subscriberBuffer = 64

// EventBus fans scene changes out to subscribers. Publish never blocks: a
// subscriber with a full buffer misses the event.
type EventBus struct {
	mu      sync.RWMutex
	subs    map[chan Event]struct{}
	closed  bool
	dropped atomic.Uint64
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Publish delivers e to every subscriber with room for it.
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribe returns a buffered channel of events. On a closed bus the
// channel is already closed.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes ch and closes it. Unknown channels are ignored.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	_, ok := b.subs[ch]
	delete(b.subs, ch)
	b.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Dropped returns the number of deliveries skipped for full subscribers.
func (b *EventBus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes every subscriber channel. Later publishes are no-ops.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
	}
	b.subs = map[chan Event]struct{}{}
}
