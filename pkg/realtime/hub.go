// Package realtime fans domain events out to connected staff clients over
// server-sent events. Delivery is best effort: a slow subscriber drops
// events rather than blocking publishers.
package realtime

import (
	"sync"
	"time"
)

const (
	EventOrderStatusUpdated = "order-status-updated"
	EventPalletUpdated      = "pallet-updated"
	EventShelfUpdated       = "shelf-updated"
	EventActivity           = "activity"
)

const subscriberBuffer = 16

// Event is one message pushed to the live stream.
type Event struct {
	Name    string    `json:"name"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher is the write side of the hub.
type Publisher interface {
	Publish(event Event)
}

// Hub is an in-process broadcast channel.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewHub builds an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a listener. The returned cancel func must be called
// when the listener goes away.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking.
func (h *Hub) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
			// subscriber is not keeping up; drop
		}
	}
}

// SubscriberCount reports the number of connected listeners.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
