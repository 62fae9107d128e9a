package events

import (
	"sync"

	"thirdcoast.systems/camerakit/internal/camera"
)

const (
	// Hard cap to keep the daemon responsive even if someone opens a silly
	// number of tabs.
	maxStreams = 50

	subscriberBuffer = 32
)

// Hub fans controller events out to SSE subscribers.
type Hub struct {
	mu      sync.Mutex
	subs    map[chan camera.Event]struct{}
	streams int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[chan camera.Event]struct{}),
	}
}

// AcquireStream reserves an SSE slot.
func (h *Hub) AcquireStream() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.streams >= maxStreams {
		return false
	}
	h.streams++
	return true
}

// ReleaseStream frees an SSE slot.
func (h *Hub) ReleaseStream() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.streams > 0 {
		h.streams--
	}
}

// Subscribe returns a channel that receives every published event, and an
// unsubscribe function.
func (h *Hub) Subscribe() (<-chan camera.Event, func()) {
	ch := make(chan camera.Event, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
	return ch, unsubscribe
}

// Publish delivers ev to every subscriber. It is registered as a
// controller listener.
func (h *Hub) Publish(ev camera.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub <- ev:
		default:
			// Drop rather than block the controller's dispatcher.
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
