package realtime

import (
	"sync"

	"dodje/progression"
)

// subscriberBuffer is how many events a slow subscriber may lag before
// further events to it are dropped.
const subscriberBuffer = 32

// Hub fans forwarded status events out to the connected clients of each user.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan progression.StatusEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan progression.StatusEvent]struct{})}
}

// Subscribe registers a listener for userID. The returned func unregisters it
// and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(userID string) (<-chan progression.StatusEvent, func()) {
	ch := make(chan progression.StatusEvent, subscriberBuffer)
	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan progression.StatusEvent]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], ch)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Dispatch delivers msg to the subscribers of its user without blocking.
func (h *Hub) Dispatch(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[msg.Event.UserID] {
		select {
		case ch <- msg.Event:
		default:
		}
	}
}

// Subscribers counts the open subscriptions of userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
