// Package session broadcasts authentication state changes to subscribers.
package session

import (
	"sync"
	"time"
)

// Kind is the type of an auth state change.
type Kind string

const (
	SignedIn         Kind = "signed_in"
	SignedUp         Kind = "signed_up"
	SignedOut        Kind = "signed_out"
	PasswordRecovery Kind = "password_recovery"
)

// Event describes one auth state change.
type Event struct {
	Kind   Kind
	UserID string
	Email  string
	At     time.Time
}

// subscriberBuffer is how many events a subscriber may lag behind before
// further events to it are dropped.
const subscriberBuffer = 16

// Hub fans events out to subscribers. Publish never blocks on a slow
// subscriber. The zero value is not usable; use NewHub.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
	last   *Event
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber. The returned function unsubscribes and
// closes the channel; calling it more than once is safe.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
}

// Publish delivers e to every subscriber with room in its buffer and
// returns the number of subscribers that received it.
func (h *Hub) Publish(e Event) int {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0
	}
	h.last = &e

	delivered := 0
	for _, ch := range h.subs {
		select {
		case ch <- e:
			delivered++
		default:
		}
	}
	return delivered
}

// Last returns the most recent event, if any.
func (h *Hub) Last() (Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return Event{}, false
	}
	return *h.last, true
}

// Close unsubscribes everyone. Later publishes are dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
