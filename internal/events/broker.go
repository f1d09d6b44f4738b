package events

import (
	"sync"
)

// Event describes a progress update for one design session.
type Event struct {
	SessionID string `json:"session_id"`
	Step      string `json:"step"`
	Loading   bool   `json:"loading"`
	Status    string `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Broker manages SSE subscribers, each bound to a single session.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[chan Event]string
}

// NewBroker constructs a broker instance.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[chan Event]string),
	}
}

// Subscribe returns a channel that receives events for sessionID.
func (b *Broker) Subscribe(sessionID string) chan Event {
	ch := make(chan Event, 8)
	b.mu.Lock()
	b.subscribers[ch] = sessionID
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the channel from the broker.
func (b *Broker) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish fans the event out to subscribers of its session.
func (b *Broker) Publish(evt Event) {
	b.mu.RLock()
	for ch, sessionID := range b.subscribers {
		if sessionID != evt.SessionID {
			continue
		}
		select {
		case ch <- evt:
		default:
			// drop if subscriber is slow
		}
	}
	b.mu.RUnlock()
}

// Subscribers reports how many channels listen on sessionID.
func (b *Broker) Subscribers(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, id := range b.subscribers {
		if id == sessionID {
			n++
		}
	}
	return n
}
