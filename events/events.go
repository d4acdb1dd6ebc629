package events

import (
	"encoding/json"
	"sync"
	"sync/atomic"
)

// Event is one frame delivered by the real-time transport.
type Event struct {
	Name      string          `json:"event"`
	Timestamp int             `json:"t,omitempty"`
	Data      json.RawMessage `json:"data"`
}

// EventHub fans events out to subscribers. Slow subscribers miss events rather than block the transport.
type EventHub struct {
	mu      sync.Mutex
	subs    map[int]chan *Event
	next    int
	dropped atomic.Uint64
}

func NewHub() *EventHub {
	return &EventHub{subs: map[int]chan *Event{}}
}

// Subscribe registers a subscriber with the given buffer size. The returned cancel func closes the channel.
func (h *EventHub) Subscribe(buffer int) (int, <-chan *Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan *Event, buffer)
	h.subs[id] = ch
	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			close(c)
			delete(h.subs, id)
		}
	}
	return id, ch, cancel
}

func (h *EventHub) Broadcast(event *Event) {
	h.mu.Lock()
	for _, ch := range h.subs {
		select {
		case ch <- h.copy(event):
		default:
			h.dropped.Add(1)
		}
	}
	h.mu.Unlock()
}

// Dropped is the number of deliveries skipped because a subscriber's buffer was full.
func (h *EventHub) Dropped() uint64 {
	return h.dropped.Load()
}

func (h *EventHub) copy(e *Event) *Event {
	return &Event{e.Name, e.Timestamp, e.Data}
}
