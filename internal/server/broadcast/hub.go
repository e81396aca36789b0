// Package broadcast is the in-process fan-out used to push message events to
// connected devices.
package broadcast

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/gophchat/internal/logging"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 64

// Event is what subscribers receive.
type Event struct {
	Topic   string
	Payload any
}

type subscriber struct {
	topic string
	ch    chan Event
}

// Hub delivers published events to every subscriber of the topic. Publish
// never blocks: a subscriber whose queue is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscriber
	nextID uint64
	closed bool

	buffer  int
	dropped atomic.Uint64
	logger  logging.Logger
}

func NewHub(buffer int, l logging.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[uint64]*subscriber),
		buffer: buffer,
		logger: l.With("module", "broadcast"),
	}
}

// Subscribe registers interest in topic. The returned cancel func removes
// the subscription and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(topic string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = &subscriber{topic: topic, ch: ch}

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.remove(id) })
	}
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(s.ch)
	}
}

// Publish is fire-and-forget.
func (h *Hub) Publish(topic string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ev := Event{Topic: topic, Payload: payload}
	for _, s := range h.subs {
		if s.topic != topic {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			h.dropped.Add(1)
			h.logger.Warn(context.Background(), "subscriber queue full, event dropped", "topic", topic)
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped because a queue was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close ends every subscription. Later Publish calls are no-ops and later
// Subscribe calls return a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, s := range h.subs {
		delete(h.subs, id)
		close(s.ch)
	}
}
