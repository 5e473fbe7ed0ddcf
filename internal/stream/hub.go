package stream

import (
	"sync"

	"mt5-bridge/internal/terminal"
)

// Hub fans live quotes out to subscribers (the websocket endpoint).
// Slow subscribers drop ticks instead of blocking the publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan terminal.Tick]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan terminal.Tick]struct{})}
}

// Subscribe registers a listener and returns the channel plus an
// unsubscribe function. The channel is closed on unsubscribe.
func (h *Hub) Subscribe(buffer int) (<-chan terminal.Tick, func()) {
	ch := make(chan terminal.Tick, buffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	unsub := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
	return ch, unsub
}

// Publish delivers a tick to every subscriber without blocking.
func (h *Hub) Publish(t terminal.Tick) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- t:
		default:
			// drop if subscriber is slow; keep the feed non-blocking
		}
	}
}

// Len returns the current subscriber count.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
