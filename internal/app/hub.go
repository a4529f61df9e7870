package app

import (
	"sync"

	"quizlive-service/internal/domain"
)

// Hub fans leaderboard snapshots out to per-session subscriber channels. It
// carries no game state; the stores stay the single source of truth.
type Hub struct {
	mu     sync.Mutex
	topics map[string]map[chan domain.Leaderboard]struct{}
}

func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[chan domain.Leaderboard]struct{})}
}

// Subscribe registers a buffered channel on the session's topic. The cancel
// function is idempotent and closes the channel.
func (h *Hub) Subscribe(sessionID string) (chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	h.mu.Lock()
	subs, ok := h.topics[sessionID]
	if !ok {
		subs = make(map[chan domain.Leaderboard]struct{})
		h.topics[sessionID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if subs, ok := h.topics[sessionID]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(h.topics, sessionID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers a snapshot to every subscriber on the topic. Slow clients
// have their stale buffered update dropped rather than blocking the rest.
func (h *Hub) Publish(sessionID string, lb domain.Leaderboard) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.topics[sessionID] {
		select {
		case ch <- lb:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}

// Subscribers reports the current subscriber count for a session topic.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[sessionID])
}
