// Package broadcast fans session snapshots out to every subscriber of a session.
package broadcast

import (
	"log/slog"
	"sync"

	"github.com/mcoot/boardbank/internal/model"
)

// Subscriber receives encoded messages for a session.
// Deliver must not block; it returns false if the message was dropped.
type Subscriber interface {
	ID() string
	Deliver(msg []byte) bool
}

// Hub holds the subscribers of a single session
type Hub struct {
	code        model.SessionCode
	mu          sync.RWMutex
	subscribers map[string]Subscriber
	logger      *slog.Logger
}

// NewHub creates an empty hub for a session
func NewHub(code model.SessionCode, logger *slog.Logger) *Hub {
	return &Hub{
		code:        code,
		subscribers: make(map[string]Subscriber),
		logger:      logger.With(slog.String("code", string(code))),
	}
}

// Add registers a subscriber, replacing any with the same id
func (h *Hub) Add(sub Subscriber) {
	h.mu.Lock()
	h.subscribers[sub.ID()] = sub
	count := len(h.subscribers)
	h.mu.Unlock()

	h.logger.Info("subscriber registered",
		slog.String("subscriber_id", sub.ID()),
		slog.Int("total_subscribers", count))
}

// Remove unregisters a subscriber. Returns false if it was not registered.
func (h *Hub) Remove(id string) bool {
	h.mu.Lock()
	_, ok := h.subscribers[id]
	delete(h.subscribers, id)
	count := len(h.subscribers)
	h.mu.Unlock()

	if ok {
		h.logger.Info("subscriber unregistered",
			slog.String("subscriber_id", id),
			slog.Int("total_subscribers", count))
	}
	return ok
}

// Broadcast delivers msg to every subscriber and returns how many
// accepted and dropped it
func (h *Hub) Broadcast(msg []byte) (sent, dropped int) {
	h.mu.RLock()
	for id, sub := range h.subscribers {
		if sub.Deliver(msg) {
			sent++
			continue
		}
		dropped++
		h.logger.Warn("message dropped - subscriber buffer full", slog.String("subscriber_id", id))
	}
	h.mu.RUnlock()

	if dropped > 0 {
		h.logger.Warn("broadcast partial failure",
			slog.Int("sent", sent),
			slog.Int("dropped", dropped))
	}
	return sent, dropped
}

// Count returns the number of subscribers
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
