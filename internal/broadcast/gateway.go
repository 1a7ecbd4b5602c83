package broadcast

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcoot/boardbank/internal/model"
	"github.com/mcoot/boardbank/internal/protocol"
)

// Gateway owns the hubs for all sessions
type Gateway struct {
	hubs   map[model.SessionCode]*Hub
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewGateway creates a gateway with no hubs
func NewGateway(logger *slog.Logger) *Gateway {
	return &Gateway{
		hubs:   make(map[model.SessionCode]*Hub),
		logger: logger.With(slog.String("component", "broadcast")),
	}
}

// Subscribe adds sub to the hub for code, creating the hub if needed.
// Registration is complete when Subscribe returns, so the subscriber
// receives every message published afterwards.
func (g *Gateway) Subscribe(code model.SessionCode, sub Subscriber) {
	g.mu.Lock()
	defer g.mu.Unlock()

	hub, ok := g.hubs[code]
	if !ok {
		hub = NewHub(code, g.logger)
		g.hubs[code] = hub
	}
	hub.Add(sub)
}

// Unsubscribe removes the subscriber with the given id from the hub for code
func (g *Gateway) Unsubscribe(code model.SessionCode, id string) bool {
	hub := g.hub(code)
	if hub == nil {
		return false
	}
	return hub.Remove(id)
}

// Encode renders a snapshot as the message sent to subscribers
func (g *Gateway) Encode(snap *model.Snapshot) ([]byte, error) {
	msg, err := protocol.EncodeGameUpdate(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot for %s: %w", snap.Code, err)
	}
	return msg, nil
}

// Publish delivers an already encoded message to every subscriber of code
func (g *Gateway) Publish(code model.SessionCode, msg []byte) int {
	hub := g.hub(code)
	if hub == nil {
		return 0
	}
	sent, _ := hub.Broadcast(msg)
	return sent
}

// Broadcast encodes snap and publishes it to every subscriber of its session
func (g *Gateway) Broadcast(snap *model.Snapshot) error {
	msg, err := g.Encode(snap)
	if err != nil {
		return err
	}
	g.Publish(snap.Code, msg)
	return nil
}

// SubscriberCount returns the number of subscribers for code
func (g *Gateway) SubscriberCount(code model.SessionCode) int {
	hub := g.hub(code)
	if hub == nil {
		return 0
	}
	return hub.Count()
}

// HasSubscribers reports whether anyone is subscribed to code
func (g *Gateway) HasSubscribers(code model.SessionCode) bool {
	return g.SubscriberCount(code) > 0
}

// RemoveHub drops the hub for code along with its subscribers
func (g *Gateway) RemoveHub(code model.SessionCode) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.hubs[code]; ok {
		delete(g.hubs, code)
		g.logger.Info("hub removed", slog.String("code", string(code)))
	}
}

// CleanupEmptyHubs removes hubs with no subscribers and returns how many were removed
func (g *Gateway) CleanupEmptyHubs() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for code, hub := range g.hubs {
		if hub.Count() == 0 {
			delete(g.hubs, code)
			removed++
		}
	}
	if removed > 0 {
		g.logger.Info("empty hubs cleaned up", slog.Int("removed", removed))
	}
	return removed
}

func (g *Gateway) hub(code model.SessionCode) *Hub {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.hubs[code]
}
