package testutil

import (
	"encoding/json"
	"sync"

	"github.com/mcoot/boardbank/internal/model"
)

// Subscriber records every message delivered to it.
// It satisfies broadcast.Subscriber.
type Subscriber struct {
	id string

	mu       sync.Mutex
	messages [][]byte
}

// NewSubscriber creates a recording subscriber with the given id
func NewSubscriber(id string) *Subscriber {
	return &Subscriber{id: id}
}

// ID returns the subscriber id
func (s *Subscriber) ID() string {
	return s.id
}

// Deliver records msg
func (s *Subscriber) Deliver(msg []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return true
}

// Messages returns a copy of everything delivered so far
func (s *Subscriber) Messages() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.messages...)
}

// Snapshots decodes every delivered gameUpdate message
func (s *Subscriber) Snapshots() []model.Snapshot {
	var snaps []model.Snapshot
	for _, msg := range s.Messages() {
		var env struct {
			Type    string         `json:"type"`
			Payload model.Snapshot `json:"payload"`
		}
		if err := json.Unmarshal(msg, &env); err != nil || env.Type != "gameUpdate" {
			continue
		}
		snaps = append(snaps, env.Payload)
	}
	return snaps
}

// Last returns the most recent snapshot delivered, or nil
func (s *Subscriber) Last() *model.Snapshot {
	snaps := s.Snapshots()
	if len(snaps) == 0 {
		return nil
	}
	return &snaps[len(snaps)-1]
}

// Reset forgets recorded messages
func (s *Subscriber) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}
