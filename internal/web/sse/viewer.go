package sse

import (
	"sync"

	"github.com/mcoot/boardbank/internal/protocol"
)

// Buffer size for outgoing messages
const sendBufferSize = 256

// Viewer is a read-only subscriber that streams game updates as SSE events
type Viewer struct {
	id   string
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

// NewViewer creates a new Viewer
func NewViewer(id string) *Viewer {
	return &Viewer{
		id:   id,
		send: make(chan []byte, sendBufferSize),
	}
}

// ID returns the viewer id
func (v *Viewer) ID() string {
	return v.id
}

// Deliver queues a gameUpdate message as an SSE event without blocking
func (v *Viewer) Deliver(msg []byte) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.closed {
		return false
	}
	select {
	case v.send <- formatSSEMessage(protocol.TypeGameUpdate, string(msg)):
		return true
	default:
		return false
	}
}

// Close stops further deliveries
func (v *Viewer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
}
