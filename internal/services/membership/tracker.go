// Package membership tracks which session and player each live connection is bound to.
package membership

import (
	"sync"

	"github.com/mcoot/boardbank/internal/model"
)

// Binding ties a connection to a player in a session
type Binding struct {
	Code     model.SessionCode
	PlayerID model.PlayerID
}

// Tracker maps connection ids to bindings.
// A connection has at most one binding; binding again replaces it.
type Tracker struct {
	mu       sync.Mutex
	bindings map[string]Binding
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{bindings: make(map[string]Binding)}
}

// Bind records that connID now acts as the given player.
// Returns the previous binding for connID, if any.
func (t *Tracker) Bind(connID string, b Binding) (Binding, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, ok := t.bindings[connID]
	t.bindings[connID] = b
	return prev, ok
}

// Lookup returns the binding for connID
func (t *Tracker) Lookup(connID string) (Binding, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.bindings[connID]
	return b, ok
}

// Release removes and returns the binding for connID
func (t *Tracker) Release(connID string) (Binding, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.bindings[connID]
	if ok {
		delete(t.bindings, connID)
	}
	return b, ok
}

// Len returns the number of bound connections
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.bindings)
}
