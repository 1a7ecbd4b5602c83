package model

import "time"

// PlayerID uniquely identifies a player across all sessions
type PlayerID string

// Player is a participant in a session
type Player struct {
	ID      PlayerID
	Name    string // unique within a session, used to route transfers
	Balance int64

	// ConnectionID is the live connection currently bound to this player.
	// Empty means disconnected; the player stays on the roster.
	ConnectionID string

	JoinedAt time.Time
}

// Connected returns true if a live connection is bound to the player
func (p *Player) Connected() bool {
	return p.ConnectionID != ""
}
