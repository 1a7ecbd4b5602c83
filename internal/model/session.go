package model

import "time"

// SessionCode is the short, shareable identifier players use to join a session
type SessionCode string

// DefaultCapacity is the default maximum number of players in a session
const DefaultCapacity = 4

// Session is one game's authoritative ledger state
type Session struct {
	Code     SessionCode
	Players  []Player // join order
	Capacity int

	// LastTransfer is the most recently applied transfer, nil until one happens
	LastTransfer *Transfer

	// Version increases by one on every committed change
	Version uint64
	// TransferSeq is the sequence number of the last recorded transfer
	TransferSeq uint64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSession creates an empty session with the given capacity
func NewSession(code SessionCode, capacity int, now time.Time) *Session {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Session{
		Code:      code,
		Players:   []Player{},
		Capacity:  capacity,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsFull returns true if no more players can be admitted
func (s *Session) IsFull() bool {
	return len(s.Players) >= s.Capacity
}

// GetPlayer returns the player with the given ID, or nil if not found
func (s *Session) GetPlayer(id PlayerID) *Player {
	if id == "" {
		return nil
	}
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

// GetPlayerByName returns the player with the given name, or nil if not found
func (s *Session) GetPlayerByName(name string) *Player {
	for i := range s.Players {
		if s.Players[i].Name == name {
			return &s.Players[i]
		}
	}
	return nil
}

// ConnectedCount returns the number of players with a live connection
func (s *Session) ConnectedCount() int {
	count := 0
	for i := range s.Players {
		if s.Players[i].Connected() {
			count++
		}
	}
	return count
}

// TotalBalance returns the sum of all player balances
func (s *Session) TotalBalance() int64 {
	var total int64
	for _, p := range s.Players {
		total += p.Balance
	}
	return total
}

// Clone returns a deep copy that can be mutated without affecting s
func (s *Session) Clone() *Session {
	c := *s
	c.Players = make([]Player, len(s.Players))
	copy(c.Players, s.Players)
	if s.LastTransfer != nil {
		t := *s.LastTransfer
		c.LastTransfer = &t
	}
	return &c
}
