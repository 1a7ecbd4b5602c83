package model

import "time"

// GameID is the durable store's surrogate key for a game
type GameID string

// GameRecord is a game as held by the durable store
type GameRecord struct {
	ID        GameID
	Code      SessionCode
	Players   []Player // join order, balances as last persisted
	CreatedAt time.Time
}
