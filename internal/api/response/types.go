package response

import (
	"time"

	"github.com/mcoot/boardbank/internal/model"
)

// Player represents a player in API responses
type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Balance   int64  `json:"balance"`
	Connected bool   `json:"connected"`
}

// Transfer represents a transfer in API responses
type Transfer struct {
	Seq    uint64    `json:"seq"`
	Kind   string    `json:"kind"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	Amount int64     `json:"amount"`
	At     time.Time `json:"at,omitzero"`
}

// TransferFromModel converts model.Transfer
func TransferFromModel(t model.Transfer) Transfer {
	return Transfer{
		Seq:    t.Seq,
		Kind:   string(t.Kind),
		From:   t.From,
		To:     t.To,
		Amount: t.Amount,
		At:     t.At,
	}
}

// Game represents the live state of a game
type Game struct {
	Code         string    `json:"code"`
	Version      uint64    `json:"version"`
	Players      []Player  `json:"players"`
	LastTransfer *Transfer `json:"last_transfer"`
}

// GameFromSnapshot converts model.Snapshot
func GameFromSnapshot(s *model.Snapshot) Game {
	players := make([]Player, len(s.Players))
	for i, p := range s.Players {
		players[i] = Player{
			ID:        string(p.ID),
			Name:      p.Name,
			Balance:   p.Balance,
			Connected: p.Connected,
		}
	}

	var last *Transfer
	if t := s.LastTransfer; t != nil {
		last = &Transfer{
			Seq:    t.Seq,
			Kind:   string(t.Kind),
			From:   t.From,
			To:     t.To,
			Amount: t.Amount,
		}
	}

	return Game{
		Code:         string(s.Code),
		Version:      s.Version,
		Players:      players,
		LastTransfer: last,
	}
}

// JoinResponse is the response after creating or joining a game.
// PlayerID should be kept to rejoin as the same player.
type JoinResponse struct {
	PlayerID string `json:"player_id"`
	Rejoined bool   `json:"rejoined"`
	Game     Game   `json:"game"`
}

// TransferResponse is the response after a committed transfer.
// The bank side of a bank transfer has no balance.
type TransferResponse struct {
	Message     string   `json:"message"`
	Transfer    Transfer `json:"transfer"`
	FromBalance *int64   `json:"from_balance,omitempty"`
	ToBalance   *int64   `json:"to_balance,omitempty"`
	Game        Game     `json:"game"`
}

// HistoryResponse lists persisted transfers, oldest first
type HistoryResponse struct {
	Code      string     `json:"code"`
	Transfers []Transfer `json:"transfers"`
}

// HealthResponse is the response for the health check
type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}
