package storage

import (
	"context"

	"github.com/mcoot/boardbank/internal/model"
)

// Storage is the durable record of games, players and transfers.
//
// It mirrors the in-memory ledger and never decides whether a transfer is
// allowed; balances are adjusted exactly as the transfer says.
type Storage interface {
	// CreateGame records a new game for code with its first player
	CreateGame(ctx context.Context, code model.SessionCode, initial model.Player) (model.GameID, error)

	// FindGameByCode returns the most recently created game for code, with its players
	FindGameByCode(ctx context.Context, code model.SessionCode) (*model.GameRecord, error)

	// CreatePlayer adds a player to an existing game
	CreatePlayer(ctx context.Context, gameID model.GameID, player model.Player) error

	// CreateTransfer records a transfer and adjusts the affected balances atomically
	CreateTransfer(ctx context.Context, gameID model.GameID, transfer model.Transfer) error

	// ListTransfers returns the last limit transfers of a game, oldest first.
	// A limit of zero or less returns all of them.
	ListTransfers(ctx context.Context, gameID model.GameID, limit int) ([]model.Transfer, error)

	Close() error
}

// Delta is a balance change applied by a transfer
type Delta struct {
	PlayerID model.PlayerID
	Amount   int64
}

// Deltas returns the balance changes a transfer applies to players.
// The bank side of a transfer has no balance.
func Deltas(t model.Transfer) []Delta {
	var deltas []Delta
	if t.FromID != "" {
		deltas = append(deltas, Delta{PlayerID: t.FromID, Amount: -t.Amount})
	}
	if t.ToID != "" {
		deltas = append(deltas, Delta{PlayerID: t.ToID, Amount: t.Amount})
	}
	return deltas
}
