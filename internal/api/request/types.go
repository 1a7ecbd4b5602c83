package request

import "github.com/mcoot/boardbank/internal/protocol"

// CreateGameRequest is the request body for creating a game
type CreateGameRequest struct {
	PlayerName string `json:"player_name"`
}

// JoinGameRequest is the request body for joining or rejoining a game
type JoinGameRequest struct {
	PlayerName string `json:"player_name"`
	PlayerID   string `json:"player_id,omitempty"`
}

// TransferRequest is the request body for a transfer between players.
// Amount accepts a JSON integer or a numeric string.
type TransferRequest struct {
	FromPlayerName string          `json:"from_player_name"`
	ToPlayerName   string          `json:"to_player_name"`
	Amount         protocol.Amount `json:"amount"`
}

// BankTransferRequest is the request body for a transfer with the bank.
// Flag is "take" or "pay".
type BankTransferRequest struct {
	PlayerName string          `json:"player_name"`
	Amount     protocol.Amount `json:"amount"`
	Flag       string          `json:"flag"`
}
