package redis

import (
	"fmt"

	"github.com/mcoot/boardbank/internal/model"
)

// Key prefix for all bank data
const keyPrefix = "bank"

// gameKey returns the Redis key for a game's header document
func gameKey(id model.GameID) string {
	return fmt.Sprintf("%s:game:%s", keyPrefix, id)
}

// playersKey returns the Redis key for the LIST of a game's players, in join order
func playersKey(id model.GameID) string {
	return fmt.Sprintf("%s:game:%s:players", keyPrefix, id)
}

// balancesKey returns the Redis key for the HASH of player id -> balance
func balancesKey(id model.GameID) string {
	return fmt.Sprintf("%s:game:%s:balances", keyPrefix, id)
}

// transfersKey returns the Redis key for the LIST of a game's transfers, oldest first
func transfersKey(id model.GameID) string {
	return fmt.Sprintf("%s:game:%s:transfers", keyPrefix, id)
}

// codeIndexKey returns the Redis key for the code -> latest game id index
func codeIndexKey(code model.SessionCode) string {
	return fmt.Sprintf("%s:idx:code:%s", keyPrefix, code)
}
