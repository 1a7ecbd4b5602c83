package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/mcoot/boardbank/internal/model"
	"github.com/mcoot/boardbank/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	games  map[model.GameID]*game
	byCode map[model.SessionCode]model.GameID
}

type game struct {
	record    model.GameRecord
	transfers []model.Transfer
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		games:  make(map[model.GameID]*game),
		byCode: make(map[model.SessionCode]model.GameID),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) CreateGame(ctx context.Context, code model.SessionCode, initial model.Player) (model.GameID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := model.GameID(uuid.NewString())
	initial.ConnectionID = ""
	s.games[id] = &game{
		record: model.GameRecord{
			ID:        id,
			Code:      code,
			Players:   []model.Player{initial},
			CreatedAt: initial.JoinedAt,
		},
	}
	s.byCode[code] = id
	return id, nil
}

func (s *Storage) FindGameByCode(ctx context.Context, code model.SessionCode) (*model.GameRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byCode[code]
	if !ok {
		return nil, model.ErrGameRecordNotFound
	}
	g := s.games[id]

	record := g.record
	record.Players = append([]model.Player(nil), g.record.Players...)
	return &record, nil
}

func (s *Storage) CreatePlayer(ctx context.Context, gameID model.GameID, player model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[gameID]
	if !ok {
		return model.ErrGameRecordNotFound
	}
	player.ConnectionID = ""
	g.record.Players = append(g.record.Players, player)
	return nil
}

func (s *Storage) CreateTransfer(ctx context.Context, gameID model.GameID, transfer model.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[gameID]
	if !ok {
		return model.ErrGameRecordNotFound
	}

	// Resolve every player before touching any balance
	deltas := storage.Deltas(transfer)
	idx := make([]int, len(deltas))
	for i, d := range deltas {
		idx[i] = -1
		for j := range g.record.Players {
			if g.record.Players[j].ID == d.PlayerID {
				idx[i] = j
				break
			}
		}
		if idx[i] < 0 {
			return fmt.Errorf("%w: %s", model.ErrPlayerNotFound, d.PlayerID)
		}
	}

	for i, d := range deltas {
		g.record.Players[idx[i]].Balance += d.Amount
	}
	if transfer.ID == "" {
		transfer.ID = uuid.NewString()
	}
	g.transfers = append(g.transfers, transfer)
	return nil
}

func (s *Storage) ListTransfers(ctx context.Context, gameID model.GameID, limit int) ([]model.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[gameID]
	if !ok {
		return nil, model.ErrGameRecordNotFound
	}

	transfers := g.transfers
	if limit > 0 && len(transfers) > limit {
		transfers = transfers[len(transfers)-limit:]
	}
	return append([]model.Transfer{}, transfers...), nil
}

// Close is a no-op for in-memory storage
func (s *Storage) Close() error {
	return nil
}
