// Package mock provides a testify mock of the storage interface.
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mcoot/boardbank/internal/model"
	"github.com/mcoot/boardbank/internal/storage"
)

// Storage implements storage.Storage for testing
type Storage struct {
	mock.Mock
}

var _ storage.Storage = (*Storage)(nil)

func (m *Storage) CreateGame(ctx context.Context, code model.SessionCode, initial model.Player) (model.GameID, error) {
	args := m.Called(ctx, code, initial)
	return args.Get(0).(model.GameID), args.Error(1)
}

func (m *Storage) FindGameByCode(ctx context.Context, code model.SessionCode) (*model.GameRecord, error) {
	args := m.Called(ctx, code)
	if rec := args.Get(0); rec != nil {
		return rec.(*model.GameRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Storage) CreatePlayer(ctx context.Context, gameID model.GameID, player model.Player) error {
	args := m.Called(ctx, gameID, player)
	return args.Error(0)
}

func (m *Storage) CreateTransfer(ctx context.Context, gameID model.GameID, transfer model.Transfer) error {
	args := m.Called(ctx, gameID, transfer)
	return args.Error(0)
}

func (m *Storage) ListTransfers(ctx context.Context, gameID model.GameID, limit int) ([]model.Transfer, error) {
	args := m.Called(ctx, gameID, limit)
	if ts := args.Get(0); ts != nil {
		return ts.([]model.Transfer), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Storage) Close() error {
	args := m.Called()
	return args.Error(0)
}
