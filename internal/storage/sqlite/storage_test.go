package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/boardbank/internal/model"
	"github.com/mcoot/boardbank/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	sqlite *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	store, err := New(filepath.Join(s.T().TempDir(), "bank.db"))
	s.Require().NoError(err)

	s.sqlite = store
	s.Storage = store
	s.Ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.sqlite != nil {
		_ = s.sqlite.Close()
	}
}

func TestDataSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bank.db")
	ctx := context.Background()

	store, err := New(path)
	require.NoError(t, err)
	id, err := store.CreateGame(ctx, "ABC123", model.Player{ID: "p1", Name: "Alice", Balance: 1500})
	require.NoError(t, err)
	require.NoError(t, store.CreateTransfer(ctx, id, model.Transfer{
		Seq: 1, Kind: model.TransferBankTake, From: model.BankParty, To: "Alice", ToID: "p1", Amount: 300,
	}))
	require.NoError(t, store.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()

	rec, err := reopened.FindGameByCode(ctx, "ABC123")
	require.NoError(t, err)
	require.Len(t, rec.Players, 1)
	require.Equal(t, int64(1800), rec.Players[0].Balance)

	transfers, err := reopened.ListTransfers(ctx, id, 10)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
}

func TestInMemoryDatabase(t *testing.T) {
	store, err := New(MemoryPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.CreateGame(context.Background(), "MEM", model.Player{ID: "p1", Name: "Alice"})
	require.NoError(t, err)

	_, err = store.FindGameByCode(context.Background(), "MEM")
	require.NoError(t, err)
}
