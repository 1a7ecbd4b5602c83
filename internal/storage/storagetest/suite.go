// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/boardbank/internal/model"
	"github.com/mcoot/boardbank/internal/storage"
)

// Suite runs against a fresh storage from New in every test.
// Backends embed it in their own suite and set New in SetupTest.
type Suite struct {
	suite.Suite
	Storage storage.Storage
	Ctx     context.Context
}

var joined = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func (s *Suite) player(id, name string, balance int64) model.Player {
	return model.Player{
		ID:       model.PlayerID(id),
		Name:     name,
		Balance:  balance,
		JoinedAt: joined,
	}
}

func (s *Suite) createGame(code model.SessionCode) model.GameID {
	id, err := s.Storage.CreateGame(s.Ctx, code, s.player("alice", "Alice", 1500))
	s.Require().NoError(err)
	s.Require().NotEmpty(id)
	s.Require().NoError(s.Storage.CreatePlayer(s.Ctx, id, s.player("bob", "Bob", 1500)))
	return id
}

func (s *Suite) balances(code model.SessionCode) map[string]int64 {
	rec, err := s.Storage.FindGameByCode(s.Ctx, code)
	s.Require().NoError(err)
	out := map[string]int64{}
	for _, p := range rec.Players {
		out[p.Name] = p.Balance
	}
	return out
}

func (s *Suite) TestCreateAndFindGame() {
	id := s.createGame("ABC123")

	rec, err := s.Storage.FindGameByCode(s.Ctx, "ABC123")
	s.Require().NoError(err)

	s.Equal(id, rec.ID)
	s.Equal(model.SessionCode("ABC123"), rec.Code)
	s.Require().Len(rec.Players, 2)
	s.Equal("Alice", rec.Players[0].Name)
	s.Equal("Bob", rec.Players[1].Name)
	s.Equal(model.PlayerID("alice"), rec.Players[0].ID)
	s.Equal(int64(1500), rec.Players[1].Balance)
	s.True(rec.Players[0].JoinedAt.Equal(joined))
}

func (s *Suite) TestFindGameNotFound() {
	_, err := s.Storage.FindGameByCode(s.Ctx, "NOPE")
	s.ErrorIs(err, model.ErrGameRecordNotFound)
}

func (s *Suite) TestFindGameReturnsLatestForCode() {
	s.createGame("ABC123")
	second, err := s.Storage.CreateGame(s.Ctx, "ABC123", s.player("carol", "Carol", 1500))
	s.Require().NoError(err)

	rec, err := s.Storage.FindGameByCode(s.Ctx, "ABC123")
	s.Require().NoError(err)

	s.Equal(second, rec.ID)
	s.Require().Len(rec.Players, 1)
	s.Equal("Carol", rec.Players[0].Name)
}

func (s *Suite) TestCreatePlayerUnknownGame() {
	err := s.Storage.CreatePlayer(s.Ctx, "missing", s.player("x", "X", 1))
	s.ErrorIs(err, model.ErrGameRecordNotFound)
}

func (s *Suite) TestPeerTransferAdjustsBothBalances() {
	id := s.createGame("ABC123")

	err := s.Storage.CreateTransfer(s.Ctx, id, model.Transfer{
		Seq: 1, Kind: model.TransferPeer,
		From: "Alice", To: "Bob", FromID: "alice", ToID: "bob",
		Amount: 500, At: joined,
	})
	s.Require().NoError(err)

	s.Equal(map[string]int64{"Alice": 1000, "Bob": 2000}, s.balances("ABC123"))
}

func (s *Suite) TestBankTransfersAdjustOneBalance() {
	id := s.createGame("ABC123")

	s.Require().NoError(s.Storage.CreateTransfer(s.Ctx, id, model.Transfer{
		Seq: 1, Kind: model.TransferBankTake,
		From: model.BankParty, To: "Alice", ToID: "alice",
		Amount: 300, At: joined,
	}))
	s.Require().NoError(s.Storage.CreateTransfer(s.Ctx, id, model.Transfer{
		Seq: 2, Kind: model.TransferBankRepay,
		From: "Bob", To: model.BankParty, FromID: "bob",
		Amount: 100, At: joined,
	}))

	s.Equal(map[string]int64{"Alice": 1800, "Bob": 1400}, s.balances("ABC123"))
}

func (s *Suite) TestTransferWithUnknownPlayerChangesNothing() {
	id := s.createGame("ABC123")

	err := s.Storage.CreateTransfer(s.Ctx, id, model.Transfer{
		Seq: 1, Kind: model.TransferPeer,
		From: "Alice", To: "Ghost", FromID: "alice", ToID: "ghost",
		Amount: 500, At: joined,
	})

	s.ErrorIs(err, model.ErrPlayerNotFound)
	s.Equal(map[string]int64{"Alice": 1500, "Bob": 1500}, s.balances("ABC123"))

	transfers, err := s.Storage.ListTransfers(s.Ctx, id, 0)
	s.Require().NoError(err)
	s.Empty(transfers)
}

func (s *Suite) TestListTransfersOldestFirstWithLimit() {
	id := s.createGame("ABC123")
	for i := 1; i <= 5; i++ {
		s.Require().NoError(s.Storage.CreateTransfer(s.Ctx, id, model.Transfer{
			Seq: uint64(i), Kind: model.TransferPeer,
			From: "Alice", To: "Bob", FromID: "alice", ToID: "bob",
			Amount: int64(i), At: joined.Add(time.Duration(i) * time.Second),
		}))
	}

	all, err := s.Storage.ListTransfers(s.Ctx, id, 0)
	s.Require().NoError(err)
	s.Len(all, 5)

	last, err := s.Storage.ListTransfers(s.Ctx, id, 2)
	s.Require().NoError(err)
	s.Require().Len(last, 2)
	s.Equal(uint64(4), last[0].Seq)
	s.Equal(uint64(5), last[1].Seq)
	s.Equal(int64(5), last[1].Amount)
	s.Equal(model.TransferPeer, last[1].Kind)
	s.Equal("Alice", last[1].From)
	s.Equal(model.PlayerID("bob"), last[1].ToID)
	s.NotEmpty(last[1].ID)
	s.True(last[1].At.Equal(joined.Add(5 * time.Second)))
}

func (s *Suite) TestListTransfersUnknownGame() {
	_, err := s.Storage.ListTransfers(s.Ctx, "missing", 10)
	s.ErrorIs(err, model.ErrGameRecordNotFound)
}
