// Package ledger holds the state transitions applied to a session.
//
// Every function here mutates the session it is given and nothing else. A
// function that returns an error leaves the session untouched, so callers
// can apply them to a clone and discard it on failure.
package ledger

import (
	"fmt"
	"math"
	"time"

	"github.com/mcoot/boardbank/internal/model"
)

// AdmitRequest describes a player joining or rejoining a session
type AdmitRequest struct {
	Name            string
	PlayerID        model.PlayerID // optional, previously issued id
	ConnectionID    string         // optional, empty for connectionless callers
	StartingBalance int64
	NewID           func() model.PlayerID
	Now             time.Time
}

// AdmitResult is the outcome of a successful admission
type AdmitResult struct {
	Player   model.Player
	Rejoined bool
}

// Admit adds a player to the session or rebinds an existing one.
//
// A matching id wins over a matching name. A rejoin returns the player
// unchanged apart from its connection binding.
func Admit(s *model.Session, req AdmitRequest) (AdmitResult, error) {
	if p := s.GetPlayer(req.PlayerID); p != nil {
		bind(s, p, req.ConnectionID, req.Now)
		return AdmitResult{Player: *p, Rejoined: true}, nil
	}

	// Name fallback: a browser that lost its id can still reclaim its seat
	if p := s.GetPlayerByName(req.Name); p != nil {
		bind(s, p, req.ConnectionID, req.Now)
		return AdmitResult{Player: *p, Rejoined: true}, nil
	}

	if s.IsFull() {
		return AdmitResult{}, fmt.Errorf("%w: %d of %d seats taken", model.ErrSessionFull, len(s.Players), s.Capacity)
	}

	player := model.Player{
		ID:           req.NewID(),
		Name:         req.Name,
		Balance:      req.StartingBalance,
		ConnectionID: req.ConnectionID,
		JoinedAt:     req.Now,
	}
	s.Players = append(s.Players, player)
	s.UpdatedAt = req.Now

	return AdmitResult{Player: player}, nil
}

// bind attaches a connection to a player. The latest binding wins.
func bind(s *model.Session, p *model.Player, connectionID string, now time.Time) {
	if connectionID == "" {
		return
	}
	p.ConnectionID = connectionID
	s.UpdatedAt = now
}

// PeerTransfer moves amount from one player to another.
// The sum of all balances is unchanged.
func PeerTransfer(s *model.Session, fromName, toName string, amount int64, now time.Time) (*model.Transfer, error) {
	if err := model.ValidateAmount(amount); err != nil {
		return nil, err
	}

	from := s.GetPlayerByName(fromName)
	if from == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrPlayerNotFound, fromName)
	}
	to := s.GetPlayerByName(toName)
	if to == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrPlayerNotFound, toName)
	}
	if from.ID == to.ID {
		return nil, model.ErrSameParty
	}
	if from.Balance < amount {
		return nil, fmt.Errorf("%w for %s", model.ErrInsufficientFunds, from.Name)
	}
	if to.Balance > math.MaxInt64-amount {
		return nil, fmt.Errorf("%w for %s", model.ErrBalanceOverflow, to.Name)
	}

	from.Balance -= amount
	to.Balance += amount

	return record(s, model.Transfer{
		Kind:   model.TransferPeer,
		From:   from.Name,
		To:     to.Name,
		FromID: from.ID,
		ToID:   to.ID,
		Amount: amount,
	}, now), nil
}

// BankTransfer moves money between a player and the bank.
//
// Taking a loan credits the player with no counterpart debit and is never
// refused for lack of funds. Repaying debits the player with no counterpart
// credit and is refused if it would make the balance negative.
func BankTransfer(s *model.Session, name string, amount int64, direction model.BankDirection, now time.Time) (*model.Transfer, error) {
	if err := model.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if direction != model.BankTake && direction != model.BankRepay {
		return nil, model.ErrInvalidDirection
	}

	p := s.GetPlayerByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrPlayerNotFound, name)
	}

	if direction == model.BankTake {
		if p.Balance > math.MaxInt64-amount {
			return nil, fmt.Errorf("%w for %s", model.ErrBalanceOverflow, p.Name)
		}
		p.Balance += amount
		return record(s, model.Transfer{
			Kind:   model.TransferBankTake,
			From:   model.BankParty,
			To:     p.Name,
			ToID:   p.ID,
			Amount: amount,
		}, now), nil
	}

	if p.Balance < amount {
		return nil, fmt.Errorf("%w for %s", model.ErrInsufficientFunds, p.Name)
	}
	p.Balance -= amount
	return record(s, model.Transfer{
		Kind:   model.TransferBankRepay,
		From:   p.Name,
		To:     model.BankParty,
		FromID: p.ID,
		Amount: amount,
	}, now), nil
}

// Disconnect clears the player's connection if connectionID still owns it.
// Returns true if the session changed.
func Disconnect(s *model.Session, playerID model.PlayerID, connectionID string, now time.Time) bool {
	p := s.GetPlayer(playerID)
	if p == nil || connectionID == "" || p.ConnectionID != connectionID {
		return false
	}
	p.ConnectionID = ""
	s.UpdatedAt = now
	return true
}

func record(s *model.Session, t model.Transfer, now time.Time) *model.Transfer {
	s.TransferSeq++
	t.Seq = s.TransferSeq
	t.At = now
	s.LastTransfer = &t
	s.UpdatedAt = now

	out := t
	return &out
}
