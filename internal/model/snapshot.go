package model

// PlayerView is the public view of a player sent to subscribers
type PlayerView struct {
	ID        PlayerID `json:"id"`
	Name      string   `json:"name"`
	Balance   int64    `json:"balance"`
	Connected bool     `json:"connected"`
}

// TransferView is the public view of the last transfer
type TransferView struct {
	Seq    uint64       `json:"seq"`
	Kind   TransferKind `json:"kind"`
	From   string       `json:"from"`
	To     string       `json:"to"`
	Amount int64        `json:"amount"`
}

// Snapshot is the full state of a session as seen by every subscriber.
// Clients reconcile off the whole roster, never a diff.
type Snapshot struct {
	Code         SessionCode   `json:"code"`
	Version      uint64        `json:"version"`
	Players      []PlayerView  `json:"players"`
	LastTransfer *TransferView `json:"lastTransfer,omitempty"`
}

// Snapshot builds the subscriber view of the session
func (s *Session) Snapshot() *Snapshot {
	players := make([]PlayerView, len(s.Players))
	for i, p := range s.Players {
		players[i] = PlayerView{
			ID:        p.ID,
			Name:      p.Name,
			Balance:   p.Balance,
			Connected: p.Connected(),
		}
	}

	snap := &Snapshot{
		Code:    s.Code,
		Version: s.Version,
		Players: players,
	}
	if t := s.LastTransfer; t != nil {
		snap.LastTransfer = &TransferView{
			Seq:    t.Seq,
			Kind:   t.Kind,
			From:   t.From,
			To:     t.To,
			Amount: t.Amount,
		}
	}
	return snap
}

// Balance returns the balance of the named player in the snapshot
func (s *Snapshot) Balance(name string) (int64, bool) {
	for _, p := range s.Players {
		if p.Name == name {
			return p.Balance, true
		}
	}
	return 0, false
}
