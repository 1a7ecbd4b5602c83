package model

import "time"

// BankParty is the sentinel counterparty for money created or destroyed by the bank
const BankParty = "Bank"

// TransferKind distinguishes peer transfers from bank operations
type TransferKind string

const (
	TransferPeer      TransferKind = "peer"
	TransferBankTake  TransferKind = "bank_take"  // loan: credits the player, creates money
	TransferBankRepay TransferKind = "bank_repay" // repayment: debits the player, destroys money
)

// BankDirection is the direction of a bank transfer
type BankDirection string

const (
	BankTake  BankDirection = "take"
	BankRepay BankDirection = "repay"
)

// ParseBankDirection converts a client flag into a BankDirection.
// "pay" is accepted as an alias of "repay".
func ParseBankDirection(flag string) (BankDirection, error) {
	switch flag {
	case "take":
		return BankTake, nil
	case "pay", "repay":
		return BankRepay, nil
	default:
		return "", ErrInvalidDirection
	}
}

// Transfer records one applied movement of money
type Transfer struct {
	ID     string
	Seq    uint64 // per-session sequence number, starts at 1
	Kind   TransferKind
	From   string   // player name or BankParty
	To     string   // player name or BankParty
	FromID PlayerID // empty when From is the bank
	ToID   PlayerID // empty when To is the bank
	Amount int64
	At     time.Time
}

// IsNewTransfer reports whether next describes a different transfer than prev.
// A change in any of sequence, sender, receiver or amount counts as new.
func IsNewTransfer(prev, next *Transfer) bool {
	if next == nil {
		return false
	}
	if prev == nil {
		return true
	}
	return prev.Seq != next.Seq ||
		prev.From != next.From ||
		prev.To != next.To ||
		prev.Amount != next.Amount
}
