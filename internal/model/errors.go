package model

import "errors"

// Common errors used across the application
var (
	// Validation errors
	ErrInvalidSessionCode = errors.New("invalid game code")
	ErrInvalidPlayerName  = errors.New("invalid player name")
	ErrInvalidAmount      = errors.New("amount must be a positive integer")
	ErrInvalidDirection   = errors.New("bank transfer flag must be take or pay")
	ErrBalanceOverflow    = errors.New("balance would overflow")
	ErrMalformedMessage   = errors.New("malformed message")

	// Lookup errors
	ErrSessionNotFound = errors.New("game not found")
	ErrPlayerNotFound  = errors.New("player not found")

	// Ledger errors
	ErrSessionFull       = errors.New("game is full")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrSameParty         = errors.New("cannot transfer to yourself")

	// Storage errors
	ErrGameRecordNotFound = errors.New("game record not found")

	// ErrInternal is surfaced to callers for unexpected faults
	ErrInternal = errors.New("internal error")
)

// ErrorKind classifies errors reported back to the initiating connection
type ErrorKind string

const (
	KindValidation        ErrorKind = "VALIDATION"
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindCapacityExceeded  ErrorKind = "CAPACITY_EXCEEDED"
	KindInsufficientFunds ErrorKind = "INSUFFICIENT_FUNDS"
	KindSameParty         ErrorKind = "SAME_PARTY"
	KindInternal          ErrorKind = "INTERNAL"
)

// KindOf returns the kind of err. Unknown errors are internal.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrInvalidSessionCode),
		errors.Is(err, ErrInvalidPlayerName),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidDirection),
		errors.Is(err, ErrBalanceOverflow),
		errors.Is(err, ErrMalformedMessage):
		return KindValidation
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrPlayerNotFound),
		errors.Is(err, ErrGameRecordNotFound):
		return KindNotFound
	case errors.Is(err, ErrSessionFull):
		return KindCapacityExceeded
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrSameParty):
		return KindSameParty
	default:
		return KindInternal
	}
}
