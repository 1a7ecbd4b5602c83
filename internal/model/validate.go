package model

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxSessionCodeLength bounds client-supplied game codes
	MaxSessionCodeLength = 16
	// MaxPlayerNameLength bounds display names, counted in runes
	MaxPlayerNameLength = 32
	// MaxAmount is the largest amount accepted in a single transfer (2^53-1, exact in JSON numbers)
	MaxAmount int64 = 1<<53 - 1
)

// NormalizeSessionCode trims and upper-cases a code, rejecting anything but ASCII letters and digits
func NormalizeSessionCode(raw string) (SessionCode, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return "", fmt.Errorf("%w: code is required", ErrInvalidSessionCode)
	}
	if len(code) > MaxSessionCodeLength {
		return "", fmt.Errorf("%w: at most %d characters", ErrInvalidSessionCode, MaxSessionCodeLength)
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("%w: only letters and digits allowed", ErrInvalidSessionCode)
		}
	}
	return SessionCode(code), nil
}

// NormalizePlayerName trims a display name and checks it is usable as a routing key
func NormalizePlayerName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidPlayerName)
	}
	if utf8.RuneCountInString(name) > MaxPlayerNameLength {
		return "", fmt.Errorf("%w: at most %d characters", ErrInvalidPlayerName, MaxPlayerNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%w: control characters not allowed", ErrInvalidPlayerName)
		}
	}
	if name == BankParty {
		return "", fmt.Errorf("%w: %q is reserved", ErrInvalidPlayerName, BankParty)
	}
	return name, nil
}

// ValidateAmount checks an amount is within (0, MaxAmount]
func ValidateAmount(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > MaxAmount {
		return fmt.Errorf("%w: at most %d", ErrInvalidAmount, MaxAmount)
	}
	return nil
}
