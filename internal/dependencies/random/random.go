// Package random supplies the identifiers minted by the bank: short
// human-typeable game codes and player UUIDs.
package random

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

// Random provides random values that can be mocked for testing
type Random interface {
	// Code returns length characters drawn uniformly from alphabet
	Code(length int, alphabet string) string

	// UUID returns a fresh random identifier
	UUID() string
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Code returns "" if the system entropy source fails, which callers
// treat as a failed attempt.
func (r *CryptoRandom) Code(length int, alphabet string) string {
	if length <= 0 || len(alphabet) == 0 {
		return ""
	}
	size := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return ""
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out)
}

// UUID returns a version 4 UUID
func (r *CryptoRandom) UUID() string {
	return uuid.NewString()
}
