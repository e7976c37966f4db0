// Package password hashes and verifies account passwords with bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidInput is returned when an empty password is hashed.
var ErrInvalidInput = errors.New("password must not be empty")

// Hasher produces salted bcrypt encodings. The zero value is not usable; use New.
type Hasher struct {
	cost int
}

// New returns a Hasher with the given bcrypt cost. Out-of-range costs fall back
// to bcrypt.DefaultCost.
func New(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// ErrNoHasher is returned when Hash is called on a nil Hasher.
var ErrNoHasher = errors.New("password hasher is not configured")

// Cost returns the configured bcrypt cost, or 0 for a nil Hasher.
func (h *Hasher) Cost() int {
	if h == nil {
		return 0
	}
	return h.cost
}

// Hash encodes raw with a fresh random salt, so two calls never return the same value.
func (h *Hasher) Hash(raw string) (string, error) {
	if h == nil {
		return "", ErrNoHasher
	}
	if raw == "" {
		return "", ErrInvalidInput
	}
	b, err := bcrypt.GenerateFromPassword([]byte(raw), h.cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(b), nil
}

// Matches reports whether raw corresponds to encoded. Malformed encodings,
// empty input and a nil Hasher all yield false.
func (h *Hasher) Matches(raw, encoded string) bool {
	if h == nil || raw == "" || !IsHashed(encoded) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(raw)) == nil
}

// NeedsRehash reports whether encoded was produced with a different cost than h.
// A nil Hasher never asks for a rehash.
func (h *Hasher) NeedsRehash(encoded string) bool {
	if h == nil {
		return false
	}
	cost, err := bcrypt.Cost([]byte(encoded))
	if err != nil {
		return true
	}
	return cost != h.cost
}

// IsHashed reports whether value is structurally a bcrypt hash. Anything else is
// treated as a legacy plaintext password.
func IsHashed(value string) bool {
	if len(value) < 4 || value[0] != '$' || value[1] != '2' {
		return false
	}
	_, err := bcrypt.Cost([]byte(value))
	return err == nil
}
