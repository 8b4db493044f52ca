package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher is the one-way password hashing capability.
type Hasher interface {
	Hash(raw string) (string, error)
	Verify(raw, hash string) bool
}

// BcryptHasher hashes passwords with bcrypt at a configurable work factor.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using cost, falling back to
// bcrypt.DefaultCost when cost is out of range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns a bcrypt hash of the provided password.
func (h *BcryptHasher) Hash(raw string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(raw), h.cost)
	return string(bytes), err
}

// Verify compares a bcrypt hashed password with its possible plaintext equivalent.
func (h *BcryptHasher) Verify(raw, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}
