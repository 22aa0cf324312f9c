package resettoken

import (
	"crypto/sha256"

	"golang.org/x/crypto/bcrypt"
)

// Bcrypt token hasher
// Will be used as default one if user not provide it's own
// Token is prehashed with sha256 so inputs longer than 72 bytes are not truncated by bcrypt
type BcryptHasher struct {
	// bcrypt.DefaultCost if zero
	Cost int
}

func (h BcryptHasher) Hash(token string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	sum := sha256.Sum256([]byte(token))
	hash, err := bcrypt.GenerateFromPassword(sum[:], cost)
	return string(hash), err
}

func (h BcryptHasher) Compare(hashedToken string, token string) error {
	sum := sha256.Sum256([]byte(token))
	return bcrypt.CompareHashAndPassword([]byte(hashedToken), sum[:])
}
