// Package password is the credential codec: one-way hashing and verification
// of user passwords. Digests are bcrypt strings carrying their own salt and
// cost, so verification needs nothing beyond the digest itself.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Codec hashes and verifies passwords at a fixed bcrypt cost.
type Codec struct {
	cost int
}

// NewCodec creates a codec. A cost outside bcrypt's valid range falls back
// to bcrypt.DefaultCost.
func NewCodec(cost int) *Codec {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Codec{cost: cost}
}

// Hash returns the bcrypt digest of password.
func (c *Codec) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether password matches digest. Malformed digests simply
// fail verification.
func (c *Codec) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
