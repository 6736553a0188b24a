// Package token signs and verifies session tokens. A token is an HS256 JWT
// whose only meaningful claim is the session id; validity beyond the
// signature is decided by the registry (is the session id still held by a
// user), so revocation is a registry mutation rather than a token-store
// operation.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yourorg/collabcore/internal/domain"
)

// Claims carries the session id inside the signed envelope. The payload is
// integrity-protected, not confidential.
type Claims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// Manager issues and verifies tokens with a fixed process-wide secret.
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration // 0 means tokens never expire
}

// NewManager creates a token manager. ttl of zero disables expiry, which is
// the default: logout is the only mechanism that invalidates a token.
func NewManager(secret, issuer string, ttl time.Duration) *Manager {
	if issuer == "" {
		issuer = "collabcore"
	}
	return &Manager{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// Issue produces a signed token embedding sessionID.
func (m *Manager) Issue(sessionID string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("session id required")
	}
	now := time.Now()
	claims := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   m.issuer,
		},
	}
	if m.ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.ttl))
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and structure of tokenString and returns the
// embedded session id. Any failure is reported as a domain.AuthError; the
// caller still has to check the session against the registry.
func (m *Manager) Verify(tokenString string) (string, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", domain.Authf("invalid token: %v", err)
	}
	if !tok.Valid || claims.SessionID == "" {
		return "", domain.Authf("invalid token claims")
	}
	return claims.SessionID, nil
}
