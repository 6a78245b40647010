// Package auth issues and validates the signed session tokens that bind a
// driver/vehicle/company identity to every authenticated request.
package auth

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails validation: bad
// signature, wrong algorithm, malformed payload, or expired timestamp.
var ErrInvalidToken = errors.New("invalid token")

// Manager signs and verifies session tokens.
type Manager struct {
	secret     []byte
	sessionTTL time.Duration
}

// NewManager creates a token manager. The secret must be non-empty.
func NewManager(secret string, sessionTTL time.Duration) *Manager {
	s := strings.TrimSpace(secret)
	if s == "" {
		panic("auth: empty token secret")
	}
	return &Manager{secret: []byte(s), sessionTTL: sessionTTL}
}

// SessionTTL returns the configured token lifetime.
func (m *Manager) SessionTTL() time.Duration {
	return m.sessionTTL
}

// Issue returns a signed HS256 session token for the given identity.
func (m *Manager) Issue(userID, driverID, companyID, vehicleID, role string) (string, *Claims, error) {
	claims := NewSessionClaims(userID, driverID, companyID, vehicleID, role, m.sessionTTL)
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Verify validates signature, algorithm and expiry, returning the claims.
// Any failure collapses to ErrInvalidToken so callers cannot distinguish
// forged tokens from expired ones.
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	parser := jwtlib.NewParser(jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}))

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwtlib.Token) (any, error) {
		if t.Method != jwtlib.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
