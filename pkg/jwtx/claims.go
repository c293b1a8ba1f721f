package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is the lifetime of a session token when the codec is
// not configured otherwise.
const DefaultSessionTTL = time.Hour

// Claims are the session-token claims. Subject carries the username.
type Claims struct {
	jwt.RegisteredClaims

	// Role of the account at the time of issue ("GUEST", "HOST", "ADMIN").
	Role string `json:"role,omitempty"`
}

// NewSessionClaims builds claims for a token issued at now. The issue time
// is truncated to the second so exp - iat equals ttl exactly once encoded.
func NewSessionClaims(subject, role, issuer string, ttl time.Duration, now time.Time) Claims {
	iat := now.UTC().Truncate(time.Second)
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(ttl)),
			ID:        NewJTI(),
		},
		Role: role,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim. Two
// tokens for the same subject in the same second still differ.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// Expiry returns the exp claim, or the zero time when absent.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
