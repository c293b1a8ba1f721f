package domain

import "time"

// Session is what login hands back to the client.
type Session struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"` // always "Bearer"
	ExpiresIn   int64     `json:"expires_in"` // seconds until expiry
	ExpiresAt   time.Time `json:"expires_at"`
	Subject     string    `json:"subject"`
	Role        Role      `json:"role"`
}

// Principal is the identity carried by a validated request.
type Principal struct {
	Subject   string
	Role      Role
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RevokedToken is a blacklisted session token. Only the fingerprint of
// the token is kept.
type RevokedToken struct {
	ID          string
	Fingerprint string // hex SHA-256
	SubjectID   *string
	Reason      string
	ExpiresAt   time.Time
	RevokedAt   time.Time
}

// RevokeReasonLogout is recorded for tokens revoked through logout.
const RevokeReasonLogout = "logout"
