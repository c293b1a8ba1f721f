package domain

import (
	"fmt"
	"strings"
	"time"
)

// Purpose distinguishes the flows a verification code can gate.
type Purpose string

const (
	PurposeSignup        Purpose = "SIGNUP"
	PurposePasswordReset Purpose = "PASSWORD_RESET"
)

const (
	// MaxVerificationAttempts is the number of guesses allowed per code.
	MaxVerificationAttempts = 3

	SignupCodeTTL        = 5 * time.Minute
	PasswordResetCodeTTL = 15 * time.Minute
)

// TTL returns how long a code issued for p stays valid.
func (p Purpose) TTL() time.Duration {
	if p == PurposePasswordReset {
		return PasswordResetCodeTTL
	}
	return SignupCodeTTL
}

func (p Purpose) Valid() bool {
	return p == PurposeSignup || p == PurposePasswordReset
}

// ParsePurpose accepts a purpose name in any case.
func ParsePurpose(s string) (Purpose, error) {
	p := Purpose(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown verification purpose %q", s)
	}
	return p, nil
}

// VerificationEntry is one in-flight one-time-code challenge for an
// (email, purpose) pair.
type VerificationEntry struct {
	ID      string
	Email   string
	Purpose Purpose
	Code    string

	// Pending account payload, signup only.
	PendingUsername     *string
	PendingPasswordHash *string
	PendingDisplayName  *string

	Attempts    int
	MaxAttempts int
	CreatedAt   time.Time
	ExpiresAt   time.Time
	Verified    bool
	VerifiedAt  *time.Time
}

// NewVerificationEntry builds a fresh entry issued at now.
func NewVerificationEntry(id, email string, purpose Purpose, code string, now time.Time) *VerificationEntry {
	return &VerificationEntry{
		ID:          id,
		Email:       email,
		Purpose:     purpose,
		Code:        code,
		MaxAttempts: MaxVerificationAttempts,
		CreatedAt:   now,
		ExpiresAt:   now.Add(purpose.TTL()),
	}
}

// IsExpired reports whether now is past the entry's expiry.
func (e *VerificationEntry) IsExpired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Exhausted reports whether every attempt has been used.
func (e *VerificationEntry) Exhausted() bool {
	return e.Attempts >= e.MaxAttempts
}

// CanAttempt is false iff the entry is verified, expired or exhausted.
func (e *VerificationEntry) CanAttempt(now time.Time) bool {
	return !e.Verified && !e.IsExpired(now) && !e.Exhausted()
}

// VerifyCode consumes one attempt and compares candidate to the code.
// Calls on an expired, exhausted or already verified entry return false
// without consuming an attempt.
func (e *VerificationEntry) VerifyCode(candidate string, now time.Time) bool {
	if !e.CanAttempt(now) {
		return false
	}

	e.Attempts++
	if candidate != e.Code {
		return false
	}

	e.Verified = true
	e.VerifiedAt = &now
	return true
}

// Regenerate restarts the challenge with a new code. The pending account
// payload is kept.
func (e *VerificationEntry) Regenerate(code string, now time.Time) {
	e.Code = code
	e.CreatedAt = now
	e.ExpiresAt = now.Add(e.Purpose.TTL())
	e.Attempts = 0
	e.Verified = false
	e.VerifiedAt = nil
}

// VerificationIssuance records one code being sent, for rate limiting.
type VerificationIssuance struct {
	ID       string
	Email    string
	Purpose  Purpose
	IssuedAt time.Time
}

// RateLimitStatus describes how many codes an email may still request.
type RateLimitStatus struct {
	Limit     int
	Used      int
	Remaining int
	Window    time.Duration
	ResetAt   *time.Time // nil when nothing has been issued in the window
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
