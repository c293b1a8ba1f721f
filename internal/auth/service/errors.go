package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidRequest     = errors.New("invalid_request")

	// Session errors. Token validation failures come from jwtx as-is.
	ErrMissingToken   = errors.New("missing_token")
	ErrBlacklisted    = errors.New("token_revoked")
	ErrAlreadyRevoked = errors.New("already_revoked")

	// Verification errors.
	ErrVerificationNotFound = errors.New("verification_not_found")
	ErrCodeExpired          = errors.New("code_expired")
	ErrAttemptsExhausted    = errors.New("attempts_exhausted")
	ErrCodeMismatch         = errors.New("invalid_code")
	ErrRateLimited          = errors.New("rate_limited")
	ErrEmailTaken           = errors.New("email_taken")
	ErrUsernameTaken        = errors.New("username_taken")
)
