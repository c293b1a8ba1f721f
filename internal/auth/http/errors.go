package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/roomstay/internal/auth/service"
	"github.com/aussiebroadwan/roomstay/pkg/authsdk"
	"github.com/aussiebroadwan/roomstay/pkg/httpx"
	"github.com/aussiebroadwan/roomstay/pkg/jwtx"
	"github.com/aussiebroadwan/roomstay/pkg/slogx"
)

// apiError maps a service or token error onto the response the client sees.
// Anything unrecognised is a server error.
func apiError(err error) *authsdk.APIError {
	var verr *httpx.ValidationError
	switch {
	case errors.As(err, &verr):
		return authsdk.ErrInvalidRequest.WithDescription(verr.Error())
	case errors.Is(err, httpx.ErrBadJSON):
		return authsdk.ErrInvalidRequest.WithDescription(err.Error())
	case errors.Is(err, service.ErrInvalidRequest):
		return authsdk.ErrInvalidRequest

	case errors.Is(err, service.ErrMissingToken),
		errors.Is(err, jwtx.ErrEmpty),
		errors.Is(err, jwtx.ErrMalformed),
		errors.Is(err, jwtx.ErrUnsupportedAlg),
		errors.Is(err, jwtx.ErrInvalidSig):
		return authsdk.ErrInvalidToken
	case errors.Is(err, jwtx.ErrExpired):
		return authsdk.ErrTokenExpired
	case errors.Is(err, service.ErrBlacklisted):
		return authsdk.ErrTokenRevoked
	case errors.Is(err, service.ErrAlreadyRevoked):
		return authsdk.ErrConflict.WithDescription("the token has already been revoked")
	case errors.Is(err, service.ErrInvalidCredentials):
		return authsdk.ErrInvalidCredentials

	case errors.Is(err, service.ErrCodeMismatch):
		return authsdk.ErrInvalidCode
	case errors.Is(err, service.ErrVerificationNotFound):
		return authsdk.ErrVerificationNotFound
	case errors.Is(err, service.ErrCodeExpired):
		return authsdk.ErrCodeExpired
	case errors.Is(err, service.ErrAttemptsExhausted):
		return authsdk.ErrAttemptsExhausted
	case errors.Is(err, service.ErrRateLimited):
		return authsdk.ErrRateLimited
	case errors.Is(err, service.ErrEmailTaken):
		return authsdk.ErrConflict.WithDescription("an account with this email already exists")
	case errors.Is(err, service.ErrUsernameTaken):
		return authsdk.ErrConflict.WithDescription("this username is taken")
	}
	return authsdk.ErrServerError
}

// writeError renders err, logging the ones that are our fault.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := apiError(err)
	if e.StatusCode >= 500 {
		slogx.FromContext(r.Context()).Error("request failed", "error", err)
	}
	e.WriteError(w)
}
