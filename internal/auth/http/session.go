package http

import (
	"net/http"

	"github.com/aussiebroadwan/roomstay/internal/auth/service"
	"github.com/aussiebroadwan/roomstay/pkg/authsdk"
	"github.com/aussiebroadwan/roomstay/pkg/httpx"
)

// SessionHandler serves login, logout and the caller's identity.
type SessionHandler struct {
	Sessions *service.SessionService
}

// HandleLogin godoc
//
//	@Summary		Log in
//	@Description	Exchanges a username or email and password for a bearer token.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.SessionResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_credentials"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limited"
//	@Router			/v1/auth/login [post].
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	sess, err := h.Sessions.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.SessionResponse{
		AccessToken: sess.AccessToken,
		TokenType:   sess.TokenType,
		ExpiresIn:   sess.ExpiresIn,
		ExpiresAt:   sess.ExpiresAt,
		Subject:     sess.Subject,
		Role:        sess.Role.String(),
	})
}

// HandleLogout godoc
//
//	@Summary		Log out
//	@Description	Revokes the presented bearer token until it would have expired. Expired tokens may still be revoked.
//	@Tags			Session
//	@Security		BearerAuth
//	@Success		204
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Failure		409	{object}	authsdk.ErrorResponse	"conflict: already revoked"
//	@Router			/v1/auth/logout [post].
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Logout(r.Context(), httpx.BearerToken(r), ""); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe godoc
//
//	@Summary		Current caller
//	@Description	Returns the subject and role carried by a valid, unrevoked token.
//	@Tags			Session
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.MeResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token, token_expired or token_revoked"
//	@Router			/v1/auth/me [get].
func (h *SessionHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MeResponse{
		Subject:   p.Subject,
		Role:      p.Role.String(),
		TokenID:   p.TokenID,
		IssuedAt:  p.IssuedAt,
		ExpiresAt: p.ExpiresAt,
	})
}
