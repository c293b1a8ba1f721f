package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/roomstay/internal/auth/domain"
	"github.com/aussiebroadwan/roomstay/internal/auth/service"
	"github.com/aussiebroadwan/roomstay/pkg/authsdk"
	"github.com/aussiebroadwan/roomstay/pkg/httpx"
)

var accepted = authsdk.AcceptedResponse{Status: "accepted"}

// VerificationHandler serves the signup and password-reset code flows.
type VerificationHandler struct {
	Verifications *service.VerificationService
}

// HandleSignup godoc
//
//	@Summary		Start signup
//	@Description	Records a pending account and emails a six digit code. The account is created only when the code is verified.
//	@Tags			Signup
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.SignupRequest	true	"Pending account"
//	@Success		202		{object}	authsdk.AcceptedResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		409		{object}	authsdk.ErrorResponse	"conflict"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limited"
//	@Router			/v1/auth/signup [post].
func (h *VerificationHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SignupRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	err := h.Verifications.InitiateSignup(r.Context(), service.SignupRequest{
		Email:       req.Email,
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, accepted)
}

// HandleVerifySignup godoc
//
//	@Summary		Verify signup code
//	@Description	Consumes one attempt. On success the account is created and the code can no longer be used.
//	@Tags			Signup
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.VerifyRequest	true	"Email and code"
//	@Success		201		{object}	authsdk.AccountResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_code"
//	@Failure		404		{object}	authsdk.ErrorResponse	"verification_not_found"
//	@Failure		410		{object}	authsdk.ErrorResponse	"code_expired"
//	@Failure		429		{object}	authsdk.ErrorResponse	"attempts_exhausted"
//	@Router			/v1/auth/signup/verify [post].
func (h *VerificationHandler) HandleVerifySignup(w http.ResponseWriter, r *http.Request) {
	var req authsdk.VerifyRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	acct, err := h.Verifications.VerifySignup(r.Context(), req.Email, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, authsdk.AccountResponse{
		ID:          acct.ID,
		Username:    acct.Username,
		Email:       acct.Email,
		DisplayName: acct.DisplayName,
		Role:        acct.Role.String(),
		CreatedAt:   acct.CreatedAt,
	})
}

// HandleResendSignup godoc
//
//	@Summary		Resend signup code
//	@Description	Replaces the pending code with a new one and restores all attempts. Counts towards the hourly limit.
//	@Tags			Signup
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.EmailRequest	true	"Email"
//	@Success		202		{object}	authsdk.AcceptedResponse
//	@Failure		404		{object}	authsdk.ErrorResponse	"verification_not_found"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limited"
//	@Router			/v1/auth/signup/resend [post].
func (h *VerificationHandler) HandleResendSignup(w http.ResponseWriter, r *http.Request) {
	var req authsdk.EmailRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Verifications.Resend(r.Context(), req.Email, domain.PurposeSignup); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, accepted)
}

// HandleStatus godoc
//
//	@Summary		Code request quota
//	@Description	Reports how many more codes may be requested for an email in the current hour.
//	@Tags			Signup
//	@Produce		json
//	@Param			email	query		string	true	"Email"
//	@Success		200		{object}	authsdk.VerificationStatusResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Router			/v1/auth/verification/status [get].
func (h *VerificationHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	req := authsdk.EmailRequest{Email: r.URL.Query().Get("email")}
	if err := httpx.Validate(req); err != nil {
		writeError(w, r, err)
		return
	}

	st, err := h.Verifications.RateLimitStatus(r.Context(), req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.VerificationStatusResponse{
		Limit:         st.Limit,
		Used:          st.Used,
		Remaining:     st.Remaining,
		WindowSeconds: int64(st.Window.Seconds()),
		ResetAt:       st.ResetAt,
	})
}

// HandleForgotPassword godoc
//
//	@Summary		Request password reset
//	@Description	Emails a reset code when the address is registered. The response is the same either way.
//	@Tags			Password
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.EmailRequest	true	"Email"
//	@Success		202		{object}	authsdk.AcceptedResponse
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limited"
//	@Router			/v1/auth/password/forgot [post].
func (h *VerificationHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.EmailRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Verifications.InitiatePasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, accepted)
}

// HandleResendPasswordReset godoc
//
//	@Summary		Resend password reset code
//	@Description	Replaces a pending reset code. Unknown emails get the same response.
//	@Tags			Password
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.EmailRequest	true	"Email"
//	@Success		202		{object}	authsdk.AcceptedResponse
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limited"
//	@Router			/v1/auth/password/resend [post].
func (h *VerificationHandler) HandleResendPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req authsdk.EmailRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	err := h.Verifications.Resend(r.Context(), req.Email, domain.PurposePasswordReset)
	if err != nil && !errors.Is(err, service.ErrVerificationNotFound) {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, accepted)
}

// HandleResetPassword godoc
//
//	@Summary		Reset password
//	@Description	Sets a new password using an emailed reset code. Sessions issued before the reset stay valid until they expire.
//	@Tags			Password
//	@Accept			json
//	@Param			request	body	authsdk.ResetPasswordRequest	true	"Email, code and new password"
//	@Success		204
//	@Failure		400	{object}	authsdk.ErrorResponse	"invalid_code or invalid_request"
//	@Failure		410	{object}	authsdk.ErrorResponse	"code_expired"
//	@Failure		429	{object}	authsdk.ErrorResponse	"attempts_exhausted"
//	@Router			/v1/auth/password/reset [post].
func (h *VerificationHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ResetPasswordRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	err := h.Verifications.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword)
	if errors.Is(err, service.ErrVerificationNotFound) {
		// Same answer as a wrong code, so the endpoint cannot be used to
		// probe for registered emails.
		err = service.ErrCodeMismatch
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
