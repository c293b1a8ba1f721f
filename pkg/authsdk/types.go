package authsdk

import "time"

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// LoginRequest authenticates with a username or an email address.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required,max=254"`
	Password   string `json:"password" validate:"required,max=128"`
}

// SessionResponse carries a new bearer token.
type SessionResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
	Subject     string    `json:"subject"`
	Role        string    `json:"role"`
}

// MeResponse describes the caller of an authenticated request.
type MeResponse struct {
	Subject   string    `json:"subject"`
	Role      string    `json:"role"`
	TokenID   string    `json:"token_id,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SignupRequest starts a signup. No account exists until the emailed code
// is verified.
type SignupRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Username    string `json:"username" validate:"required,min=3,max=32,alphanumunicode"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	DisplayName string `json:"display_name,omitempty" validate:"max=64"`
}

// VerifyRequest submits a six digit code.
type VerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,code"`
}

// EmailRequest names the address for resend and forgot-password calls.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,code"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

// AccountResponse is returned once a signup code verifies.
type AccountResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// AcceptedResponse acknowledges a request whose result arrives by email.
type AcceptedResponse struct {
	Status string `json:"status"`
}

// VerificationStatusResponse reports code-request quota for an email.
type VerificationStatusResponse struct {
	Limit         int        `json:"limit"`
	Used          int        `json:"used"`
	Remaining     int        `json:"remaining"`
	WindowSeconds int64      `json:"window_seconds"`
	ResetAt       *time.Time `json:"reset_at,omitempty"`
}

// HousekeepingResponse reports an on-demand sweep.
type HousekeepingResponse struct {
	RevokedTokensDeleted       int64     `json:"revoked_tokens_deleted"`
	VerificationEntriesDeleted int64     `json:"verification_entries_deleted"`
	RanAt                      time.Time `json:"ran_at"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks is the per-dependency readiness detail.
type HealthChecks struct {
	Database string `json:"database"`
	Notifier string `json:"notifier,omitempty"`
}
