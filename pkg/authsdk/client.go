package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SDKClient calls the unauthenticated auth endpoints and opens Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient returns a client for the service at baseURL.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Login authenticates with a username or email and opens a Session.
func (c *SDKClient) Login(ctx context.Context, identifier, password string) (*Session, error) {
	var resp SessionResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/auth/login", "",
		LoginRequest{Identifier: identifier, Password: password}, &resp, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return newSession(c, resp), nil
}

// NewSession wraps a token obtained elsewhere.
func (c *SDKClient) NewSession(accessToken string, expiresAt time.Time) *Session {
	return &Session{client: c, accessToken: accessToken, expiresAt: expiresAt}
}

// Signup starts a signup and sends a code to req.Email.
func (c *SDKClient) Signup(ctx context.Context, req SignupRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/auth/signup", "", req, nil, http.StatusAccepted)
}

// VerifySignup submits the emailed code and returns the new account.
func (c *SDKClient) VerifySignup(ctx context.Context, email, code string) (*AccountResponse, error) {
	var acct AccountResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/auth/signup/verify", "",
		VerifyRequest{Email: email, Code: code}, &acct, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// ResendSignup replaces the pending signup code with a fresh one.
func (c *SDKClient) ResendSignup(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/auth/signup/resend", "", EmailRequest{Email: email}, nil, http.StatusAccepted)
}

// VerificationStatus reports how many more codes email may request.
func (c *SDKClient) VerificationStatus(ctx context.Context, email string) (*VerificationStatusResponse, error) {
	var status VerificationStatusResponse
	path := "/v1/auth/verification/status?email=" + url.QueryEscape(email)
	if err := c.doJSON(ctx, http.MethodGet, path, "", nil, &status, http.StatusOK); err != nil {
		return nil, err
	}
	return &status, nil
}

// ForgotPassword requests a reset code. It succeeds whether or not the
// email is registered.
func (c *SDKClient) ForgotPassword(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/auth/password/forgot", "", EmailRequest{Email: email}, nil, http.StatusAccepted)
}

// ResendPasswordReset replaces a pending reset code.
func (c *SDKClient) ResendPasswordReset(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/auth/password/resend", "", EmailRequest{Email: email}, nil, http.StatusAccepted)
}

// ResetPassword sets a new password using an emailed code.
func (c *SDKClient) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/auth/password/reset", "",
		ResetPasswordRequest{Email: email, Code: code, NewPassword: newPassword}, nil, http.StatusNoContent)
}
