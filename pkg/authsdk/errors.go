package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/roomstay/pkg/httpx"
)

// Error codes returned in ErrorResponse.Error.
const (
	ErrorCodeInvalidRequest       = "invalid_request"
	ErrorCodeInvalidToken         = "invalid_token"
	ErrorCodeTokenExpired         = "token_expired"
	ErrorCodeTokenRevoked         = "token_revoked"
	ErrorCodeInvalidCredentials   = "invalid_credentials"
	ErrorCodeInvalidCode          = "invalid_code"
	ErrorCodeVerificationNotFound = "verification_not_found"
	ErrorCodeCodeExpired          = "code_expired"
	ErrorCodeAttemptsExhausted    = "attempts_exhausted"
	ErrorCodeRateLimited          = "rate_limited"
	ErrorCodeConflict             = "conflict"
	ErrorCodeForbidden            = "forbidden"
	ErrorCodeServerError          = "server_error"
)

// APIError is an error response. The service writes them and the client
// returns them.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes e as the response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	if e.StatusCode == http.StatusUnauthorized {
		httpx.WriteBearerChallenge(w, e.Code)
	}
	httpx.WriteError(w, e.StatusCode, e.Code, e.Description)
}

// WithDescription returns a copy of e with a different description.
func (e *APIError) WithDescription(desc string) *APIError {
	c := *e
	c.Description = desc
	return &c
}

func newAPIError(status int, code, desc string) *APIError {
	return &APIError{StatusCode: status, Code: code, Description: desc}
}

var (
	ErrInvalidRequest       = newAPIError(http.StatusBadRequest, ErrorCodeInvalidRequest, "the request is malformed or missing required fields")
	ErrInvalidToken         = newAPIError(http.StatusUnauthorized, ErrorCodeInvalidToken, "the access token is missing or invalid")
	ErrTokenExpired         = newAPIError(http.StatusUnauthorized, ErrorCodeTokenExpired, "the access token has expired")
	ErrTokenRevoked         = newAPIError(http.StatusUnauthorized, ErrorCodeTokenRevoked, "the access token has been revoked")
	ErrInvalidCredentials   = newAPIError(http.StatusUnauthorized, ErrorCodeInvalidCredentials, "invalid username, email or password")
	ErrInvalidCode          = newAPIError(http.StatusBadRequest, ErrorCodeInvalidCode, "the verification code is incorrect")
	ErrVerificationNotFound = newAPIError(http.StatusNotFound, ErrorCodeVerificationNotFound, "no pending verification for this email")
	ErrCodeExpired          = newAPIError(http.StatusGone, ErrorCodeCodeExpired, "the verification code has expired, request a new one")
	ErrAttemptsExhausted    = newAPIError(http.StatusTooManyRequests, ErrorCodeAttemptsExhausted, "too many incorrect attempts, request a new code")
	ErrRateLimited          = newAPIError(http.StatusTooManyRequests, ErrorCodeRateLimited, "too many codes requested, try again later")
	ErrConflict             = newAPIError(http.StatusConflict, ErrorCodeConflict, "the resource already exists")
	ErrForbidden            = newAPIError(http.StatusForbidden, ErrorCodeForbidden, "insufficient role")
	ErrServerError          = newAPIError(http.StatusInternalServerError, ErrorCodeServerError, "internal server error")
)

// IsCode reports whether err is an APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Code: er.Error, Description: er.ErrorDescription}
	}
	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
