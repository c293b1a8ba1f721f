//go:build e2e

package auth_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/roomstay/pkg/authsdk"
)

// TestSignupLoginLogout walks a guest from signup to a revoked session.
func TestSignupLoginLogout(t *testing.T) {
	svc := setupAuthContainer(t, relaxedLimits)
	ctx := t.Context()

	acct := svc.signupAndVerify(t, "alice", "alice@example.com")
	require.Equal(t, "alice", acct.Username)
	require.Equal(t, "GUEST", acct.Role)

	session, err := svc.client.Login(ctx, "alice", testPassword)
	require.NoError(t, err)
	require.Equal(t, "alice", session.Subject())

	me, err := session.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", me.Subject)
	require.Equal(t, "GUEST", me.Role)

	require.NoError(t, session.Logout(ctx))

	_, err = session.Me(ctx)
	assertAPIError(t, err, authsdk.ErrorCodeTokenRevoked, http.StatusUnauthorized)

	err = session.Logout(ctx)
	assertAPIError(t, err, authsdk.ErrorCodeConflict, http.StatusConflict)
}

// TestSignupResendInvalidatesOldCode verifies only the newest code works.
func TestSignupResendInvalidatesOldCode(t *testing.T) {
	svc := setupAuthContainer(t, relaxedLimits)
	ctx := t.Context()

	require.NoError(t, svc.client.Signup(ctx, authsdk.SignupRequest{
		Email:    "bob@example.com",
		Username: "bob",
		Password: testPassword,
	}))
	first := svc.latestCode(t, "bob@example.com", "SIGNUP")

	require.NoError(t, svc.client.ResendSignup(ctx, "bob@example.com"))
	second := svc.nextCode(t, "bob@example.com", "SIGNUP", first)

	_, err := svc.client.VerifySignup(ctx, "bob@example.com", first)
	assertAPIError(t, err, authsdk.ErrorCodeInvalidCode, http.StatusBadRequest)

	_, err = svc.client.VerifySignup(ctx, "bob@example.com", second)
	require.NoError(t, err)
}

// TestPasswordReset verifies a reset code replaces the password.
func TestPasswordReset(t *testing.T) {
	svc := setupAuthContainer(t, relaxedLimits)
	ctx := t.Context()

	svc.signupAndVerify(t, "carol", "carol@example.com")

	require.NoError(t, svc.client.ForgotPassword(ctx, "carol@example.com"))
	code := svc.latestCode(t, "carol@example.com", "PASSWORD_RESET")

	require.NoError(t, svc.client.ResetPassword(ctx, "carol@example.com", code, "a brand new password"))

	_, err := svc.client.Login(ctx, "carol", testPassword)
	assertAPIError(t, err, authsdk.ErrorCodeInvalidCredentials, http.StatusUnauthorized)

	_, err = svc.client.Login(ctx, "carol@example.com", "a brand new password")
	require.NoError(t, err)
}

// TestTokenExpiry verifies tokens stop working once their lifetime passes.
func TestTokenExpiry(t *testing.T) {
	svc := setupAuthContainer(t, relaxedLimits, map[string]string{"AUTH_TOKEN_TTL": "2s"})
	ctx := t.Context()

	svc.signupAndVerify(t, "dave", "dave@example.com")

	session, err := svc.client.Login(ctx, "dave", testPassword)
	require.NoError(t, err)

	time.Sleep(3 * time.Second)

	_, err = session.Me(ctx)
	assertAPIError(t, err, authsdk.ErrorCodeTokenExpired, http.StatusUnauthorized)

	// Expired tokens can still be revoked.
	require.NoError(t, session.Logout(ctx))
	_, err = session.Me(ctx)
	assertAPIError(t, err, authsdk.ErrorCodeTokenRevoked, http.StatusUnauthorized)
}
