package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/roomstay/internal/auth/domain"
	authhttp "github.com/aussiebroadwan/roomstay/internal/auth/http"
	"github.com/aussiebroadwan/roomstay/internal/auth/service"
	"github.com/aussiebroadwan/roomstay/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/roomstay/pkg/authsdk"
	"github.com/aussiebroadwan/roomstay/pkg/cryptox"
	"github.com/aussiebroadwan/roomstay/pkg/idx"
	"github.com/aussiebroadwan/roomstay/pkg/jwtx"
	"github.com/aussiebroadwan/roomstay/pkg/slogx"
)

type capturingNotifier struct {
	mu    sync.Mutex
	codes map[string]string
}

func (n *capturingNotifier) SendCode(_ context.Context, email, code, _ string, _ domain.Purpose) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes[email] = code
	return nil
}

func (n *capturingNotifier) SendWelcome(context.Context, string, string) error { return nil }

func (n *capturingNotifier) code(t *testing.T, email string) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	c, ok := n.codes[email]
	require.True(t, ok, "no code sent to %s", email)
	return c
}

type testServer struct {
	client   *authsdk.SDKClient
	store    *sqlite.Store
	hasher   *cryptox.PasswordHasher
	notifier *capturingNotifier
}

func newTestServer(t *testing.T, limits authhttp.RateLimits) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	hasher := cryptox.NewPasswordHasher("test-pepper")
	codec, err := jwtx.NewHS256Codec([]byte("0123456789abcdef0123456789abcdef"), jwtx.CodecOptions{
		Issuer: "roomstay-test",
		TTL:    time.Hour,
	})
	require.NoError(t, err)

	notifier := &capturingNotifier{codes: map[string]string{}}
	revocations := &service.RevocationService{Store: st}
	verifications := &service.VerificationService{
		Store:    st,
		Hasher:   hasher,
		Notifier: notifier,
	}

	logger := slogx.Discard()
	router := authhttp.NewRouter("test", st, logger)
	router.Sessions = &service.SessionService{
		Codec:         codec,
		Revocations:   revocations,
		Authenticator: &service.AccountAuthenticator{Store: st, Hasher: hasher},
	}
	router.Verifications = verifications
	router.Housekeeping = service.NewHousekeepingService(revocations, verifications, logger, "", "")
	router.Limits = limits
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{
		client:   authsdk.NewSDKClient(srv.URL),
		store:    st,
		hasher:   hasher,
		notifier: notifier,
	}
}

// unlimited disables every throttle.
var unlimited = authhttp.RateLimits{}

func (s *testServer) signup(t *testing.T, username, email, password string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.client.Signup(ctx, authsdk.SignupRequest{
		Email:    email,
		Username: username,
		Password: password,
	}))
	_, err := s.client.VerifySignup(ctx, email, s.notifier.code(t, email))
	require.NoError(t, err)
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, authsdk.IsCode(err, code), "want %s, got %v", code, err)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, unlimited)
	ctx := context.Background()

	require.NoError(t, s.client.Signup(ctx, authsdk.SignupRequest{
		Email:       "Alice@Example.com",
		Username:    "alice",
		Password:    "correct horse",
		DisplayName: "Alice",
	}))

	acct, err := s.client.VerifySignup(ctx, "alice@example.com", s.notifier.code(t, "alice@example.com"))
	require.NoError(t, err)
	require.Equal(t, "alice", acct.Username)
	require.Equal(t, "alice@example.com", acct.Email)
	require.Equal(t, "Alice", acct.DisplayName)
	require.Equal(t, "GUEST", acct.Role)

	_, err = s.client.Login(ctx, "alice", "wrong password")
	requireCode(t, err, authsdk.ErrorCodeInvalidCredentials)

	sess, err := s.client.Login(ctx, "alice@example.com", "correct horse")
	require.NoError(t, err)
	require.Equal(t, "alice", sess.Subject())
	require.Equal(t, "GUEST", sess.Role())

	me, err := sess.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", me.Subject)
	require.NotEmpty(t, me.TokenID)

	require.NoError(t, sess.Logout(ctx))

	_, err = sess.Me(ctx)
	requireCode(t, err, authsdk.ErrorCodeTokenRevoked)

	err = sess.Logout(ctx)
	requireCode(t, err, authsdk.ErrorCodeConflict)

	// A fresh login is unaffected by the earlier revocation.
	again, err := s.client.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)
	_, err = again.Me(ctx)
	require.NoError(t, err)
}

func TestMe_BadTokens(t *testing.T) {
	s := newTestServer(t, unlimited)
	ctx := context.Background()

	_, err := s.client.NewSession("", time.Time{}).Me(ctx)
	requireCode(t, err, authsdk.ErrorCodeInvalidToken)

	_, err = s.client.NewSession("not-a-jwt", time.Time{}).Me(ctx)
	requireCode(t, err, authsdk.ErrorCodeInvalidToken)

	err = s.client.NewSession("not-a-jwt", time.Time{}).Logout(ctx)
	requireCode(t, err, authsdk.ErrorCodeInvalidToken)
}

func TestSignup_Errors(t *testing.T) {
	s := newTestServer(t, unlimited)
	ctx := context.Background()

	err := s.client.Signup(ctx, authsdk.SignupRequest{Email: "not-an-email", Username: "bob", Password: "long enough"})
	requireCode(t, err, authsdk.ErrorCodeInvalidRequest)

	s.signup(t, "bob", "bob@example.com", "long enough")

	err = s.client.Signup(ctx, authsdk.SignupRequest{Email: "bob@example.com", Username: "bobby", Password: "long enough"})
	requireCode(t, err, authsdk.ErrorCodeConflict)

	err = s.client.Signup(ctx, authsdk.SignupRequest{Email: "other@example.com", Username: "bob", Password: "long enough"})
	requireCode(t, err, authsdk.ErrorCodeConflict)

	_, err = s.client.VerifySignup(ctx, "nobody@example.com", "123456")
	requireCode(t, err, authsdk.ErrorCodeVerificationNotFound)

	err = s.client.ResendSignup(ctx, "nobody@example.com")
	requireCode(t, err, authsdk.ErrorCodeVerificationNotFound)
}

func TestVerifySignup_WrongCodeThenExhausted(t *testing.T) {
	s := newTestServer(t, unlimited)
	ctx := context.Background()

	require.NoError(t, s.client.Signup(ctx, authsdk.SignupRequest{
		Email: "carol@example.com", Username: "carol", Password: "long enough",
	}))
	good := s.notifier.code(t, "carol@example.com")
	wrong := "000000"
	if good == wrong {
		wrong = "111111"
	}

	for range domain.MaxVerificationAttempts {
		_, err := s.client.VerifySignup(ctx, "carol@example.com", wrong)
		requireCode(t, err, authsdk.ErrorCodeInvalidCode)
	}

	_, err := s.client.VerifySignup(ctx, "carol@example.com", good)
	requireCode(t, err, authsdk.ErrorCodeAttemptsExhausted)

	require.NoError(t, s.client.ResendSignup(ctx, "carol@example.com"))
	_, err = s.client.VerifySignup(ctx, "carol@example.com", s.notifier.code(t, "carol@example.com"))
	require.NoError(t, err)
}

func TestVerificationStatus(t *testing.T) {
	s := newTestServer(t, unlimited)
	ctx := context.Background()

	st, err := s.client.VerificationStatus(ctx, "dave@example.com")
	require.NoError(t, err)
	require.Equal(t, service.DefaultIssuanceLimit, st.Remaining)
	require.Nil(t, st.ResetAt)

	require.NoError(t, s.client.Signup(ctx, authsdk.SignupRequest{
		Email: "dave@example.com", Username: "dave", Password: "long enough",
	}))

	st, err = s.client.VerificationStatus(ctx, "dave@example.com")
	require.NoError(t, err)
	require.Equal(t, 1, st.Used)
	require.Equal(t, service.DefaultIssuanceLimit-1, st.Remaining)
	require.Equal(t, int64(time.Hour.Seconds()), st.WindowSeconds)
	require.NotNil(t, st.ResetAt)

	for range service.DefaultIssuanceLimit - 1 {
		require.NoError(t, s.client.ResendSignup(ctx, "dave@example.com"))
	}
	err = s.client.ResendSignup(ctx, "dave@example.com")
	requireCode(t, err, authsdk.ErrorCodeRateLimited)

	_, err = s.client.VerificationStatus(ctx, "")
	requireCode(t, err, authsdk.ErrorCodeInvalidRequest)
}

func TestPasswordReset(t *testing.T) {
	s := newTestServer(t, unlimited)
	ctx := context.Background()

	s.signup(t, "erin", "erin@example.com", "old password")

	// Unknown emails look the same as known ones.
	require.NoError(t, s.client.ForgotPassword(ctx, "ghost@example.com"))
	require.NoError(t, s.client.ResendPasswordReset(ctx, "ghost@example.com"))
	err := s.client.ResetPassword(ctx, "ghost@example.com", "123456", "new password")
	requireCode(t, err, authsdk.ErrorCodeInvalidCode)

	require.NoError(t, s.client.ForgotPassword(ctx, "erin@example.com"))
	code := s.notifier.code(t, "erin@example.com")

	err = s.client.ResetPassword(ctx, "erin@example.com", code, "short")
	requireCode(t, err, authsdk.ErrorCodeInvalidRequest)

	require.NoError(t, s.client.ResetPassword(ctx, "erin@example.com", code, "new password"))

	_, err = s.client.Login(ctx, "erin", "old password")
	requireCode(t, err, authsdk.ErrorCodeInvalidCredentials)
	_, err = s.client.Login(ctx, "erin", "new password")
	require.NoError(t, err)

	err = s.client.ResetPassword(ctx, "erin@example.com", code, "another password")
	requireCode(t, err, authsdk.ErrorCodeInvalidCode)
}

func TestHousekeeping_RequiresAdmin(t *testing.T) {
	s := newTestServer(t, unlimited)
	ctx := context.Background()

	s.signup(t, "frank", "frank@example.com", "long enough")
	guest, err := s.client.Login(ctx, "frank", "long enough")
	require.NoError(t, err)

	_, err = guest.RunHousekeeping(ctx)
	requireCode(t, err, authsdk.ErrorCodeForbidden)

	hash, err := s.hasher.Hash("admin password")
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, s.store.Accounts().CreateAccount(ctx, domain.Account{
		ID:           idx.New().String(),
		Username:     "root",
		Email:        "root@example.com",
		DisplayName:  "root",
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))

	admin, err := s.client.Login(ctx, "root", "admin password")
	require.NoError(t, err)
	report, err := admin.RunHousekeeping(ctx)
	require.NoError(t, err)
	require.Zero(t, report.RevokedTokensDeleted)
	require.False(t, report.RanAt.IsZero())
}

func TestLogin_RateLimited(t *testing.T) {
	limits := authhttp.RateLimits{
		Strict: authhttp.DefaultRateLimits().Strict,
	}
	limits.Strict.RequestsPerWindow, limits.Strict.Burst = 2, 2
	s := newTestServer(t, limits)
	ctx := context.Background()

	for range 2 {
		_, err := s.client.Login(ctx, "mallory", "guess")
		requireCode(t, err, authsdk.ErrorCodeInvalidCredentials)
	}
	_, err := s.client.Login(ctx, "mallory", "guess")
	requireCode(t, err, authsdk.ErrorCodeRateLimited)

	// The bucket is per identifier, so another account is unaffected.
	_, err = s.client.Login(ctx, "someone-else", "guess")
	requireCode(t, err, authsdk.ErrorCodeInvalidCredentials)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, unlimited)
	ctx := context.Background()

	live, err := s.client.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)

	ready, err := s.client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Checks.Database)

	require.NoError(t, s.store.Close())
	_, err = s.client.GetReadiness(ctx)
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}
