package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/roomstay/internal/auth/domain"
	"github.com/aussiebroadwan/roomstay/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/roomstay/pkg/cryptox"
	"github.com/aussiebroadwan/roomstay/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentCode struct {
	Email, Code, DisplayName string
	Purpose                  domain.Purpose
}

type recordingNotifier struct {
	mu       sync.Mutex
	codes    []sentCode
	welcomes []string
	fail     bool
}

func (n *recordingNotifier) SendCode(_ context.Context, email, code, displayName string, purpose domain.Purpose) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp down")
	}
	n.codes = append(n.codes, sentCode{email, code, displayName, purpose})
	return nil
}

func (n *recordingNotifier) SendWelcome(_ context.Context, email, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp down")
	}
	n.welcomes = append(n.welcomes, email)
	return nil
}

func (n *recordingNotifier) lastCode(t *testing.T) sentCode {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.codes, "no code was sent")
	return n.codes[len(n.codes)-1]
}

// codeSequence hands out codes in order, then falls back to random ones.
func codeSequence(codes ...string) func() (string, error) {
	var mu sync.Mutex
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(codes) == 0 {
			return cryptox.GenerateCode()
		}
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
}

type fixture struct {
	store        *sqlite.Store
	clock        *fakeClock
	notifier     *recordingNotifier
	hasher       *cryptox.PasswordHasher
	codec        *jwtx.Codec
	revocations  *RevocationService
	sessions     *SessionService
	verification *VerificationService
}

func newFixture(t *testing.T, codes ...string) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	clock := newFakeClock()
	hasher := cryptox.NewPasswordHasher("test-pepper")
	codec, err := jwtx.NewHS256Codec(testSecret, jwtx.CodecOptions{
		Issuer: "roomstay-test",
		TTL:    time.Hour,
		Now:    clock.Now,
	})
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	revocations := &RevocationService{Store: st, Clock: clock.Now}

	return &fixture{
		store:       st,
		clock:       clock,
		notifier:    notifier,
		hasher:      hasher,
		codec:       codec,
		revocations: revocations,
		sessions: &SessionService{
			Codec:         codec,
			Revocations:   revocations,
			Authenticator: &AccountAuthenticator{Store: st, Hasher: hasher},
		},
		verification: &VerificationService{
			Store:        st,
			Hasher:       hasher,
			Notifier:     notifier,
			Clock:        clock.Now,
			GenerateCode: codeSequence(codes...),
		},
	}
}

// createAccount signs alice up through the verification flow.
func (f *fixture) createAccount(t *testing.T, username, email, password string) domain.Account {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, f.verification.InitiateSignup(ctx, SignupRequest{
		Email:    email,
		Username: username,
		Password: password,
	}))
	acct, err := f.verification.VerifySignup(ctx, email, f.notifier.lastCode(t).Code)
	require.NoError(t, err)
	return acct
}
