package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/roomstay/internal/auth/domain"
	"github.com/aussiebroadwan/roomstay/internal/auth/store"
	"github.com/aussiebroadwan/roomstay/pkg/cryptox"
	"github.com/aussiebroadwan/roomstay/pkg/idx"
	"github.com/aussiebroadwan/roomstay/pkg/slogx"
)

const (
	// DefaultIssuanceLimit is how many codes one email may request per window.
	DefaultIssuanceLimit = 3

	// DefaultIssuanceWindow is the rolling rate-limit window.
	DefaultIssuanceWindow = time.Hour
)

// Notifier delivers codes and welcome messages out of band. Implementations
// may queue; the verification flow never fails because a send failed.
type Notifier interface {
	SendCode(ctx context.Context, email, code, displayName string, purpose domain.Purpose) error
	SendWelcome(ctx context.Context, email, displayName string) error
}

// SignupRequest is the pending account a signup code will materialise.
type SignupRequest struct {
	Email       string
	Username    string
	Password    string
	DisplayName string
}

// VerificationService runs the one-time-code flows that gate signup and
// password reset. Accounts are only created once a signup code verifies,
// so an abandoned signup leaves nothing behind but an expiring entry.
type VerificationService struct {
	Store    store.Store
	Hasher   *cryptox.PasswordHasher
	Notifier Notifier
	Clock    Clock

	// GenerateCode defaults to cryptox.GenerateCode.
	GenerateCode func() (string, error)

	// IssuanceLimit and IssuanceWindow default to 3 per rolling hour.
	IssuanceLimit  int
	IssuanceWindow time.Duration
}

func (s *VerificationService) limit() int {
	if s.IssuanceLimit <= 0 {
		return DefaultIssuanceLimit
	}
	return s.IssuanceLimit
}

func (s *VerificationService) window() time.Duration {
	if s.IssuanceWindow <= 0 {
		return DefaultIssuanceWindow
	}
	return s.IssuanceWindow
}

func (s *VerificationService) newCode() (string, error) {
	if s.GenerateCode != nil {
		return s.GenerateCode()
	}
	return cryptox.GenerateCode()
}

// InitiateSignup records a pending signup and sends its code. Any earlier
// unverified signup for the email is superseded.
func (s *VerificationService) InitiateSignup(ctx context.Context, req SignupRequest) error {
	l := slogx.FromContext(ctx)
	now := s.Clock.now()

	email := domain.NormalizeEmail(req.Email)
	username := strings.TrimSpace(req.Username)
	displayName := strings.TrimSpace(req.DisplayName)
	if email == "" || username == "" || req.Password == "" {
		return ErrInvalidRequest
	}
	if displayName == "" {
		displayName = username
	}

	if err := s.ensureAvailable(ctx, s.Store, email, username); err != nil {
		return err
	}
	// Skips the password hash for callers already over the limit. The
	// authoritative check runs again under the email lock.
	if err := s.checkRateLimit(ctx, s.Store.Verifications(), email, now); err != nil {
		l.Warn("signup code rate limited", "email", email)
		return err
	}

	hash, err := s.Hasher.Hash(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	code, err := s.newCode()
	if err != nil {
		return err
	}

	entry := domain.NewVerificationEntry(idx.NewAt(now).String(), email, domain.PurposeSignup, code, now)
	entry.PendingUsername = &username
	entry.PendingPasswordHash = &hash
	entry.PendingDisplayName = &displayName

	if err := s.persistNewEntry(ctx, entry, now); err != nil {
		if errors.Is(err, ErrRateLimited) {
			l.Warn("signup code rate limited", "email", email)
		}
		return err
	}

	l.Info("signup code issued", "email", email)
	s.sendCode(ctx, entry)
	return nil
}

// InitiatePasswordReset sends a reset code when the email belongs to an
// account. Unknown emails succeed silently and still count towards the
// rate limit, so responses do not reveal which emails are registered.
func (s *VerificationService) InitiatePasswordReset(ctx context.Context, email string) error {
	l := slogx.FromContext(ctx)
	now := s.Clock.now()

	email = domain.NormalizeEmail(email)
	if email == "" {
		return ErrInvalidRequest
	}

	acct, err := s.Store.Accounts().GetAccountByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		err = s.Store.WithTx(ctx, func(tx store.Tx) error {
			if err := s.reserveIssuance(ctx, tx.Verifications(), email, now); err != nil {
				return err
			}
			return tx.Verifications().RecordIssuance(ctx, newIssuance(email, domain.PurposePasswordReset, now))
		})
		switch {
		case errors.Is(err, ErrRateLimited):
			l.Warn("password reset rate limited", "email", email)
		case err == nil:
			l.Info("password reset requested for unknown email")
		}
		return err
	}
	if err != nil {
		return err
	}

	code, err := s.newCode()
	if err != nil {
		return err
	}

	entry := domain.NewVerificationEntry(idx.NewAt(now).String(), email, domain.PurposePasswordReset, code, now)
	displayName := acct.DisplayName
	if displayName == "" {
		displayName = acct.Username
	}
	entry.PendingDisplayName = &displayName

	if err := s.persistNewEntry(ctx, entry, now); err != nil {
		if errors.Is(err, ErrRateLimited) {
			l.Warn("password reset rate limited", "email", email)
		}
		return err
	}

	l.Info("password reset code issued", "email", email)
	s.sendCode(ctx, entry)
	return nil
}

// Resend restarts an existing challenge with a fresh code and a full set
// of attempts. It is not a substitute for initiating.
func (s *VerificationService) Resend(ctx context.Context, email string, purpose domain.Purpose) error {
	l := slogx.FromContext(ctx)
	now := s.Clock.now()

	email = domain.NormalizeEmail(email)
	if email == "" || !purpose.Valid() {
		return ErrInvalidRequest
	}

	code, err := s.newCode()
	if err != nil {
		return err
	}

	var entry domain.VerificationEntry
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := s.reserveIssuance(ctx, tx.Verifications(), email, now); err != nil {
			return err
		}

		var err error
		entry, err = tx.Verifications().GetEntryForUpdate(ctx, email, purpose)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrVerificationNotFound
			}
			return err
		}

		entry.Regenerate(code, now)
		if err := tx.Verifications().UpdateEntry(ctx, entry); err != nil {
			return err
		}
		return tx.Verifications().RecordIssuance(ctx, newIssuance(email, purpose, now))
	})
	if errors.Is(err, ErrRateLimited) {
		l.Warn("resend rate limited", "email", email, "purpose", purpose)
		return err
	}
	if err != nil {
		return err
	}

	l.Info("verification code reissued", "email", email, "purpose", purpose)
	s.sendCode(ctx, &entry)
	return nil
}

// Verify consumes one attempt against the (email, purpose) entry. A
// wrong code is committed as a used attempt before ErrCodeMismatch is
// returned. On success a signup entry becomes an account and the entry is
// deleted in the same transaction.
func (s *VerificationService) Verify(ctx context.Context, email string, purpose domain.Purpose, candidate string) error {
	switch purpose {
	case domain.PurposeSignup:
		_, err := s.VerifySignup(ctx, email, candidate)
		return err
	case domain.PurposePasswordReset:
		return s.verifyAndConsume(ctx, email, candidate)
	default:
		return ErrInvalidRequest
	}
}

// VerifySignup checks a signup code and creates the pending account.
func (s *VerificationService) VerifySignup(ctx context.Context, email, candidate string) (domain.Account, error) {
	l := slogx.FromContext(ctx)
	now := s.Clock.now()
	email = domain.NormalizeEmail(email)

	var (
		acct    domain.Account
		outcome error
	)
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		entry, err := s.consumeAttempt(ctx, tx, email, domain.PurposeSignup, candidate, now)
		if err != nil {
			return s.settle(err, &outcome)
		}

		acct, err = accountFromEntry(entry, now)
		if err != nil {
			return err
		}
		if err := s.ensureAvailable(ctx, tx, acct.Email, acct.Username); err != nil {
			return err
		}
		if err := tx.Accounts().CreateAccount(ctx, acct); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrUsernameTaken
			}
			return err
		}
		// Deleting the entry is what makes the code single use; it commits
		// together with the account or not at all.
		return tx.Verifications().DeleteEntry(ctx, entry.ID)
	})
	if err != nil {
		return domain.Account{}, err
	}
	if outcome != nil {
		l.Info("signup verification failed", "email", email, "reason", outcome.Error())
		return domain.Account{}, outcome
	}

	l.Info("account created", "username", acct.Username)
	if err := s.Notifier.SendWelcome(ctx, acct.Email, acct.DisplayName); err != nil {
		l.Warn("failed to queue welcome notification", "error", err)
	}
	return acct, nil
}

// ResetPassword checks a reset code and replaces the account password.
// The password change and the entry deletion commit together.
func (s *VerificationService) ResetPassword(ctx context.Context, email, candidate, newPassword string) error {
	l := slogx.FromContext(ctx)
	now := s.Clock.now()
	email = domain.NormalizeEmail(email)

	if newPassword == "" {
		return ErrInvalidRequest
	}
	hash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	var outcome error
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		entry, err := s.consumeAttempt(ctx, tx, email, domain.PurposePasswordReset, candidate, now)
		if err != nil {
			return s.settle(err, &outcome)
		}

		acct, err := tx.Accounts().GetAccountByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrVerificationNotFound
			}
			return err
		}
		if err := tx.Accounts().UpdatePasswordHash(ctx, acct.ID, hash, now); err != nil {
			return err
		}
		return tx.Verifications().DeleteEntry(ctx, entry.ID)
	})
	if err != nil {
		return err
	}
	if outcome != nil {
		l.Info("password reset verification failed", "email", email, "reason", outcome.Error())
		return outcome
	}

	l.Info("password reset completed", "email", email)
	return nil
}

// verifyAndConsume checks a reset code without changing anything else.
func (s *VerificationService) verifyAndConsume(ctx context.Context, email, candidate string) error {
	now := s.Clock.now()
	email = domain.NormalizeEmail(email)

	var outcome error
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		entry, err := s.consumeAttempt(ctx, tx, email, domain.PurposePasswordReset, candidate, now)
		if err != nil {
			return s.settle(err, &outcome)
		}
		return tx.Verifications().DeleteEntry(ctx, entry.ID)
	})
	if err != nil {
		return err
	}
	return outcome
}

// RateLimitStatus reports how many codes email may still request.
func (s *VerificationService) RateLimitStatus(ctx context.Context, email string) (domain.RateLimitStatus, error) {
	now := s.Clock.now()
	email = domain.NormalizeEmail(email)
	since := now.Add(-s.window())

	used, err := s.Store.Verifications().CountIssuancesSince(ctx, email, since)
	if err != nil {
		return domain.RateLimitStatus{}, err
	}

	status := domain.RateLimitStatus{
		Limit:     s.limit(),
		Used:      used,
		Remaining: max(s.limit()-used, 0),
		Window:    s.window(),
	}
	if used > 0 {
		oldest, err := s.Store.Verifications().OldestIssuanceSince(ctx, email, since)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return domain.RateLimitStatus{}, err
		}
		if err == nil {
			reset := oldest.Add(s.window())
			status.ResetAt = &reset
		}
	}
	return status, nil
}

// SweepExpired deletes ledger entries past their expiry, verified or not,
// and trims issuance records that have left the rate-limit window.
func (s *VerificationService) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.Store.Verifications().DeleteExpiredEntries(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("sweep verification entries: %w", err)
	}
	if _, err := s.Store.Verifications().DeleteIssuancesBefore(ctx, now.Add(-s.window())); err != nil {
		return n, fmt.Errorf("sweep verification issuances: %w", err)
	}
	return n, nil
}

// consumeAttempt loads the entry under a row lock, applies the ledger
// guards and spends one attempt. The attempt is written before a
// mismatch is reported.
func (s *VerificationService) consumeAttempt(
	ctx context.Context,
	tx store.Tx,
	email string,
	purpose domain.Purpose,
	candidate string,
	now time.Time,
) (domain.VerificationEntry, error) {
	entry, err := tx.Verifications().GetEntryForUpdate(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return entry, ErrVerificationNotFound
		}
		return entry, err
	}

	switch {
	case entry.Verified:
		return entry, ErrVerificationNotFound
	case entry.IsExpired(now):
		return entry, ErrCodeExpired
	case entry.Exhausted():
		return entry, ErrAttemptsExhausted
	}

	ok := entry.VerifyCode(candidate, now)
	if err := tx.Verifications().UpdateEntry(ctx, entry); err != nil {
		return entry, err
	}
	if !ok {
		return entry, ErrCodeMismatch
	}
	return entry, nil
}

// settle lets the transaction commit when err is a verification outcome
// (so a spent attempt is kept) and aborts it for anything else.
func (s *VerificationService) settle(err error, outcome *error) error {
	switch {
	case errors.Is(err, ErrVerificationNotFound),
		errors.Is(err, ErrCodeExpired),
		errors.Is(err, ErrAttemptsExhausted),
		errors.Is(err, ErrCodeMismatch):
		*outcome = err
		return nil
	}
	return err
}

func (s *VerificationService) ensureAvailable(ctx context.Context, st store.Store, email, username string) error {
	taken, err := st.Accounts().ExistsByEmail(ctx, email)
	if err != nil {
		return err
	}
	if taken {
		return ErrEmailTaken
	}

	taken, err = st.Accounts().ExistsByUsername(ctx, username)
	if err != nil {
		return err
	}
	if taken {
		return ErrUsernameTaken
	}
	return nil
}

func (s *VerificationService) checkRateLimit(ctx context.Context, repo store.Verifications, email string, now time.Time) error {
	used, err := repo.CountIssuancesSince(ctx, email, now.Add(-s.window()))
	if err != nil {
		return err
	}
	if used >= s.limit() {
		return ErrRateLimited
	}
	return nil
}

// reserveIssuance locks the email for the rest of tx and checks the
// rolling limit. The count and the issuance recorded after it are atomic
// with respect to every other issuance for the email.
func (s *VerificationService) reserveIssuance(ctx context.Context, repo store.Verifications, email string, now time.Time) error {
	if err := repo.LockEmail(ctx, email); err != nil {
		return fmt.Errorf("lock email: %w", err)
	}
	return s.checkRateLimit(ctx, repo, email, now)
}

// persistNewEntry checks the limit, supersedes earlier unverified entries
// and records the issuance, all in one transaction.
func (s *VerificationService) persistNewEntry(ctx context.Context, entry *domain.VerificationEntry, now time.Time) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := s.reserveIssuance(ctx, tx.Verifications(), entry.Email, now); err != nil {
			return err
		}
		if _, err := tx.Verifications().DeleteUnverifiedEntries(ctx, entry.Email, entry.Purpose); err != nil {
			return err
		}
		if err := tx.Verifications().CreateEntry(ctx, *entry); err != nil {
			return err
		}
		return tx.Verifications().RecordIssuance(ctx, newIssuance(entry.Email, entry.Purpose, now))
	})
}

func (s *VerificationService) sendCode(ctx context.Context, entry *domain.VerificationEntry) {
	displayName := ""
	if entry.PendingDisplayName != nil {
		displayName = *entry.PendingDisplayName
	}
	if err := s.Notifier.SendCode(ctx, entry.Email, entry.Code, displayName, entry.Purpose); err != nil {
		slogx.FromContext(ctx).Warn("failed to queue verification code", "email", entry.Email, "error", err)
	}
}

func newIssuance(email string, purpose domain.Purpose, now time.Time) domain.VerificationIssuance {
	return domain.VerificationIssuance{
		ID:       idx.NewAt(now).String(),
		Email:    email,
		Purpose:  purpose,
		IssuedAt: now,
	}
}

func accountFromEntry(entry domain.VerificationEntry, now time.Time) (domain.Account, error) {
	if entry.PendingUsername == nil || entry.PendingPasswordHash == nil {
		return domain.Account{}, fmt.Errorf("verification entry %s has no pending account", entry.ID)
	}

	displayName := *entry.PendingUsername
	if entry.PendingDisplayName != nil && *entry.PendingDisplayName != "" {
		displayName = *entry.PendingDisplayName
	}

	return domain.Account{
		ID:           idx.NewAt(now).String(),
		Username:     *entry.PendingUsername,
		Email:        entry.Email,
		DisplayName:  displayName,
		PasswordHash: *entry.PendingPasswordHash,
		Role:         domain.DefaultRole,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
