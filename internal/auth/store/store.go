package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/roomstay/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Sub-repositories hang off the store so a Tx hands out the
// same repos bound to the transaction, and nothing can open a transaction
// inside another one.
type Store interface {
	RevokedTokens() RevokedTokens
	Verifications() Verifications
	Accounts() Accounts

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type RevokedTokens interface {
	// CreateRevokedToken blacklists a token fingerprint. Returns
	// ErrAlreadyExists when the fingerprint is already present.
	CreateRevokedToken(ctx context.Context, t domain.RevokedToken) error

	// IsRevoked reports whether the fingerprint is blacklisted.
	IsRevoked(ctx context.Context, fingerprint string) (bool, error)

	// GetRevokedToken returns the record for a fingerprint.
	GetRevokedToken(ctx context.Context, fingerprint string) (domain.RevokedToken, error)

	// DeleteExpiredRevokedTokens removes records with expires_at < now.
	DeleteExpiredRevokedTokens(ctx context.Context, now time.Time) (int64, error)
}

type Verifications interface {
	// LockEmail serialises issuance for email until the surrounding
	// transaction ends. Only meaningful inside a Tx.
	LockEmail(ctx context.Context, email string) error

	// CreateEntry inserts a new ledger entry.
	CreateEntry(ctx context.Context, e domain.VerificationEntry) error

	// GetEntry returns the newest entry for (email, purpose).
	GetEntry(ctx context.Context, email string, purpose domain.Purpose) (domain.VerificationEntry, error)

	// GetEntryForUpdate is GetEntry holding a row lock until the
	// surrounding transaction ends. Only meaningful inside a Tx.
	GetEntryForUpdate(ctx context.Context, email string, purpose domain.Purpose) (domain.VerificationEntry, error)

	// UpdateEntry persists code, attempts, timestamps and verified state.
	UpdateEntry(ctx context.Context, e domain.VerificationEntry) error

	// DeleteEntry removes an entry by id.
	DeleteEntry(ctx context.Context, id string) error

	// DeleteUnverifiedEntries removes pending entries for (email, purpose).
	DeleteUnverifiedEntries(ctx context.Context, email string, purpose domain.Purpose) (int64, error)

	// DeleteExpiredEntries removes entries with expires_at < now, verified or not.
	DeleteExpiredEntries(ctx context.Context, now time.Time) (int64, error)

	// RecordIssuance appends one sent-code record for rate limiting.
	RecordIssuance(ctx context.Context, i domain.VerificationIssuance) error

	// CountIssuancesSince counts codes sent to email at or after since.
	CountIssuancesSince(ctx context.Context, email string, since time.Time) (int, error)

	// OldestIssuanceSince returns the earliest issue time at or after since.
	// Returns ErrNotFound when there is none.
	OldestIssuanceSince(ctx context.Context, email string, since time.Time) (time.Time, error)

	// DeleteIssuancesBefore trims records older than t.
	DeleteIssuancesBefore(ctx context.Context, t time.Time) (int64, error)
}

type Accounts interface {
	// CreateAccount inserts a new account (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the username or email is taken.
	CreateAccount(ctx context.Context, a domain.Account) error

	GetAccountByUsername(ctx context.Context, username string) (domain.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, accountID, newHash string, now time.Time) error
}
