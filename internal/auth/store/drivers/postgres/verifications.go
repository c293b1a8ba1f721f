package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/roomstay/internal/auth/domain"
)

type verificationsRepo struct {
	q querier
}

const selectEntry = `
	SELECT id, email, purpose, code,
	       pending_username, pending_password_hash, pending_display_name,
	       attempts, max_attempts, created_at, expires_at, verified, verified_at
	FROM verification_entries
	WHERE email = $1 AND purpose = $2
	ORDER BY created_at DESC
	LIMIT 1`

// LockEmail takes a transaction-scoped advisory lock keyed on the email.
func (r *verificationsRepo) LockEmail(ctx context.Context, email string) error {
	_, err := r.q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, email)
	return err
}

func (r *verificationsRepo) CreateEntry(ctx context.Context, e domain.VerificationEntry) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO verification_entries (
			id, email, purpose, code,
			pending_username, pending_password_hash, pending_display_name,
			attempts, max_attempts, created_at, expires_at, verified, verified_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		e.ID, e.Email, string(e.Purpose), e.Code,
		nullString(e.PendingUsername), nullString(e.PendingPasswordHash), nullString(e.PendingDisplayName),
		e.Attempts, e.MaxAttempts, e.CreatedAt.UTC(), e.ExpiresAt.UTC(), e.Verified, nullTime(e.VerifiedAt),
	)
	return err
}

func (r *verificationsRepo) GetEntry(ctx context.Context, email string, purpose domain.Purpose) (domain.VerificationEntry, error) {
	return r.scanOne(ctx, selectEntry, email, string(purpose))
}

// GetEntryForUpdate locks the row until the surrounding transaction ends,
// so concurrent verifies of one entry run one after the other.
func (r *verificationsRepo) GetEntryForUpdate(ctx context.Context, email string, purpose domain.Purpose) (domain.VerificationEntry, error) {
	return r.scanOne(ctx, selectEntry+` FOR UPDATE`, email, string(purpose))
}

func (r *verificationsRepo) UpdateEntry(ctx context.Context, e domain.VerificationEntry) error {
	return requireAffected(r.q.ExecContext(ctx, `
		UPDATE verification_entries
		SET code = $1, attempts = $2, created_at = $3, expires_at = $4, verified = $5, verified_at = $6
		WHERE id = $7`,
		e.Code, e.Attempts, e.CreatedAt.UTC(), e.ExpiresAt.UTC(), e.Verified, nullTime(e.VerifiedAt), e.ID,
	))
}

func (r *verificationsRepo) DeleteEntry(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM verification_entries WHERE id = $1`, id)
	return err
}

func (r *verificationsRepo) DeleteUnverifiedEntries(ctx context.Context, email string, purpose domain.Purpose) (int64, error) {
	return rowsAffected(r.q.ExecContext(ctx,
		`DELETE FROM verification_entries WHERE email = $1 AND purpose = $2 AND NOT verified`,
		email, string(purpose),
	))
}

func (r *verificationsRepo) DeleteExpiredEntries(ctx context.Context, now time.Time) (int64, error) {
	return rowsAffected(r.q.ExecContext(ctx,
		`DELETE FROM verification_entries WHERE expires_at < $1`,
		now.UTC(),
	))
}

func (r *verificationsRepo) RecordIssuance(ctx context.Context, i domain.VerificationIssuance) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO verification_issuances (id, email, purpose, issued_at) VALUES ($1, $2, $3, $4)`,
		i.ID, i.Email, string(i.Purpose), i.IssuedAt.UTC(),
	)
	return err
}

func (r *verificationsRepo) CountIssuancesSince(ctx context.Context, email string, since time.Time) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM verification_issuances WHERE email = $1 AND issued_at >= $2`,
		email, since.UTC(),
	).Scan(&n)
	return n, err
}

func (r *verificationsRepo) OldestIssuanceSince(ctx context.Context, email string, since time.Time) (time.Time, error) {
	var t time.Time
	err := r.q.QueryRowContext(ctx, `
		SELECT issued_at FROM verification_issuances
		WHERE email = $1 AND issued_at >= $2
		ORDER BY issued_at ASC
		LIMIT 1`,
		email, since.UTC(),
	).Scan(&t)
	if err != nil {
		return time.Time{}, mapNotFound(err)
	}
	return t.UTC(), nil
}

func (r *verificationsRepo) DeleteIssuancesBefore(ctx context.Context, t time.Time) (int64, error) {
	return rowsAffected(r.q.ExecContext(ctx,
		`DELETE FROM verification_issuances WHERE issued_at < $1`,
		t.UTC(),
	))
}

func (r *verificationsRepo) scanOne(ctx context.Context, query string, args ...any) (domain.VerificationEntry, error) {
	var (
		e                                   domain.VerificationEntry
		purpose                             string
		pendingUser, pendingHash, pendingDN sql.NullString
		verifiedAt                          sql.NullTime
	)
	err := r.q.QueryRowContext(ctx, query, args...).Scan(
		&e.ID, &e.Email, &purpose, &e.Code,
		&pendingUser, &pendingHash, &pendingDN,
		&e.Attempts, &e.MaxAttempts, &e.CreatedAt, &e.ExpiresAt, &e.Verified, &verifiedAt,
	)
	if err != nil {
		return domain.VerificationEntry{}, mapNotFound(err)
	}

	e.Purpose = domain.Purpose(purpose)
	e.PendingUsername = stringPtr(pendingUser)
	e.PendingPasswordHash = stringPtr(pendingHash)
	e.PendingDisplayName = stringPtr(pendingDN)
	e.CreatedAt = e.CreatedAt.UTC()
	e.ExpiresAt = e.ExpiresAt.UTC()
	e.VerifiedAt = timePtr(verifiedAt)
	return e, nil
}
