package sqlite

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
	FROM verification_entries`

// LockEmail is a no-op: the store runs on one connection, so a
// transaction already excludes every other writer.
func (r *verificationsRepo) LockEmail(context.Context, string) error { return nil }

func (r *verificationsRepo) CreateEntry(ctx context.Context, e domain.VerificationEntry) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO verification_entries (
			id, email, purpose, code,
			pending_username, pending_password_hash, pending_display_name,
			attempts, max_attempts, created_at, expires_at, verified, verified_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.Email,
		string(e.Purpose),
		e.Code,
		mapOptionalString(e.PendingUsername),
		mapOptionalString(e.PendingPasswordHash),
		mapOptionalString(e.PendingDisplayName),
		e.Attempts,
		e.MaxAttempts,
		e.CreatedAt.UTC(),
		e.ExpiresAt.UTC(),
		e.Verified,
		mapOptionalTime(e.VerifiedAt),
	)
	return err
}

func (r *verificationsRepo) GetEntry(ctx context.Context, email string, purpose domain.Purpose) (domain.VerificationEntry, error) {
	return r.scanOne(ctx, selectEntry+`
		WHERE email = ? AND purpose = ?
		ORDER BY created_at DESC
		LIMIT 1`,
		email, string(purpose),
	)
}

// GetEntryForUpdate relies on the single connection opened by NewStore:
// the surrounding transaction already excludes every other writer.
func (r *verificationsRepo) GetEntryForUpdate(ctx context.Context, email string, purpose domain.Purpose) (domain.VerificationEntry, error) {
	return r.GetEntry(ctx, email, purpose)
}

func (r *verificationsRepo) UpdateEntry(ctx context.Context, e domain.VerificationEntry) error {
	return requireAffected(r.q.ExecContext(ctx, `
		UPDATE verification_entries
		SET code = ?, attempts = ?, created_at = ?, expires_at = ?, verified = ?, verified_at = ?
		WHERE id = ?`,
		e.Code,
		e.Attempts,
		e.CreatedAt.UTC(),
		e.ExpiresAt.UTC(),
		e.Verified,
		mapOptionalTime(e.VerifiedAt),
		e.ID,
	))
}

func (r *verificationsRepo) DeleteEntry(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM verification_entries WHERE id = ?`, id)
	return err
}

func (r *verificationsRepo) DeleteUnverifiedEntries(ctx context.Context, email string, purpose domain.Purpose) (int64, error) {
	return rowsAffected(r.q.ExecContext(ctx,
		`DELETE FROM verification_entries WHERE email = ? AND purpose = ? AND verified = 0`,
		email, string(purpose),
	))
}

func (r *verificationsRepo) DeleteExpiredEntries(ctx context.Context, now time.Time) (int64, error) {
	return rowsAffected(r.q.ExecContext(ctx,
		`DELETE FROM verification_entries WHERE expires_at < ?`,
		now.UTC(),
	))
}

func (r *verificationsRepo) RecordIssuance(ctx context.Context, i domain.VerificationIssuance) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO verification_issuances (id, email, purpose, issued_at) VALUES (?, ?, ?, ?)`,
		i.ID, i.Email, string(i.Purpose), i.IssuedAt.UTC(),
	)
	return err
}

func (r *verificationsRepo) CountIssuancesSince(ctx context.Context, email string, since time.Time) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM verification_issuances WHERE email = ? AND issued_at >= ?`,
		email, since.UTC(),
	).Scan(&n)
	return n, err
}

func (r *verificationsRepo) OldestIssuanceSince(ctx context.Context, email string, since time.Time) (time.Time, error) {
	// ORDER BY + LIMIT rather than MIN() so the driver still sees the
	// TIMESTAMP column type and scans a time.Time.
	var t time.Time
	err := r.q.QueryRowContext(ctx, `
		SELECT issued_at FROM verification_issuances
		WHERE email = ? AND issued_at >= ?
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
		`DELETE FROM verification_issuances WHERE issued_at < ?`,
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
	e.PendingUsername = mapNullStringPtr(pendingUser)
	e.PendingPasswordHash = mapNullStringPtr(pendingHash)
	e.PendingDisplayName = mapNullStringPtr(pendingDN)
	e.CreatedAt = e.CreatedAt.UTC()
	e.ExpiresAt = e.ExpiresAt.UTC()
	e.VerifiedAt = mapNullTimePtr(verifiedAt)
	return e, nil
}
