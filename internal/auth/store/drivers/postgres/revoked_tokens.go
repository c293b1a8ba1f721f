package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/roomstay/internal/auth/domain"
)

type revokedTokensRepo struct {
	q querier
}

func (r *revokedTokensRepo) CreateRevokedToken(ctx context.Context, t domain.RevokedToken) error {
	return mapInsertIgnored(r.q.ExecContext(ctx, `
		INSERT INTO revoked_tokens (id, fingerprint, subject_id, reason, expires_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (fingerprint) DO NOTHING`,
		t.ID, t.Fingerprint, nullString(t.SubjectID), t.Reason, t.ExpiresAt.UTC(), t.RevokedAt.UTC(),
	))
}

func (r *revokedTokensRepo) IsRevoked(ctx context.Context, fingerprint string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE fingerprint = $1)`,
		fingerprint,
	).Scan(&exists)
	return exists, err
}

func (r *revokedTokensRepo) GetRevokedToken(ctx context.Context, fingerprint string) (domain.RevokedToken, error) {
	var (
		t       domain.RevokedToken
		subject sql.NullString
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, fingerprint, subject_id, reason, expires_at, revoked_at
		FROM revoked_tokens
		WHERE fingerprint = $1`,
		fingerprint,
	).Scan(&t.ID, &t.Fingerprint, &subject, &t.Reason, &t.ExpiresAt, &t.RevokedAt)
	if err != nil {
		return domain.RevokedToken{}, mapNotFound(err)
	}
	t.SubjectID = stringPtr(subject)
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.RevokedAt = t.RevokedAt.UTC()
	return t, nil
}

func (r *revokedTokensRepo) DeleteExpiredRevokedTokens(ctx context.Context, now time.Time) (int64, error) {
	return rowsAffected(r.q.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < $1`,
		now.UTC(),
	))
}
