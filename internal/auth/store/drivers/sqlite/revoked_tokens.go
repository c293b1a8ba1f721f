package sqlite

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
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		t.ID,
		t.Fingerprint,
		mapOptionalString(t.SubjectID),
		t.Reason,
		t.ExpiresAt.UTC(),
		t.RevokedAt.UTC(),
	))
}

func (r *revokedTokensRepo) IsRevoked(ctx context.Context, fingerprint string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE fingerprint = ?)`,
		fingerprint,
	).Scan(&exists)
	return exists, err
}

func (r *revokedTokensRepo) GetRevokedToken(ctx context.Context, fingerprint string) (domain.RevokedToken, error) {
	var (
		t         domain.RevokedToken
		subjectID sql.NullString
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, fingerprint, subject_id, reason, expires_at, revoked_at
		FROM revoked_tokens
		WHERE fingerprint = ?`,
		fingerprint,
	).Scan(&t.ID, &t.Fingerprint, &subjectID, &t.Reason, &t.ExpiresAt, &t.RevokedAt)
	if err != nil {
		return domain.RevokedToken{}, mapNotFound(err)
	}

	t.SubjectID = mapNullStringPtr(subjectID)
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.RevokedAt = t.RevokedAt.UTC()
	return t, nil
}

func (r *revokedTokensRepo) DeleteExpiredRevokedTokens(ctx context.Context, now time.Time) (int64, error) {
	return rowsAffected(r.q.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`,
		now.UTC(),
	))
}
