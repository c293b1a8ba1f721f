package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/roomstay/internal/auth/domain"
)

type accountsRepo struct {
	q querier
}

const selectAccount = `
	SELECT id, username, email, display_name, password_hash, role, created_at, updated_at
	FROM accounts`

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	return mapInsertIgnored(r.q.ExecContext(ctx, `
		INSERT INTO accounts (id, username, email, display_name, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		a.ID,
		a.Username,
		a.Email,
		a.DisplayName,
		a.PasswordHash,
		string(a.Role),
		a.CreatedAt.UTC(),
		a.UpdatedAt.UTC(),
	))
}

func (r *accountsRepo) GetAccountByUsername(ctx context.Context, username string) (domain.Account, error) {
	return r.scanOne(ctx, selectAccount+` WHERE username = ?`, username)
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	return r.scanOne(ctx, selectAccount+` WHERE email = ?`, email)
}

func (r *accountsRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE username = ?)`, username,
	).Scan(&exists)
	return exists, err
}

func (r *accountsRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE email = ?)`, email,
	).Scan(&exists)
	return exists, err
}

func (r *accountsRepo) UpdatePasswordHash(ctx context.Context, accountID, newHash string, now time.Time) error {
	return requireAffected(r.q.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, now.UTC(), accountID,
	))
}

func (r *accountsRepo) scanOne(ctx context.Context, query string, args ...any) (domain.Account, error) {
	var (
		a    domain.Account
		role string
	)
	err := r.q.QueryRowContext(ctx, query, args...).Scan(
		&a.ID, &a.Username, &a.Email, &a.DisplayName, &a.PasswordHash, &role, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	a.Role = domain.Role(role)
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a, nil
}
