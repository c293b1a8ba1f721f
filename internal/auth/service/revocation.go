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
)

// RevocationService is the token blacklist. Tokens are only ever stored as
// fingerprints, and records live until the token would have expired anyway.
type RevocationService struct {
	Store store.Store
	Clock Clock
}

// Revoke blacklists token until expiresAt. Revoking the same token twice
// returns ErrAlreadyRevoked.
func (s *RevocationService) Revoke(ctx context.Context, token string, expiresAt time.Time, subjectID, reason string) error {
	if strings.TrimSpace(token) == "" {
		return ErrMissingToken
	}
	if reason == "" {
		reason = domain.RevokeReasonLogout
	}

	now := s.Clock.now()
	rec := domain.RevokedToken{
		ID:          idx.NewAt(now).String(),
		Fingerprint: cryptox.FingerprintToken(token),
		Reason:      reason,
		ExpiresAt:   expiresAt.UTC(),
		RevokedAt:   now,
	}
	if subjectID != "" {
		rec.SubjectID = &subjectID
	}

	if err := s.Store.RevokedTokens().CreateRevokedToken(ctx, rec); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return ErrAlreadyRevoked
		}
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether token has been blacklisted.
func (s *RevocationService) IsRevoked(ctx context.Context, token string) (bool, error) {
	revoked, err := s.Store.RevokedTokens().IsRevoked(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		return false, fmt.Errorf("revocation lookup: %w", err)
	}
	return revoked, nil
}

// SweepExpired drops records whose token has expired by now. Records
// expiring exactly at now are kept for one more sweep.
func (s *RevocationService) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.Store.RevokedTokens().DeleteExpiredRevokedTokens(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("sweep revoked tokens: %w", err)
	}
	return n, nil
}
