package service

import (
	"context"
	"errors"
	"strings"

	"github.com/aussiebroadwan/roomstay/internal/auth/domain"
	"github.com/aussiebroadwan/roomstay/pkg/jwtx"
	"github.com/aussiebroadwan/roomstay/pkg/slogx"
)

// Authenticator checks credentials and returns who they belong to.
type Authenticator interface {
	Authenticate(ctx context.Context, identifier, password string) (domain.Principal, error)
}

// SessionService issues, validates and revokes stateless session tokens.
// Nothing about an active session is stored; a token is valid until it
// expires or is blacklisted.
type SessionService struct {
	Codec         *jwtx.Codec
	Revocations   *RevocationService
	Authenticator Authenticator
}

// Login checks credentials and issues a fresh token. It never touches the
// revocation store.
func (s *SessionService) Login(ctx context.Context, identifier, password string) (*domain.Session, error) {
	l := slogx.FromContext(ctx)

	principal, err := s.Authenticator.Authenticate(ctx, identifier, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			l.Info("login rejected", "identifier", identifier)
		}
		return nil, err
	}

	token, claims, err := s.Codec.Issue(principal.Subject, principal.Role.String())
	if err != nil {
		l.Error("failed to issue session token", "error", err)
		return nil, err
	}

	return &domain.Session{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.Codec.TTL().Seconds()),
		ExpiresAt:   claims.Expiry(),
		Subject:     principal.Subject,
		Role:        principal.Role,
	}, nil
}

// ValidateRequest resolves a bearer token to a principal. The blacklist
// is consulted before the signature, so a revoked token reports
// ErrBlacklisted even once it has also expired.
func (s *SessionService) ValidateRequest(ctx context.Context, token string) (domain.Principal, error) {
	l := slogx.FromContext(ctx)

	if strings.TrimSpace(token) == "" {
		return domain.Principal{}, jwtx.ErrEmpty
	}

	revoked, err := s.Revocations.IsRevoked(ctx, token)
	if err != nil {
		l.Error("revocation check failed", "error", err)
		return domain.Principal{}, err
	}
	if revoked {
		l.Warn("revoked token presented")
		return domain.Principal{}, ErrBlacklisted
	}

	claims, err := s.Codec.Validate(token)
	if err != nil {
		if errors.Is(err, jwtx.ErrInvalidSig) || errors.Is(err, jwtx.ErrUnsupportedAlg) {
			l.Warn("token failed verification", "reason", err.Error())
		}
		return domain.Principal{}, err
	}

	principal := domain.Principal{
		Subject:   claims.Subject,
		Role:      domain.Role(claims.Role),
		TokenID:   claims.ID,
		ExpiresAt: claims.Expiry(),
	}
	if claims.IssuedAt != nil {
		principal.IssuedAt = claims.IssuedAt.Time
	}
	return principal, nil
}

// Logout blacklists token until its face-value expiry. The token is not
// fully validated, so even an otherwise invalid token can be revoked. An
// empty subjectID is taken from the token when it still validates.
func (s *SessionService) Logout(ctx context.Context, token, subjectID string) error {
	l := slogx.FromContext(ctx)

	if strings.TrimSpace(token) == "" {
		return ErrMissingToken
	}

	expiresAt, err := s.Codec.ReadExpiry(token)
	if err != nil {
		return err
	}
	if subjectID == "" {
		subjectID, _ = s.Codec.ExtractSubject(token)
	}

	if err := s.Revocations.Revoke(ctx, token, expiresAt, subjectID, domain.RevokeReasonLogout); err != nil {
		if errors.Is(err, ErrAlreadyRevoked) {
			l.Warn("token already revoked", "subject", subjectID)
		}
		return err
	}

	l.Info("session revoked", "subject", subjectID)
	return nil
}

// Authorize reports whether principal may act in the required role.
func Authorize(principal domain.Principal, required domain.Role) bool {
	return principal.Role.Satisfies(required)
}
