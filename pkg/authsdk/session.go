package authsdk

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Session is an authenticated caller. It is safe for concurrent use.
type Session struct {
	client *SDKClient

	mu          sync.RWMutex
	accessToken string
	expiresAt   time.Time
	subject     string
	role        string
}

func newSession(c *SDKClient, resp SessionResponse) *Session {
	return &Session{
		client:      c,
		accessToken: resp.AccessToken,
		expiresAt:   resp.ExpiresAt,
		subject:     resp.Subject,
		role:        resp.Role,
	}
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

func (s *Session) Subject() string { return s.subject }

func (s *Session) Role() string { return s.role }

// Expired reports whether the token is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	exp := s.ExpiresAt()
	return !exp.IsZero() && !now.Before(exp)
}

// Me returns the caller as the service sees it.
func (s *Session) Me(ctx context.Context) (*MeResponse, error) {
	var me MeResponse
	if err := s.client.doJSON(ctx, http.MethodGet, "/v1/auth/me", s.AccessToken(), nil, &me, http.StatusOK); err != nil {
		return nil, err
	}
	return &me, nil
}

// Logout revokes the session token. Later calls with it fail with
// ErrorCodeTokenRevoked.
func (s *Session) Logout(ctx context.Context) error {
	return s.client.doJSON(ctx, http.MethodPost, "/v1/auth/logout", s.AccessToken(), nil, nil, http.StatusNoContent)
}

// RunHousekeeping triggers both expiry sweeps. Requires the ADMIN role.
func (s *Session) RunHousekeeping(ctx context.Context) (*HousekeepingResponse, error) {
	var out HousekeepingResponse
	if err := s.client.doJSON(ctx, http.MethodPost, "/v1/admin/housekeeping", s.AccessToken(), nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
