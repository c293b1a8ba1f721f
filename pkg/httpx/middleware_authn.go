package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/roomstay/internal/auth/domain"
	"github.com/aussiebroadwan/roomstay/pkg/slogx"
)

// TokenValidator resolves a bearer token to the caller it was issued to.
type TokenValidator interface {
	ValidateRequest(ctx context.Context, token string) (domain.Principal, error)
}

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// AccessTokenParam carries the token on WebSocket upgrades, where browsers
// cannot set headers.
const AccessTokenParam = "access_token"

// BearerToken extracts the token from the Authorization header, or from the
// access_token query parameter on a WebSocket upgrade.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if isWebSocketUpgrade(r) {
		return strings.TrimSpace(r.URL.Query().Get(AccessTokenParam))
	}
	return ""
}

func isWebSocketUpgrade(r *http.Request) bool {
	if !strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return false
	}
	for _, v := range strings.Split(r.Header.Get("Connection"), ",") {
		if strings.EqualFold(strings.TrimSpace(v), "upgrade") {
			return true
		}
	}
	return false
}

// AuthnMiddleware rejects requests without a valid, unrevoked token and
// stores the caller in the request context. onErr defaults to a bare RFC
// 6750 401.
func AuthnMiddleware(v TokenValidator, onErr ErrorWriter) Middleware {
	if onErr == nil {
		onErr = func(w http.ResponseWriter, _ *http.Request, _ error) {
			WriteBearerChallenge(w, "invalid_token")
			w.WriteHeader(http.StatusUnauthorized)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := BearerToken(r)

			p, err := v.ValidateRequest(ctx, token)
			if err != nil {
				slogx.FromContext(ctx).Debug("request not authenticated", "reason", err.Error())
				onErr(w, r, err)
				return
			}

			ctx = WithPrincipal(ctx, p, token)
			ctx = slogx.WithContext(ctx, slogx.FromContext(ctx).With("subject", p.Subject))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets through callers whose role satisfies required. It must
// run after AuthnMiddleware.
func RequireRole(required domain.Role) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				WriteBearerChallenge(w, "invalid_token")
				WriteError(w, http.StatusUnauthorized, "invalid_token", "authentication required")
				return
			}
			if !p.Role.Satisfies(required) {
				slogx.FromContext(r.Context()).Warn("role check failed",
					"role", p.Role, "required", required)
				WriteError(w, http.StatusForbidden, "forbidden", "requires role "+required.String())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WriteBearerChallenge sets the RFC 6750 WWW-Authenticate header.
func WriteBearerChallenge(w http.ResponseWriter, code string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`"`)
}
