package httpx

import (
	"context"

	"github.com/aussiebroadwan/roomstay/internal/auth/domain"
)

type ctxKey int

const (
	ctxKeyPrincipal ctxKey = iota
	ctxKeyToken
)

// WithPrincipal stores the authenticated caller and the raw token they
// presented.
func WithPrincipal(ctx context.Context, p domain.Principal, token string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyPrincipal, p)
	return context.WithValue(ctx, ctxKeyToken, token)
}

// PrincipalFromContext returns the caller set by AuthnMiddleware.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(domain.Principal)
	return p, ok
}

// TokenFromContext returns the bearer token AuthnMiddleware accepted.
func TokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(ctxKeyToken).(string)
	return t
}
