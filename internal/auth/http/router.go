package http

import (
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/aussiebroadwan/roomstay/api/auth" // Swagger docs
	"github.com/aussiebroadwan/roomstay/internal/auth/domain"
	"github.com/aussiebroadwan/roomstay/internal/auth/service"
	"github.com/aussiebroadwan/roomstay/pkg/httpx"
	"github.com/aussiebroadwan/roomstay/pkg/slogx"
)

// RateLimits are the endpoint throttling profiles. A zero profile disables
// throttling for the endpoints that use it.
type RateLimits struct {
	Strict   httpx.RateLimitConfig `envPrefix:"STRICT_"`
	Moderate httpx.RateLimitConfig `envPrefix:"MODERATE_"`
	Lenient  httpx.RateLimitConfig `envPrefix:"LENIENT_"`
}

// DefaultRateLimits returns the httpx profiles.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		Strict:   httpx.StrictLimit,
		Moderate: httpx.ModerateLimit,
		Lenient:  httpx.LenientLimit,
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	db           Pinger

	Sessions      *service.SessionService
	Verifications *service.VerificationService
	Housekeeping  *service.HousekeepingService

	Limits      RateLimits
	CORSOrigins []string
}

func NewRouter(buildVersion string, db Pinger, logger *slog.Logger) *Router {
	return &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		db:           db,
		Limits:       DefaultRateLimits(),
	}
}

// ApplyRoutes registers every endpoint. Set the service fields first.
func (r *Router) ApplyRoutes() {
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger, "/livez", "/readyz"),
		httpx.CORS(r.CORSOrigins),
	}

	r.registerSession()
	r.registerSignup()
	r.registerPassword()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Roomstay Auth API
//	@version		0.1.0
//	@description	Sessions, signup verification and password reset for the roomstay marketplace.
//	@description
//	@description				Session tokens are HS256 JWTs. Logging out revokes a token until it would have expired.
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) authn() httpx.Middleware {
	return httpx.AuthnMiddleware(r.Sessions, writeError)
}

func (r *Router) registerSession() {
	h := &SessionHandler{Sessions: r.Sessions}

	// Strict per IP and identifier, so one account cannot be brute forced
	// from many addresses sharing a budget.
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndField(r.Limits.Strict, "identifier"),
		),
	)

	// Logout accepts tokens that no longer validate, so it skips authn.
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(r.Limits.Moderate),
		),
	)

	r.Mux.Handle("GET /v1/auth/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			r.authn(),
			httpx.RateLimitBySubject(r.Limits.Lenient),
		),
	)
}

func (r *Router) registerSignup() {
	h := &VerificationHandler{Verifications: r.Verifications}

	r.Mux.Handle("POST /v1/auth/signup",
		httpx.Chain(http.HandlerFunc(h.HandleSignup), httpx.RateLimitByIP(r.Limits.Strict)))
	r.Mux.Handle("POST /v1/auth/signup/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerifySignup), httpx.RateLimitByIP(r.Limits.Strict)))
	r.Mux.Handle("POST /v1/auth/signup/resend",
		httpx.Chain(http.HandlerFunc(h.HandleResendSignup), httpx.RateLimitByIP(r.Limits.Strict)))
	r.Mux.Handle("GET /v1/auth/verification/status",
		httpx.Chain(http.HandlerFunc(h.HandleStatus), httpx.RateLimitByIP(r.Limits.Moderate)))
}

func (r *Router) registerPassword() {
	h := &VerificationHandler{Verifications: r.Verifications}

	r.Mux.Handle("POST /v1/auth/password/forgot",
		httpx.Chain(http.HandlerFunc(h.HandleForgotPassword), httpx.RateLimitByIP(r.Limits.Strict)))
	r.Mux.Handle("POST /v1/auth/password/resend",
		httpx.Chain(http.HandlerFunc(h.HandleResendPasswordReset), httpx.RateLimitByIP(r.Limits.Strict)))
	r.Mux.Handle("POST /v1/auth/password/reset",
		httpx.Chain(http.HandlerFunc(h.HandleResetPassword), httpx.RateLimitByIP(r.Limits.Strict)))
}

func (r *Router) registerAdmin() {
	if r.Housekeeping == nil {
		return
	}
	r.Mux.Handle("POST /v1/admin/housekeeping",
		httpx.Chain(&HousekeepingHandler{Housekeeping: r.Housekeeping},
			r.authn(),
			httpx.RequireRole(domain.RoleAdmin),
			httpx.RateLimitBySubject(r.Limits.Moderate),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion), httpx.RateLimitByIP(r.Limits.Lenient)))
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.db), httpx.RateLimitByIP(r.Limits.Lenient)))
}
